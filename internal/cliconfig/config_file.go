package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ResourceURL  string `toml:"url"`
	StorageDir   string `toml:"storage_dir"`
	Ceiling      int    `toml:"ceiling"`
	Interval     string `toml:"interval"`
	IntervalMS   int64  `toml:"interval_ms,omitempty"`
	FetchTimeout string `toml:"fetch_timeout"`
	MaxBytes     int64  `toml:"max_bytes"`
	UserAgent    string `toml:"user_agent"`
	Strict       *bool  `toml:"strict"`
	Continuous   *bool  `toml:"continuous"`
	MetricsAddr  string `toml:"metrics_addr,omitempty"`
	LogLevel     string `toml:"log_level"`
	LogJSON      *bool  `toml:"log_json"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.archivist/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".archivist", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", fc.ResourceURL, &cfg.ResourceURL)
	s.setString("storage-dir", fc.StorageDir, &cfg.StorageDir)
	s.setString("user-agent", fc.UserAgent, &cfg.UserAgent)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("ceiling", fc.Ceiling, &cfg.Ceiling)
	s.setInt64("max-bytes", fc.MaxBytes, &cfg.MaxBytes)

	interval := fc.Interval
	if interval == "" && fc.IntervalMS > 0 {
		interval = strconv.FormatInt(fc.IntervalMS, 10)
	}
	if err := s.setDuration("interval", interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("fetch-timeout", fc.FetchTimeout, &cfg.FetchTimeout); err != nil {
		return err
	}

	s.setBool("strict", fc.Strict, &cfg.Strict)
	s.setBool("continuous", fc.Continuous, &cfg.Continuous)
	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)

	return nil
}

// NewFileConfig converts cfg into its file form.
func NewFileConfig(cfg Config) FileConfig {
	strict, continuous, logJSON := cfg.Strict, cfg.Continuous, cfg.LogJSON
	return FileConfig{
		ResourceURL:  cfg.ResourceURL,
		StorageDir:   cfg.StorageDir,
		Ceiling:      cfg.Ceiling,
		Interval:     cfg.Interval.String(),
		FetchTimeout: cfg.FetchTimeout.String(),
		MaxBytes:     cfg.MaxBytes,
		UserAgent:    cfg.UserAgent,
		Strict:       &strict,
		Continuous:   &continuous,
		MetricsAddr:  cfg.MetricsAddr,
		LogLevel:     cfg.LogLevel,
		LogJSON:      &logJSON,
	}
}

// EncodeFileConfig renders cfg as TOML.
func EncodeFileConfig(cfg Config) ([]byte, error) {
	b, err := toml.Marshal(NewFileConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return b, nil
}

// SaveFileConfig writes cfg as TOML to path, creating parent directories.
// An existing file is only replaced when overwrite is set.
func SaveFileConfig(path string, cfg Config, overwrite bool) error {
	if !overwrite && FileExists(path) {
		return fmt.Errorf("config file %s already exists", path)
	}
	b, err := EncodeFileConfig(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
