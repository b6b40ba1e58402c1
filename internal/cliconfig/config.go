package cliconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultResourceURL is the VATSIM v3 network data feed.
const DefaultResourceURL = "https://data.vatsim.net/v3/vatsim-data.json"

// Config holds CLI configuration for archivist.
type Config struct {
	ResourceURL string
	StorageDir  string

	Ceiling  int
	Interval time.Duration

	FetchTimeout time.Duration
	MaxBytes     int64
	UserAgent    string

	Strict     bool
	Continuous bool

	MetricsAddr string
	LogLevel    string
	LogJSON     bool
}

// DefaultConfig returns a Config with default values.
// The VATSIM feed refreshes about every 15 seconds; the default ceiling
// covers one hour at that cadence.
func DefaultConfig() Config {
	return Config{
		ResourceURL:  DefaultResourceURL,
		StorageDir:   "", // Derived during Validate
		Ceiling:      240,
		Interval:     15 * time.Second,
		FetchTimeout: 10 * time.Second,
		MaxBytes:     64 << 20, // 64MB
		UserAgent:    "vatplayback-archivist",
		LogLevel:     "info",
	}
}

// DefaultStorageDir returns ~/.archivist/recordings, or ./recordings when the
// home directory is unknown.
func DefaultStorageDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".archivist", "recordings")
	}
	return "recordings"
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.ResourceURL = strings.TrimSpace(c.ResourceURL)
	if c.ResourceURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(c.ResourceURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got %q", c.ResourceURL)
	}

	if c.StorageDir == "" {
		c.StorageDir = DefaultStorageDir()
	}

	if c.Ceiling < 1 {
		return fmt.Errorf("ceiling must be at least 1")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("max bytes must be positive")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := parseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString is setIntFromString for int64 destinations.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// parseDuration accepts Go duration strings and bare integers of
// milliseconds ("15000").
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}
