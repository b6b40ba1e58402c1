package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (ARCHIVIST_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", os.Getenv("ARCHIVIST_URL"), &cfg.ResourceURL)
	s.setString("storage-dir", os.Getenv("ARCHIVIST_STORAGE_DIR"), &cfg.StorageDir)
	s.setString("user-agent", os.Getenv("ARCHIVIST_USER_AGENT"), &cfg.UserAgent)
	s.setString("metrics-addr", os.Getenv("ARCHIVIST_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("ARCHIVIST_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("ceiling", os.Getenv("ARCHIVIST_CEILING"), &cfg.Ceiling); err != nil {
		return err
	}
	if err := s.setInt64FromString("max-bytes", os.Getenv("ARCHIVIST_MAX_BYTES"), &cfg.MaxBytes); err != nil {
		return err
	}

	if err := s.setDuration("interval", os.Getenv("ARCHIVIST_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("fetch-timeout", os.Getenv("ARCHIVIST_FETCH_TIMEOUT"), &cfg.FetchTimeout); err != nil {
		return err
	}

	s.setBoolFromString("strict", os.Getenv("ARCHIVIST_STRICT"), &cfg.Strict)
	s.setBoolFromString("continuous", os.Getenv("ARCHIVIST_CONTINUOUS"), &cfg.Continuous)
	s.setBoolFromString("log-json", os.Getenv("ARCHIVIST_LOG_JSON"), &cfg.LogJSON)

	return nil
}
