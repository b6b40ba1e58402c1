package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				ResourceURL: "https://example.test/feed.json",
				Ceiling:     10,
				Interval:    "30s",
				Strict:      &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				ResourceURL: "https://example.test/feed.json",
				Ceiling:     10,
				Interval:    30 * time.Second,
				Strict:      true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				StorageDir: "/config/recordings",
				Ceiling:    50,
			},
			changed: map[string]bool{"storage-dir": true},
			initial: Config{
				StorageDir: "/flag/recordings",
				Ceiling:    5,
			},
			expected: Config{
				StorageDir: "/flag/recordings", // unchanged because flag was set
				Ceiling:    50,
			},
		},
		{
			name:       "integer milliseconds interval",
			fileConfig: FileConfig{IntervalMS: 15000},
			changed:    map[string]bool{},
			initial:    Config{},
			expected:   Config{Interval: 15 * time.Second},
		},
		{
			name:       "string interval wins over milliseconds",
			fileConfig: FileConfig{Interval: "1m", IntervalMS: 15000},
			changed:    map[string]bool{},
			initial:    Config{},
			expected:   Config{Interval: time.Minute},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{FetchTimeout: "soon"},
			changed:    map[string]bool{},
			initial:    Config{},
			wantErr:    true,
		},
		{
			name: "handles all field types correctly",
			fileConfig: FileConfig{
				ResourceURL:  "http://localhost:8080/feed",
				StorageDir:   "/data",
				Ceiling:      3,
				Interval:     "100ms",
				FetchTimeout: "5s",
				MaxBytes:     1024,
				UserAgent:    "test-agent",
				Strict:       &falseVal,
				Continuous:   &trueVal,
				MetricsAddr:  ":9100",
				LogLevel:     "debug",
				LogJSON:      &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{Strict: true},
			expected: Config{
				ResourceURL:  "http://localhost:8080/feed",
				StorageDir:   "/data",
				Ceiling:      3,
				Interval:     100 * time.Millisecond,
				FetchTimeout: 5 * time.Second,
				MaxBytes:     1024,
				UserAgent:    "test-agent",
				Strict:       false,
				Continuous:   true,
				MetricsAddr:  ":9100",
				LogLevel:     "debug",
				LogJSON:      true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyFileConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyFileConfig() unexpected error: %v", err)
				return
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
url = "https://example.test/feed.json"
storage_dir = "/tmp/recordings"
ceiling = 3
interval_ms = 100
strict = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.ResourceURL != "https://example.test/feed.json" {
		t.Errorf("ResourceURL = %v", fc.ResourceURL)
	}
	if fc.StorageDir != "/tmp/recordings" {
		t.Errorf("StorageDir = %v, want /tmp/recordings", fc.StorageDir)
	}
	if fc.Ceiling != 3 {
		t.Errorf("Ceiling = %v, want 3", fc.Ceiling)
	}
	if fc.IntervalMS != 100 {
		t.Errorf("IntervalMS = %v, want 100", fc.IntervalMS)
	}
	if fc.Strict == nil || *fc.Strict != true {
		t.Errorf("Strict = %v, want true", fc.Strict)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
url = "https://example.test"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestSaveFileConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.StorageDir = "/srv/archivist"
	cfg.Continuous = true
	if err := SaveFileConfig(path, cfg, false); err != nil {
		t.Fatalf("SaveFileConfig() error = %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	var loaded Config
	if err := ApplyFileConfig(&loaded, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}
	if loaded != cfg {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}

	if err := SaveFileConfig(path, cfg, false); err == nil {
		t.Error("SaveFileConfig() overwrote an existing file without overwrite")
	}
	if err := SaveFileConfig(path, cfg, true); err != nil {
		t.Errorf("SaveFileConfig(overwrite) error = %v", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".archivist") {
		t.Errorf("DefaultConfigPath() = %v, should contain .archivist", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
