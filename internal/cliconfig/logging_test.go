package cliconfig

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Config{LogLevel: "warn", LogJSON: true}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	l.Info().Msg("hidden")
	l.Warn().Str("session", "s1").Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "visible" || entry["session"] != "s1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(Config{LogLevel: "chatty"}, &bytes.Buffer{}); err == nil {
		t.Error("NewLogger() accepted an unknown level")
	}
}
