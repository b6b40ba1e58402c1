package manifest

import "time"

// Status values recorded in a manifest.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Manifest is the persisted description of one recording session.
type Manifest struct {
	SessionID   string    `json:"session_id" yaml:"session_id"`
	ResourceURL string    `json:"resource_url" yaml:"resource_url"`
	Ceiling     int       `json:"ceiling" yaml:"ceiling"`
	IntervalMS  int64     `json:"interval_ms" yaml:"interval_ms"`
	Continuous  bool      `json:"continuous,omitempty" yaml:"continuous,omitempty"`
	Status      string    `json:"status" yaml:"status"`
	Reason      string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Count       uint64    `json:"count" yaml:"count"`
	FetchErrors int       `json:"fetch_errors" yaml:"fetch_errors"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	StoppedAt   time.Time `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty"`

	// Dir is the session directory the manifest was loaded from. Not persisted.
	Dir string `json:"-" yaml:"-"`
}

// IsEmpty returns true if the manifest has not been initialized.
func (m Manifest) IsEmpty() bool {
	return m.SessionID == ""
}

// Stopped reports whether the session reached its terminal state.
func (m Manifest) Stopped() bool {
	return m.Status == StatusStopped
}
