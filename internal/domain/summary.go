package domain

import "time"

// StopReason explains why a session stopped.
type StopReason string

const (
	// ReasonNone is the zero value while a session has not stopped.
	ReasonNone StopReason = ""

	// ReasonCeilingReached means the configured snapshot count was recorded.
	ReasonCeilingReached StopReason = "ceiling-reached"

	// ReasonCancelled means an external cancellation ended the session.
	ReasonCancelled StopReason = "cancelled"

	// ReasonFetchFatal means a fetch failed under the strict fetch policy.
	ReasonFetchFatal StopReason = "fetch-fatal-error"

	// ReasonStoreFatal means persisting a snapshot failed.
	ReasonStoreFatal StopReason = "store-fatal-error"
)

// Fatal reports whether the reason is an error termination.
func (r StopReason) Fatal() bool {
	return r == ReasonFetchFatal || r == ReasonStoreFatal
}

// Summary reports the outcome of one session.
type Summary struct {
	SessionID   string     `json:"session_id" yaml:"session_id"`
	Reason      StopReason `json:"reason" yaml:"reason"`
	Count       uint64     `json:"count" yaml:"count"`
	FetchErrors int        `json:"fetch_errors" yaml:"fetch_errors"`
	Retained    []StoredID `json:"retained" yaml:"retained"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	StoppedAt   time.Time  `json:"stopped_at" yaml:"stopped_at"`

	// Err is the cause of a fatal stop, nil otherwise.
	Err error `json:"-" yaml:"-"`
}

// LastID returns the identity of the most recently stored snapshot.
// The boolean is false when nothing was stored.
func (s Summary) LastID() (StoredID, bool) {
	if s.Count == 0 {
		return 0, false
	}
	return StoredID(s.Count - 1), true
}
