package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the recorder.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("archivist: invalid configuration")

	// ErrAlreadyRunning is returned when Run is called on a running session.
	ErrAlreadyRunning = errors.New("archivist: already running")

	// ErrNotRunning is returned for an operation that needs a running session.
	ErrNotRunning = errors.New("archivist: not running")

	// ErrSessionStopped is returned when Run is called on a stopped session.
	// A stopped session cannot be restarted; create a new one.
	ErrSessionStopped = errors.New("archivist: session stopped")

	// ErrStoreClosed is returned by a store after Close.
	ErrStoreClosed = errors.New("archivist: store closed")

	// ErrNonIncreasingID is returned when a snapshot would not extend the
	// store's strictly increasing identity sequence.
	ErrNonIncreasingID = errors.New("archivist: snapshot id not increasing")
)

// FetchError reports a failed fetch. The session decides whether it is fatal.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Store operations reported in StoreError.
const (
	OpWrite = "write"
	OpEvict = "evict"
)

// StoreError reports a failed persistence operation.
type StoreError struct {
	Op  string
	ID  StoredID
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Published reports whether the snapshot itself became visible before the
// failure. Only eviction failures happen after publication.
func (e *StoreError) Published() bool {
	return e.Op == OpEvict
}
