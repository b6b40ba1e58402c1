package archivist

import (
	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/internal/ports"
	"github.com/vatplayback/archivist/pkg/log"
)

// Re-exported domain types. Callers never need to import internal packages.
type (
	// Summary reports the outcome of a session.
	Summary = domain.Summary

	// StopReason explains why a session stopped.
	StopReason = domain.StopReason

	// StoredID identifies a persisted snapshot.
	StoredID = domain.StoredID

	// Payload is the raw result of one fetch.
	Payload = domain.Payload

	// FetchError reports a failed fetch.
	FetchError = domain.FetchError

	// StoreError reports a failed persistence operation.
	StoreError = domain.StoreError

	// Fetcher retrieves one payload per call.
	Fetcher = ports.Fetcher

	// Clock is the time source of the recording loop.
	Clock = ports.Clock

	// HTTPClient is the interface for making HTTP requests.
	// *http.Client satisfies this interface.
	HTTPClient = ports.HTTPClient

	// Logger is the structured logging interface from pkg/log.
	Logger = log.Logger
)

// Stop reasons.
const (
	ReasonCeilingReached = domain.ReasonCeilingReached
	ReasonCancelled      = domain.ReasonCancelled
	ReasonFetchFatal     = domain.ReasonFetchFatal
	ReasonStoreFatal     = domain.ReasonStoreFatal
)

// Errors returned by the public API. Check them with errors.Is.
var (
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrSessionStopped  = domain.ErrSessionStopped
	ErrStoreClosed     = domain.ErrStoreClosed
	ErrNonIncreasingID = domain.ErrNonIncreasingID
)
