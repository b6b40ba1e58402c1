package archivist

import (
	"time"

	"github.com/vatplayback/archivist/internal/app"
)

// State represents the lifecycle state of a Recorder.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SnapshotStoredEvent is emitted after a snapshot was published.
type SnapshotStoredEvent struct {
	ID            StoredID
	Bytes         int
	FetchDuration time.Duration
}

// FetchErrorEvent is emitted for every failed fetch.
type FetchErrorEvent struct {
	Error error
	Fatal bool
}

// StoreErrorEvent is emitted when persistence fails. The session stops.
type StoreErrorEvent struct {
	Error error
}

// EventHandler receives recorder events. Methods are called synchronously
// from the recording goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnSnapshotStored(SnapshotStoredEvent)
	OnFetchError(FetchErrorEvent)
	OnStoreError(StoreErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnSnapshotStored(SnapshotStoredEvent) {}
func (BaseEventHandler) OnFetchError(FetchErrorEvent)         {}
func (BaseEventHandler) OnStoreError(StoreErrorEvent)         {}

// eventEmitterWrapper adapts EventHandler to app.Observer.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e eventEmitterWrapper) OnSnapshotStored(id StoredID, bytes int, fetchDuration time.Duration) {
	e.handler.OnSnapshotStored(SnapshotStoredEvent{ID: id, Bytes: bytes, FetchDuration: fetchDuration})
}

func (e eventEmitterWrapper) OnFetchError(err error, fatal bool) {
	e.handler.OnFetchError(FetchErrorEvent{Error: err, Fatal: fatal})
}

func (e eventEmitterWrapper) OnStoreError(err error) {
	e.handler.OnStoreError(StoreErrorEvent{Error: err})
}

func convertState(s app.State) State {
	switch s {
	case app.StateRunning:
		return StateRunning
	case app.StateStopped:
		return StateStopped
	default:
		return StateIdle
	}
}
