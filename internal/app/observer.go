package app

import (
	"time"

	"github.com/vatplayback/archivist/internal/domain"
)

// Observer receives session events. Calls are made synchronously from the
// recording goroutine, so implementations should return quickly.
type Observer interface {
	StateEmitter

	// OnSnapshotStored is called after a snapshot was published.
	OnSnapshotStored(id domain.StoredID, bytes int, fetchDuration time.Duration)

	// OnFetchError is called for every failed fetch.
	OnFetchError(err error, fatal bool)

	// OnStoreError is called when persistence fails. It always ends the session.
	OnStoreError(err error)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) OnStateChange(previous, current State, reason string) {
	for _, ob := range o {
		ob.OnStateChange(previous, current, reason)
	}
}

func (o Observers) OnSnapshotStored(id domain.StoredID, bytes int, fetchDuration time.Duration) {
	for _, ob := range o {
		ob.OnSnapshotStored(id, bytes, fetchDuration)
	}
}

func (o Observers) OnFetchError(err error, fatal bool) {
	for _, ob := range o {
		ob.OnFetchError(err, fatal)
	}
}

func (o Observers) OnStoreError(err error) {
	for _, ob := range o {
		ob.OnStoreError(err)
	}
}
