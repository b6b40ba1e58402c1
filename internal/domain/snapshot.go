package domain

import (
	"fmt"
	"time"
)

// Payload is the raw result of one fetch, before the session numbers it.
type Payload struct {
	// Data holds the upstream document bytes.
	Data []byte

	// ContentType is the media type reported by the upstream, if any.
	ContentType string
}

// Snapshot is one captured unit of upstream data.
// It is created exactly once per tick and must not be mutated afterwards;
// the Data slice is shared with the store, not copied.
type Snapshot struct {
	// Seq is the session-local sequence number, starting at 0.
	Seq uint64

	// CapturedAt is when the fetch completed.
	CapturedAt time.Time

	// Data holds the upstream document bytes.
	Data []byte

	// ContentType is the media type reported by the upstream, if any.
	ContentType string
}

// NewSnapshot numbers a fetched payload.
func NewSnapshot(seq uint64, capturedAt time.Time, p Payload) Snapshot {
	return Snapshot{
		Seq:         seq,
		CapturedAt:  capturedAt,
		Data:        p.Data,
		ContentType: p.ContentType,
	}
}

// Size returns the payload length in bytes.
func (s Snapshot) Size() int {
	return len(s.Data)
}

// ID returns the identity a store derives from the sequence number.
func (s Snapshot) ID() StoredID {
	return StoredID(s.Seq)
}

// StoredID identifies a persisted snapshot. Identities are strictly
// increasing within a session, so their numeric order is capture order.
type StoredID uint64

// String renders the identity the way it appears on disk, without extension.
func (id StoredID) String() string {
	return fmt.Sprintf("snap-%08d", uint64(id))
}
