package ports

import (
	"context"

	"github.com/vatplayback/archivist/internal/domain"
)

// Store persists snapshots and enforces a retention ceiling.
type Store interface {
	// Put writes the snapshot atomically and returns its identity.
	// Either the snapshot becomes fully visible or nothing does.
	// After a successful write the oldest retained snapshot is evicted if
	// the ceiling is exceeded. Failures are reported as *domain.StoreError.
	Put(ctx context.Context, snap domain.Snapshot) (domain.StoredID, error)

	// List returns the retained identities in ascending order.
	List(ctx context.Context) ([]domain.StoredID, error)
}
