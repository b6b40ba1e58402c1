package ports

import (
	"context"

	"github.com/vatplayback/archivist/pkg/manifest"
)

// ManifestRepository persists the manifest describing a session.
// Implementations should write atomically (temp file, then rename).
type ManifestRepository interface {
	Save(ctx context.Context, m manifest.Manifest) error
}
