package ports

import (
	"context"
	"net/http"

	"github.com/vatplayback/archivist/internal/domain"
)

// Fetcher retrieves one raw snapshot of the upstream resource.
type Fetcher interface {
	// Fetch blocks until the upstream answers or the fetcher's own timeout
	// expires. Failures should be reported as *domain.FetchError; the caller
	// decides whether they are fatal.
	Fetch(ctx context.Context) (domain.Payload, error)
}

// HTTPClient is the part of *http.Client the HTTP fetcher needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
