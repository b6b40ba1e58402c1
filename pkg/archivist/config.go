package archivist

import (
	"fmt"
	"strings"
	"time"

	httpAdapter "github.com/vatplayback/archivist/internal/adapters/http"
	"github.com/vatplayback/archivist/internal/domain"
)

// FetchPolicy decides how a failed fetch affects the session.
type FetchPolicy string

const (
	// FetchRecoverable logs a failed fetch and retries on the next tick.
	FetchRecoverable FetchPolicy = "recoverable"

	// FetchStrict stops the session on the first failed fetch.
	FetchStrict FetchPolicy = "strict"
)

// Config is the resolved configuration of one recording session.
type Config struct {
	// ResourceURL is fetched once per tick.
	ResourceURL string

	// StorageDir is the parent directory; each session writes to its own
	// subdirectory named after the session id.
	StorageDir string

	// Ceiling is both the number of snapshots after which the session stops
	// and the store's retention ceiling. Must be at least 1.
	Ceiling int

	// Interval is the delay between the end of one tick and the next.
	Interval time.Duration

	// FetchPolicy defaults to FetchRecoverable.
	FetchPolicy FetchPolicy

	// Continuous records until cancelled, keeping the newest Ceiling snapshots.
	Continuous bool

	// FetchTimeout bounds a single fetch. Default: 10s.
	FetchTimeout time.Duration

	// MaxBytes caps the size of one payload. Default: 64MB.
	MaxBytes int64

	// UserAgent sent with each request.
	UserAgent string
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.FetchPolicy == "" {
		c.FetchPolicy = FetchRecoverable
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = httpAdapter.DefaultTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = httpAdapter.DefaultMaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = httpAdapter.DefaultUserAgent
	}
}

// Validate returns an error wrapping ErrInvalidConfig when c cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ResourceURL) == "" {
		return fmt.Errorf("%w: resource URL is required", domain.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.StorageDir) == "" {
		return fmt.Errorf("%w: storage dir is required", domain.ErrInvalidConfig)
	}
	if c.Ceiling < 1 {
		return fmt.Errorf("%w: ceiling must be at least 1, got %d", domain.ErrInvalidConfig, c.Ceiling)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", domain.ErrInvalidConfig, c.Interval)
	}
	switch c.FetchPolicy {
	case "", FetchRecoverable, FetchStrict:
	default:
		return fmt.Errorf("%w: unknown fetch policy %q", domain.ErrInvalidConfig, c.FetchPolicy)
	}
	return nil
}
