package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/internal/ports"
	"github.com/vatplayback/archivist/pkg/log"
)

// Defaults applied by NewFetcher for zero config values.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultMaxBytes  = 64 << 20
	DefaultUserAgent = "vatplayback-archivist"
)

var (
	// ErrPayloadTooLarge is returned when the body exceeds MaxBytes.
	ErrPayloadTooLarge = errors.New("payload exceeds size limit")

	// ErrEmptyPayload is returned for a successful response without a body.
	ErrEmptyPayload = errors.New("empty payload")
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	URL       string
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

func (c *FetcherConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Fetcher implements ports.Fetcher with an HTTP GET of a fixed URL.
type Fetcher struct {
	client ports.HTTPClient
	config FetcherConfig
	logger log.Logger
}

// NewFetcher creates an HTTP fetcher. A nil client gets a default
// *http.Client with the configured timeout.
func NewFetcher(cfg FetcherConfig, client ports.HTTPClient, logger log.Logger) (*Fetcher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("%w: resource URL is required", domain.ErrInvalidConfig)
	}
	cfg.defaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Fetcher{client: client, config: cfg, logger: logger}, nil
}

// URL returns the fetched resource URL.
func (f *Fetcher) URL() string {
	return f.config.URL
}

// Fetch retrieves the resource once. The request is bounded by the
// configured timeout even when ctx carries no deadline.
// All failures are returned as *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context) (domain.Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return domain.Payload{}, f.fail(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", f.config.UserAgent+" ("+runtime.GOOS+"/"+runtime.GOARCH+")")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Payload{}, f.fail(0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// Keep a short excerpt of the body for the log line.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Payload{}, f.fail(resp.StatusCode,
			fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return domain.Payload{}, f.fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > f.config.MaxBytes {
		return domain.Payload{}, f.fail(resp.StatusCode, fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, f.config.MaxBytes))
	}
	if len(body) == 0 {
		return domain.Payload{}, f.fail(resp.StatusCode, ErrEmptyPayload)
	}

	f.logger.Debug("fetched resource",
		log.String("url", f.config.URL),
		log.Int("status", resp.StatusCode),
		log.Int("bytes", len(body)),
	)
	return domain.Payload{Data: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

func (f *Fetcher) fail(status int, err error) error {
	return &domain.FetchError{URL: f.config.URL, StatusCode: status, Err: err}
}
