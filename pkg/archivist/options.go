package archivist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures optional behavior of a Recorder.
type Option func(*options)

type options struct {
	httpClient   HTTPClient
	fetcher      Fetcher
	clock        Clock
	logger       Logger
	eventHandler EventHandler
	registerer   prometheus.Registerer
	sessionID    string
}

// WithHTTPClient sets the HTTP client used by the default fetcher.
// If not provided, a client with the configured fetch timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithFetcher replaces the HTTP fetcher entirely. ResourceURL is then only
// recorded in the session manifest.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithClock sets the time source of the recording loop.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for recorder events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetrics registers recorder metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithSessionID overrides the generated session id, and with it the name of
// the session directory.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}
