package archivist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vatplayback/archivist/internal/adapters/fs"
	httpAdapter "github.com/vatplayback/archivist/internal/adapters/http"
	"github.com/vatplayback/archivist/internal/app"
	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/internal/metrics"
	"github.com/vatplayback/archivist/internal/ports"
	"github.com/vatplayback/archivist/pkg/log"
	"github.com/vatplayback/archivist/pkg/manifest"
)

// sessionTimeLayout prefixes session ids so directory names sort by start time.
const sessionTimeLayout = "20060102T150405Z"

// NewSessionID returns "<UTC start time>-<8 hex chars>".
func NewSessionID(start time.Time) string {
	return start.UTC().Format(sessionTimeLayout) + "-" + uuid.NewString()[:8]
}

// Recorder records one session of snapshots into its own directory.
// Use New() to create an instance and Run() to record. A Recorder runs once.
type Recorder struct {
	config  Config
	id      string
	dir     string
	store   *fs.SnapshotStore
	session *app.Session
	logger  Logger
}

// New creates a Recorder with the given configuration. It creates the
// session directory and opens the snapshot store; no fetch happens until Run.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid
// or the session directory already exists.
func New(cfg Config, opts ...Option) (*Recorder, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.clock == nil {
		o.clock = ports.SystemClock{}
	}

	id := o.sessionID
	if id == "" {
		id = NewSessionID(o.clock.Now())
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: session id %q is not a valid directory name", domain.ErrInvalidConfig, id)
	}
	dir := filepath.Join(cfg.StorageDir, id)

	fetcher := o.fetcher
	if fetcher == nil {
		f, err := httpAdapter.NewFetcher(httpAdapter.FetcherConfig{
			URL:       cfg.ResourceURL,
			Timeout:   cfg.FetchTimeout,
			MaxBytes:  cfg.MaxBytes,
			UserAgent: cfg.UserAgent,
		}, o.httpClient, o.logger)
		if err != nil {
			return nil, err
		}
		fetcher = f
	}

	var observers app.Observers
	if o.eventHandler != nil {
		observers = append(observers, eventEmitterWrapper{handler: o.eventHandler})
	}
	if o.registerer != nil {
		observers = append(observers, metrics.NewObserver(o.registerer))
	}

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: session %q already exists in %s", domain.ErrInvalidConfig, id, cfg.StorageDir)
		}
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	store, err := fs.OpenSnapshotStore(dir, cfg.Ceiling, o.logger)
	if err != nil {
		_ = os.Remove(dir)
		return nil, fmt.Errorf("open store: %w", err)
	}

	session, err := app.NewSession(app.SessionConfig{
		ID:          id,
		ResourceURL: cfg.ResourceURL,
		Ceiling:     cfg.Ceiling,
		Interval:    cfg.Interval,
		StrictFetch: cfg.FetchPolicy == FetchStrict,
		Continuous:  cfg.Continuous,
	}, fetcher, store, manifest.NewFileRepository(dir), o.clock, o.logger, observers)
	if err != nil {
		_ = store.Close()
		_ = os.Remove(dir)
		return nil, err
	}

	return &Recorder{
		config:  cfg,
		id:      id,
		dir:     dir,
		store:   store,
		session: session,
		logger:  o.logger,
	}, nil
}

// Run records until the ceiling is reached, ctx is cancelled, Stop is
// called, or a fatal error occurs. Cancellation yields a nil error. Fatal
// stops return the summary together with an error wrapping the cause.
// A call made while another is recording returns ErrAlreadyRunning and
// leaves that recording untouched; a call after it returns ErrSessionStopped.
func (r *Recorder) Run(ctx context.Context) (Summary, error) {
	summary, err := r.session.Run(ctx)
	if errors.Is(err, domain.ErrAlreadyRunning) || errors.Is(err, domain.ErrSessionStopped) {
		// Rejected: the store belongs to the call that is recording.
		return summary, err
	}
	if cerr := r.store.Close(); cerr != nil {
		r.logger.Warn("failed to close store", log.Err(cerr))
	}
	return summary, err
}

// Stop requests a graceful stop. Safe to call any number of times from any
// goroutine.
func (r *Recorder) Stop() {
	r.session.Stop()
}

// Status returns the current lifecycle state.
func (r *Recorder) Status() State {
	return convertState(r.session.State())
}

// SessionID returns the id of the recorded session.
func (r *Recorder) SessionID() string {
	return r.id
}

// SessionDir returns the directory holding the snapshots and the manifest.
func (r *Recorder) SessionDir() string {
	return r.dir
}

// SnapshotPath returns the file path of a stored snapshot.
func (r *Recorder) SnapshotPath(id StoredID) string {
	return r.store.Path(id)
}
