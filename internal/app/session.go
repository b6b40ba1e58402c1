package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/internal/ports"
	"github.com/vatplayback/archivist/pkg/log"
	"github.com/vatplayback/archivist/pkg/manifest"
)

// SessionConfig contains configuration for one recording session.
type SessionConfig struct {
	// ID names the session in logs and in its manifest.
	ID string

	// ResourceURL is recorded in the manifest only; fetching is the
	// Fetcher's concern.
	ResourceURL string

	// Ceiling is the number of snapshots after which the session stops.
	// The store enforces the same number as its retention ceiling.
	Ceiling int

	// Interval is the delay between the end of one tick and the next.
	Interval time.Duration

	// StrictFetch makes any fetch error fatal. By default fetch errors are
	// logged and the next tick retries.
	StrictFetch bool

	// Continuous disables the count stop condition: the session records
	// until cancelled while the store keeps a rolling window of Ceiling.
	Continuous bool
}

// Validate checks the invariants the session relies on.
func (c SessionConfig) Validate() error {
	if c.Ceiling < 1 {
		return fmt.Errorf("%w: ceiling must be at least 1, got %d", domain.ErrInvalidConfig, c.Ceiling)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", domain.ErrInvalidConfig, c.Interval)
	}
	return nil
}

// Session orchestrates the clock, fetcher and store for one recording run.
// A session runs at most once; create a new one to record again.
type Session struct {
	config    SessionConfig
	fetcher   ports.Fetcher
	store     ports.Store
	manifests ports.ManifestRepository
	clock     ports.Clock
	logger    log.Logger
	observer  Observer
	lifecycle *Lifecycle
	scheduler *Scheduler

	// Owned by the goroutine inside Run.
	seq         uint64
	fetchErrors int
	reason      domain.StopReason
	cause       error
	startedAt   time.Time
}

// NewSession creates a session in StateIdle. manifests, clock, logger and
// observer may be nil.
func NewSession(
	config SessionConfig,
	fetcher ports.Fetcher,
	store ports.Store,
	manifests ports.ManifestRepository,
	clock ports.Clock,
	logger log.Logger,
	observer Observer,
) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil || store == nil {
		return nil, errors.New("session requires a fetcher and a store")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	s := &Session{
		config:    config,
		fetcher:   fetcher,
		store:     store,
		manifests: manifests,
		clock:     clock,
		logger:    logger,
		observer:  observer,
		scheduler: NewScheduler(clock, config.Interval),
	}
	s.lifecycle = NewLifecycle(logger, observer)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.config.ID
}

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// Stop requests cancellation. The session finishes any in-flight fetch and
// store before stopping. Calling Stop more than once, or after the session
// stopped, has no further effect.
func (s *Session) Stop() {
	s.scheduler.Stop()
}

// Run records until the ceiling is reached, ctx is cancelled, Stop is
// called, or a fatal error occurs. It blocks and returns the summary of the
// run. Cancellation is a normal stop and yields a nil error; fatal stops
// return the summary together with an error wrapping the cause.
func (s *Session) Run(ctx context.Context) (domain.Summary, error) {
	if err := s.lifecycle.TransitionTo(StateRunning, "Run() called"); err != nil {
		return domain.Summary{}, err
	}

	s.startedAt = s.clock.Now()
	s.logger.Info("recording started",
		log.String("session", s.config.ID),
		log.Int("ceiling", s.config.Ceiling),
		log.Duration("interval", s.config.Interval),
		log.Bool("strict_fetch", s.config.StrictFetch),
		log.Bool("continuous", s.config.Continuous),
	)
	s.saveManifest(ctx, s.manifest(manifest.StatusRunning, time.Time{}))

	// The scheduler only ends without a reason when ctx was cancelled or
	// Stop was called.
	_ = s.scheduler.Run(ctx, s.tick)
	if s.reason == domain.ReasonNone {
		s.reason = domain.ReasonCancelled
	}

	return s.finish(ctx)
}

// tick runs one fetch-store cycle. It never observes cancellation itself:
// the fetch and store run on a context detached from ctx so a stop request
// cannot leave a half-written snapshot.
func (s *Session) tick(ctx context.Context) bool {
	opCtx := context.WithoutCancel(ctx)

	start := s.clock.Now()
	payload, err := s.fetcher.Fetch(opCtx)
	took := s.clock.Now().Sub(start)
	if err != nil {
		s.fetchErrors++
		fatal := s.config.StrictFetch
		if s.observer != nil {
			s.observer.OnFetchError(err, fatal)
		}
		if fatal {
			s.logger.Error("fetch failed", log.Err(err), log.Uint64("seq", s.seq))
			s.halt(domain.ReasonFetchFatal, err)
			return false
		}
		s.logger.Warn("fetch failed, retrying on next tick",
			log.Err(err),
			log.Uint64("seq", s.seq),
			log.Int("fetch_errors", s.fetchErrors),
		)
		return true
	}

	snap := domain.NewSnapshot(s.seq, s.clock.Now(), payload)
	id, err := s.store.Put(opCtx, snap)
	if err != nil {
		var storeErr *domain.StoreError
		if errors.As(err, &storeErr) && storeErr.Published() {
			// The snapshot is on disk; only retention failed.
			s.seq++
		}
		if s.observer != nil {
			s.observer.OnStoreError(err)
		}
		s.logger.Error("store failed", log.Err(err), log.Uint64("seq", snap.Seq))
		s.halt(domain.ReasonStoreFatal, err)
		return false
	}

	s.seq++
	if s.observer != nil {
		s.observer.OnSnapshotStored(id, snap.Size(), took)
	}
	s.logger.Debug("snapshot stored",
		log.Stringer("id", id),
		log.Int("bytes", snap.Size()),
		log.Duration("fetch", took),
	)

	if !s.config.Continuous && s.seq >= uint64(s.config.Ceiling) {
		s.halt(domain.ReasonCeilingReached, nil)
		return false
	}
	return true
}

// halt records the first stop reason and stops the clock.
func (s *Session) halt(reason domain.StopReason, cause error) {
	if s.reason != domain.ReasonNone {
		return
	}
	s.reason = reason
	s.cause = cause
	s.scheduler.Stop()
}

// finish performs the single Running -> Stopped transition and reports.
func (s *Session) finish(ctx context.Context) (domain.Summary, error) {
	s.scheduler.Stop()
	stoppedAt := s.clock.Now()

	retained, err := s.store.List(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Warn("list retained snapshots", log.Err(err))
	}

	summary := domain.Summary{
		SessionID:   s.config.ID,
		Reason:      s.reason,
		Count:       s.seq,
		FetchErrors: s.fetchErrors,
		Retained:    retained,
		StartedAt:   s.startedAt,
		StoppedAt:   stoppedAt,
		Err:         s.cause,
	}

	s.saveManifest(ctx, s.manifest(manifest.StatusStopped, stoppedAt))

	if err := s.lifecycle.TransitionTo(StateStopped, string(s.reason)); err != nil {
		s.logger.Error("failed to transition to stopped", log.Err(err))
	}

	s.logger.Info("recording stopped",
		log.String("session", s.config.ID),
		log.String("reason", string(s.reason)),
		log.Uint64("snapshots", s.seq),
		log.Int("fetch_errors", s.fetchErrors),
		log.Duration("elapsed", stoppedAt.Sub(s.startedAt)),
	)

	if s.reason.Fatal() {
		return summary, fmt.Errorf("%s: %w", s.reason, s.cause)
	}
	return summary, nil
}

func (s *Session) manifest(status string, stoppedAt time.Time) manifest.Manifest {
	m := manifest.Manifest{
		SessionID:   s.config.ID,
		ResourceURL: s.config.ResourceURL,
		Ceiling:     s.config.Ceiling,
		IntervalMS:  s.config.Interval.Milliseconds(),
		Continuous:  s.config.Continuous,
		Status:      status,
		Reason:      string(s.reason),
		Count:       s.seq,
		FetchErrors: s.fetchErrors,
		StartedAt:   s.startedAt,
		StoppedAt:   stoppedAt,
	}
	if s.cause != nil {
		m.Error = s.cause.Error()
	}
	return m
}

// saveManifest persists the manifest. Failures are logged, not fatal: the
// snapshots themselves are already durable.
func (s *Session) saveManifest(ctx context.Context, m manifest.Manifest) {
	if s.manifests == nil {
		return
	}
	if err := s.manifests.Save(context.WithoutCancel(ctx), m); err != nil {
		s.logger.Warn("failed to save session manifest", log.Err(err))
	}
}
