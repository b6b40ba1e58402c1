package app

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/pkg/manifest"
)

type sessionFixture struct {
	fetcher   *fakeFetcher
	store     *memStore
	manifests *memManifests
	clock     *instantClock
	observer  *recordingObserver
	session   *Session
}

func newFixture(t *testing.T, cfg SessionConfig) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		fetcher:   &fakeFetcher{errs: map[int]error{}},
		store:     newMemStore(cfg.Ceiling),
		manifests: &memManifests{},
		clock:     newInstantClock(),
		observer:  &recordingObserver{},
	}
	s, err := NewSession(cfg, f.fetcher, f.store, f.manifests, f.clock, &mockLogger{}, f.observer)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	f.session = s
	return f
}

func ids(n ...uint64) []domain.StoredID {
	out := make([]domain.StoredID, len(n))
	for i, v := range n {
		out[i] = domain.StoredID(v)
	}
	return out
}

func TestNewSession_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  SessionConfig
	}{
		{"zero ceiling", SessionConfig{Ceiling: 0, Interval: time.Second}},
		{"negative ceiling", SessionConfig{Ceiling: -1, Interval: time.Second}},
		{"zero interval", SessionConfig{Ceiling: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.cfg, &fakeFetcher{}, newMemStore(1), nil, nil, nil, nil)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("NewSession() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := NewSession(SessionConfig{Ceiling: 1, Interval: time.Second}, nil, newMemStore(1), nil, nil, nil, nil); err == nil {
		t.Error("NewSession() without fetcher succeeded")
	}
}

func TestSession_CeilingReached(t *testing.T) {
	f := newFixture(t, SessionConfig{ID: "s1", Ceiling: 3, Interval: 100 * time.Millisecond})

	summary, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Reason != domain.ReasonCeilingReached {
		t.Errorf("reason = %q, want %q", summary.Reason, domain.ReasonCeilingReached)
	}
	if summary.Count != 3 {
		t.Errorf("count = %d, want 3", summary.Count)
	}
	if !slices.Equal(summary.Retained, ids(0, 1, 2)) {
		t.Errorf("retained = %v, want [0 1 2]", summary.Retained)
	}
	if last, ok := summary.LastID(); !ok || last != 2 {
		t.Errorf("LastID() = %v, %v; want 2, true", last, ok)
	}
	if f.session.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", f.session.State())
	}

	// Two waits separate three ticks; the final tick stops without waiting.
	delays := f.clock.Delays()
	if len(delays) != 2 {
		t.Fatalf("waits = %d, want 2", len(delays))
	}
	for _, d := range delays {
		if d != 100*time.Millisecond {
			t.Errorf("wait = %s, want 100ms", d)
		}
	}
}

func TestSession_RunningBelowCeiling(t *testing.T) {
	const n = 3
	f := newFixture(t, SessionConfig{Ceiling: 10, Interval: time.Millisecond})

	reached := make(chan struct{})
	release := make(chan struct{})
	f.fetcher.hook = func(call int) {
		if call == n {
			close(reached)
			<-release
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan domain.Summary, 1)
	go func() {
		summary, _ := f.session.Run(ctx)
		done <- summary
	}()

	<-reached
	if f.session.State() != StateRunning {
		t.Errorf("state = %v, want Running", f.session.State())
	}
	retained, _ := f.store.List(context.Background())
	if !slices.Equal(retained, ids(0, 1, 2)) {
		t.Errorf("retained = %v, want [0 1 2]", retained)
	}

	cancel()
	close(release)
	summary := <-done

	// The in-flight fetch completes and is stored despite cancellation.
	if summary.Count != n+1 {
		t.Errorf("count = %d, want %d", summary.Count, n+1)
	}
	if summary.Reason != domain.ReasonCancelled {
		t.Errorf("reason = %q, want cancelled", summary.Reason)
	}
}

func TestSession_CancelAfterSecondSnapshot(t *testing.T) {
	f := newFixture(t, SessionConfig{Ceiling: 3, Interval: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.afterPut = func(id domain.StoredID) {
		if id == 1 {
			cancel()
		}
	}

	summary, err := f.session.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v, cancellation is a normal stop", err)
	}
	if summary.Reason != domain.ReasonCancelled {
		t.Errorf("reason = %q, want cancelled", summary.Reason)
	}
	if summary.Count != 2 {
		t.Errorf("count = %d, want 2", summary.Count)
	}
	if !slices.Equal(summary.Retained, ids(0, 1)) {
		t.Errorf("retained = %v, want [0 1]", summary.Retained)
	}
	if f.fetcher.Calls() != 2 {
		t.Errorf("fetches = %d, want 2", f.fetcher.Calls())
	}
}

func TestSession_StoreFailure(t *testing.T) {
	f := newFixture(t, SessionConfig{Ceiling: 3, Interval: 100 * time.Millisecond})
	diskFull := errors.New("no space left on device")
	f.store.failOn[2] = &domain.StoreError{Op: domain.OpWrite, ID: 2, Err: diskFull}

	summary, err := f.session.Run(context.Background())
	if !errors.Is(err, diskFull) {
		t.Fatalf("Run() error = %v, want wrapped disk error", err)
	}
	if summary.Reason != domain.ReasonStoreFatal {
		t.Errorf("reason = %q, want %q", summary.Reason, domain.ReasonStoreFatal)
	}
	if summary.Count != 2 {
		t.Errorf("count = %d, want 2", summary.Count)
	}
	if !slices.Equal(summary.Retained, ids(0, 1)) {
		t.Errorf("retained = %v, want [0 1]", summary.Retained)
	}
	if f.observer.storeErrs != 1 {
		t.Errorf("store errors observed = %d, want 1", f.observer.storeErrs)
	}
}

func TestSession_EvictFailureCountsPublishedSnapshot(t *testing.T) {
	f := newFixture(t, SessionConfig{Ceiling: 3, Interval: time.Millisecond})
	f.store.failOn[1] = &domain.StoreError{Op: domain.OpEvict, ID: 1, Err: errors.New("permission denied")}

	summary, err := f.session.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want store failure")
	}
	if summary.Count != 2 {
		t.Errorf("count = %d, want 2", summary.Count)
	}
}

func TestSession_FetchErrorPolicy(t *testing.T) {
	t.Run("recoverable", func(t *testing.T) {
		f := newFixture(t, SessionConfig{Ceiling: 3, Interval: time.Millisecond})
		f.fetcher.errs[1] = errUpstream

		summary, err := f.session.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.Reason != domain.ReasonCeilingReached {
			t.Errorf("reason = %q, want ceiling-reached", summary.Reason)
		}
		if summary.FetchErrors != 1 {
			t.Errorf("fetch errors = %d, want 1", summary.FetchErrors)
		}
		if f.fetcher.Calls() != 4 {
			t.Errorf("fetches = %d, want 4", f.fetcher.Calls())
		}
		// Failed fetches do not consume a sequence number.
		if !slices.Equal(f.store.PutIDs(), ids(0, 1, 2)) {
			t.Errorf("stored ids = %v, want [0 1 2]", f.store.PutIDs())
		}
	})

	t.Run("strict", func(t *testing.T) {
		f := newFixture(t, SessionConfig{Ceiling: 3, Interval: time.Millisecond, StrictFetch: true})
		f.fetcher.errs[1] = errUpstream

		summary, err := f.session.Run(context.Background())
		if !errors.Is(err, errUpstream) {
			t.Fatalf("Run() error = %v, want upstream error", err)
		}
		if summary.Reason != domain.ReasonFetchFatal {
			t.Errorf("reason = %q, want %q", summary.Reason, domain.ReasonFetchFatal)
		}
		if summary.Count != 1 {
			t.Errorf("count = %d, want 1", summary.Count)
		}
	})
}

func TestSession_StopIsIdempotent(t *testing.T) {
	clock := newBlockingClock()
	observer := &recordingObserver{}
	s, err := NewSession(SessionConfig{Ceiling: 5, Interval: time.Hour},
		&fakeFetcher{}, newMemStore(5), nil, clock, &mockLogger{}, observer)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		<-clock.waiting
		s.Stop()
		s.Stop()
	}()

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	s.Stop()

	if summary.Reason != domain.ReasonCancelled {
		t.Errorf("reason = %q, want cancelled", summary.Reason)
	}
	if summary.Count != 1 {
		t.Errorf("count = %d, want 1", summary.Count)
	}
	if got := observer.StoppedCount(); got != 1 {
		t.Errorf("stopped transitions = %d, want 1", got)
	}

	if _, err := s.Run(context.Background()); !errors.Is(err, domain.ErrSessionStopped) {
		t.Errorf("second Run() error = %v, want ErrSessionStopped", err)
	}
}

func TestSession_StopBeforeRun(t *testing.T) {
	f := newFixture(t, SessionConfig{Ceiling: 3, Interval: time.Millisecond})
	f.session.Stop()

	summary, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reason != domain.ReasonCancelled || summary.Count != 0 {
		t.Errorf("summary = %+v, want cancelled with count 0", summary)
	}
	if f.fetcher.Calls() != 0 {
		t.Errorf("fetches = %d, want 0", f.fetcher.Calls())
	}
	if _, ok := summary.LastID(); ok {
		t.Error("LastID() reported a snapshot for an empty session")
	}
}

func TestSession_NewSessionStartsAtZero(t *testing.T) {
	cfg := SessionConfig{Ceiling: 2, Interval: time.Millisecond}
	first := newFixture(t, cfg)
	if _, err := first.session.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	second := newFixture(t, cfg)
	if _, err := second.session.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(second.store.PutIDs(), ids(0, 1)) {
		t.Errorf("second session ids = %v, want [0 1]", second.store.PutIDs())
	}
}

func TestSession_ContinuousKeepsRollingWindow(t *testing.T) {
	f := newFixture(t, SessionConfig{Ceiling: 2, Interval: time.Millisecond, Continuous: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.afterPut = func(id domain.StoredID) {
		if id == 4 {
			cancel()
		}
	}

	summary, err := f.session.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Count != 5 {
		t.Errorf("count = %d, want 5", summary.Count)
	}
	if !slices.Equal(summary.Retained, ids(3, 4)) {
		t.Errorf("retained = %v, want [3 4]", summary.Retained)
	}
}

func TestSession_WritesManifest(t *testing.T) {
	f := newFixture(t, SessionConfig{
		ID:          "20250301T120000Z-abcd1234",
		ResourceURL: "https://example.test/feed.json",
		Ceiling:     2,
		Interval:    15 * time.Second,
	})

	if _, err := f.session.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	saved := f.manifests.Saved()
	if len(saved) != 2 {
		t.Fatalf("manifest saves = %d, want 2", len(saved))
	}
	if saved[0].Status != manifest.StatusRunning {
		t.Errorf("first status = %q, want running", saved[0].Status)
	}
	last := saved[1]
	if last.Status != manifest.StatusStopped || !last.Stopped() {
		t.Errorf("final status = %q, want stopped", last.Status)
	}
	if last.Reason != string(domain.ReasonCeilingReached) || last.Count != 2 {
		t.Errorf("final manifest = %+v", last)
	}
	if last.IntervalMS != 15000 || last.SessionID != "20250301T120000Z-abcd1234" {
		t.Errorf("final manifest = %+v", last)
	}
}

func TestSession_ManifestFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, SessionConfig{Ceiling: 1, Interval: time.Millisecond})
	f.manifests.err = errors.New("read-only file system")

	summary, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reason != domain.ReasonCeilingReached {
		t.Errorf("reason = %q, want ceiling-reached", summary.Reason)
	}
}

func TestSession_ObserverSeesEveryStore(t *testing.T) {
	f := newFixture(t, SessionConfig{Ceiling: 4, Interval: time.Millisecond})

	if _, err := f.session.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(f.observer.stored, ids(0, 1, 2, 3)) {
		t.Errorf("observed = %v, want [0 1 2 3]", f.observer.stored)
	}
	events := f.observer.Transitions()
	if len(events) != 2 || events[1].reason != string(domain.ReasonCeilingReached) {
		t.Errorf("transitions = %+v", events)
	}
}
