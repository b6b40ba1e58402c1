package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/pkg/log"
	"github.com/vatplayback/archivist/pkg/manifest"
)

// mockLogger implements log.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...log.Field) {}
func (mockLogger) Info(msg string, fields ...log.Field)  {}
func (mockLogger) Warn(msg string, fields ...log.Field)  {}
func (mockLogger) Error(msg string, fields ...log.Field) {}

// instantClock fires every wait immediately and records requested delays.
type instantClock struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

func newInstantClock() *instantClock {
	return &instantClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *instantClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// blockingClock never fires; waits end only through cancellation or Stop.
type blockingClock struct {
	waiting chan struct{}
	once    sync.Once
}

func newBlockingClock() *blockingClock {
	return &blockingClock{waiting: make(chan struct{})}
}

func (c *blockingClock) Now() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func (c *blockingClock) After(d time.Duration) <-chan time.Time {
	c.once.Do(func() { close(c.waiting) })
	return make(chan time.Time)
}

// fakeFetcher returns a payload per call; errs[i] fails call i.
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	errs  map[int]error
	hook  func(call int)
}

func (f *fakeFetcher) Fetch(ctx context.Context) (domain.Payload, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err, ok := f.errs[call]; ok {
		return domain.Payload{}, err
	}
	return domain.Payload{Data: []byte(`{"call":` + string(rune('0'+call%10)) + `}`), ContentType: "application/json"}, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory store with FIFO retention.
type memStore struct {
	mu       sync.Mutex
	ceiling  int
	retained []domain.StoredID
	ids      []domain.StoredID
	failOn   map[domain.StoredID]error
	afterPut func(id domain.StoredID)
}

func newMemStore(ceiling int) *memStore {
	return &memStore{ceiling: ceiling, failOn: map[domain.StoredID]error{}}
}

func (s *memStore) Put(ctx context.Context, snap domain.Snapshot) (domain.StoredID, error) {
	id := snap.ID()
	s.mu.Lock()
	if err, ok := s.failOn[id]; ok {
		s.mu.Unlock()
		return 0, err
	}
	if n := len(s.ids); n > 0 && id <= s.ids[n-1] {
		s.mu.Unlock()
		return 0, &domain.StoreError{Op: domain.OpWrite, ID: id, Err: domain.ErrNonIncreasingID}
	}
	s.ids = append(s.ids, id)
	s.retained = append(s.retained, id)
	for len(s.retained) > s.ceiling {
		s.retained = s.retained[1:]
	}
	hook := s.afterPut
	s.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return id, nil
}

func (s *memStore) List(ctx context.Context) ([]domain.StoredID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StoredID(nil), s.retained...), nil
}

func (s *memStore) PutIDs() []domain.StoredID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StoredID(nil), s.ids...)
}

// memManifests records every saved manifest.
type memManifests struct {
	mu    sync.Mutex
	saved []manifest.Manifest
	err   error
}

func (m *memManifests) Save(ctx context.Context, mf manifest.Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, mf)
	return nil
}

func (m *memManifests) Saved() []manifest.Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]manifest.Manifest(nil), m.saved...)
}

// recordingObserver tracks events for assertions.
type recordingObserver struct {
	mu          sync.Mutex
	transitions []stateChangeEvent
	stored      []domain.StoredID
	fetchErrs   int
	storeErrs   int
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (o *recordingObserver) OnStateChange(previous, current State, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, stateChangeEvent{previous, current, reason})
}

func (o *recordingObserver) OnSnapshotStored(id domain.StoredID, bytes int, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stored = append(o.stored, id)
}

func (o *recordingObserver) OnFetchError(err error, fatal bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetchErrs++
}

func (o *recordingObserver) OnStoreError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.storeErrs++
}

func (o *recordingObserver) Transitions() []stateChangeEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]stateChangeEvent(nil), o.transitions...)
}

func (o *recordingObserver) StoppedCount() int {
	n := 0
	for _, ev := range o.Transitions() {
		if ev.current == StateStopped {
			n++
		}
	}
	return n
}

var errUpstream = errors.New("upstream unavailable")
