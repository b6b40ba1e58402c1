package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/pkg/log"
)

const (
	snapshotExt = ".json"
	tempPrefix  = ".snap-"
)

var snapshotName = regexp.MustCompile(`^snap-(\d{8,})\.json$`)

// SnapshotFileName returns the on-disk name of a snapshot.
func SnapshotFileName(id domain.StoredID) string {
	return id.String() + snapshotExt
}

// ParseSnapshotFileName extracts the identity from a published snapshot
// file name. Temp files and unrelated files are rejected.
func ParseSnapshotFileName(name string) (domain.StoredID, bool) {
	m := snapshotName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return domain.StoredID(n), true
}

// SnapshotStore implements ports.Store with one file per snapshot in a
// single directory. A snapshot is written to a hidden temp file, synced and
// renamed into place, so readers only ever see complete files. The file's
// modification time records when the snapshot was captured.
type SnapshotStore struct {
	dir     string
	ceiling int
	logger  log.Logger

	mu       sync.Mutex
	retained []domain.StoredID
	hasLast  bool
	last     domain.StoredID
	closed   bool

	// Replaced in tests to inject failures.
	rename func(oldpath, newpath string) error
	remove func(name string) error
}

// OpenSnapshotStore prepares dir for writing. Stale temp files from an
// interrupted writer are removed and any published snapshots are adopted as
// retained, so later Puts must continue above the highest existing id.
func OpenSnapshotStore(dir string, ceiling int, logger log.Logger) (*SnapshotStore, error) {
	if ceiling < 1 {
		return nil, fmt.Errorf("%w: retention ceiling must be at least 1, got %d", domain.ErrInvalidConfig, ceiling)
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	s := &SnapshotStore{
		dir:     dir,
		ceiling: ceiling,
		logger:  logger,
		rename:  os.Rename,
		remove:  os.Remove,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(name, tempPrefix) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn("failed to remove stale temp file", log.String("file", name), log.Err(err))
			} else {
				logger.Debug("removed stale temp file", log.String("file", name))
			}
			continue
		}
		if id, ok := ParseSnapshotFileName(name); ok {
			s.retained = append(s.retained, id)
		}
	}
	slices.Sort(s.retained)
	if n := len(s.retained); n > 0 {
		s.hasLast = true
		s.last = s.retained[n-1]
		logger.Info("adopted existing snapshots",
			log.String("dir", dir),
			log.Int("count", n),
			log.String("last", s.last.String()),
		)
	}
	return s, nil
}

// Path returns the file path of a snapshot.
func (s *SnapshotStore) Path(id domain.StoredID) string {
	return filepath.Join(s.dir, SnapshotFileName(id))
}

// Put publishes the snapshot and then evicts the oldest retained snapshots
// until at most ceiling remain. An eviction failure is reported with
// Op == domain.OpEvict; the new snapshot is published in that case.
func (s *SnapshotStore) Put(ctx context.Context, snap domain.Snapshot) (domain.StoredID, error) {
	id := snap.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, &domain.StoreError{Op: domain.OpWrite, ID: id, Err: domain.ErrStoreClosed}
	}
	if s.hasLast && id <= s.last {
		return 0, &domain.StoreError{
			Op:  domain.OpWrite,
			ID:  id,
			Err: fmt.Errorf("%w: %s after %s", domain.ErrNonIncreasingID, id, s.last),
		}
	}

	if err := s.writeAtomic(SnapshotFileName(id), snap.Data, snap.CapturedAt); err != nil {
		return 0, &domain.StoreError{Op: domain.OpWrite, ID: id, Err: err}
	}
	s.retained = append(s.retained, id)
	s.hasLast = true
	s.last = id

	for len(s.retained) > s.ceiling {
		oldest := s.retained[0]
		err := s.remove(s.Path(oldest))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return id, &domain.StoreError{Op: domain.OpEvict, ID: oldest, Err: err}
		}
		s.retained = s.retained[1:]
		s.logger.Debug("evicted snapshot", log.String("id", oldest.String()))
	}
	return id, nil
}

// List returns the retained identities, oldest first.
func (s *SnapshotStore) List(ctx context.Context) ([]domain.StoredID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.retained), nil
}

// Close makes later Puts fail with domain.ErrStoreClosed. Published
// snapshots are untouched.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// writeAtomic writes data to a temp file in the store directory, syncs it
// and renames it to name. The file's modification time is set to capturedAt
// unless it is zero. On any failure the temp file is removed.
func (s *SnapshotStore) writeAtomic(name string, data []byte, capturedAt time.Time) error {
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if !capturedAt.IsZero() {
		if err := os.Chtimes(tmpPath, capturedAt, capturedAt); err != nil {
			return fmt.Errorf("stamp temp file: %w", err)
		}
	}
	if err := s.rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	published = true

	if err := syncDir(s.dir); err != nil {
		s.logger.Warn("failed to sync snapshot dir", log.String("dir", s.dir), log.Err(err))
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// CapturedAt returns the capture time of the snapshot published at path.
func CapturedAt(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ListSnapshots returns the published snapshot identities in dir, sorted.
// A missing directory yields an empty list.
func ListSnapshots(dir string) ([]domain.StoredID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []domain.StoredID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := ParseSnapshotFileName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
