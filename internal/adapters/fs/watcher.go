package fs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/pkg/log"
	"github.com/vatplayback/archivist/pkg/manifest"
)

// SnapshotFunc is called once per published snapshot, in increasing id order.
// Returning an error ends Follow with that error.
type SnapshotFunc func(id domain.StoredID, path string) error

// Follow reports the snapshots already in dir and then every snapshot
// published afterwards. It returns nil when ctx is cancelled or when the
// session manifest in dir reports that the session stopped.
func Follow(ctx context.Context, dir string, logger log.Logger, fn SnapshotFunc) error {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch before the initial scan so nothing published in between is lost.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	f := &follower{dir: dir, fn: fn, repo: manifest.NewFileRepository(dir)}
	if err := f.scan(); err != nil {
		return err
	}
	if f.sessionStopped(ctx, logger) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			switch {
			case name == manifest.FileName:
				if f.sessionStopped(ctx, logger) {
					// Pick up anything published just before the final manifest.
					return f.scan()
				}
			default:
				if _, ok := ParseSnapshotFileName(name); ok {
					if err := f.scan(); err != nil {
						return err
					}
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("snapshot watcher error", log.Err(err))
		}
	}
}

type follower struct {
	dir     string
	fn      SnapshotFunc
	repo    *manifest.FileRepository
	hasLast bool
	last    domain.StoredID
}

// scan reports every snapshot above the last one reported.
func (f *follower) scan() error {
	ids, err := ListSnapshots(f.dir)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if f.hasLast && id <= f.last {
			continue
		}
		if err := f.fn(id, filepath.Join(f.dir, SnapshotFileName(id))); err != nil {
			return err
		}
		f.hasLast = true
		f.last = id
	}
	return nil
}

func (f *follower) sessionStopped(ctx context.Context, logger log.Logger) bool {
	m, err := f.repo.Load(ctx)
	if err != nil {
		logger.Debug("manifest not readable yet", log.Err(err))
		return false
	}
	return m.Stopped()
}
