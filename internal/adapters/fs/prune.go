package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/vatplayback/archivist/pkg/log"
	"github.com/vatplayback/archivist/pkg/manifest"
)

// PruneOptions bounds the sessions kept below a storage directory.
// Zero values disable the corresponding limit.
type PruneOptions struct {
	// KeepSessions is the number of newest sessions that are always kept.
	KeepSessions int

	// HighWatermark triggers pruning once the directory grows beyond it.
	HighWatermark int64

	// LowWatermark is the size pruning shrinks to once triggered.
	// Defaults to three quarters of HighWatermark.
	LowWatermark int64

	// DryRun reports what would be removed without removing it.
	DryRun bool
}

// PruneResult reports the outcome of PruneSessions.
type PruneResult struct {
	Removed   []string `json:"removed" yaml:"removed"`
	Freed     int64    `json:"freed_bytes" yaml:"freed_bytes"`
	Remaining int64    `json:"remaining_bytes" yaml:"remaining_bytes"`
	Kept      int      `json:"kept" yaml:"kept"`
}

type sessionDir struct {
	id   string
	dir  string
	size int64
	live bool
}

// PruneSessions removes the oldest stopped sessions below root until both
// limits in opts hold. Sessions still running are never removed. A failed
// removal is logged and skipped; the failures are returned together.
func PruneSessions(ctx context.Context, root string, opts PruneOptions, logger log.Logger) (PruneResult, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if opts.LowWatermark <= 0 || opts.LowWatermark > opts.HighWatermark {
		opts.LowWatermark = opts.HighWatermark / 4 * 3
	}

	manifests, err := manifest.ScanDir(ctx, root)
	if err != nil {
		return PruneResult{}, fmt.Errorf("scan %s: %w", root, err)
	}

	var (
		sessions []sessionDir
		total    int64
	)
	for _, m := range manifests {
		size, err := dirSize(m.Dir)
		if err != nil {
			return PruneResult{}, fmt.Errorf("size of %s: %w", m.SessionID, err)
		}
		sessions = append(sessions, sessionDir{id: m.SessionID, dir: m.Dir, size: size, live: !m.Stopped()})
		total += size
	}

	res := PruneResult{Remaining: total, Kept: len(sessions)}
	overWatermark := opts.HighWatermark > 0 && total > opts.HighWatermark

	var errs []error
	for i, s := range sessions {
		if ctx.Err() != nil {
			break
		}
		tooMany := opts.KeepSessions > 0 && res.Kept > opts.KeepSessions
		tooBig := overWatermark && res.Remaining > opts.LowWatermark
		if !tooMany && !tooBig {
			break
		}
		// The newest KeepSessions are kept even above the watermark.
		if opts.KeepSessions > 0 && len(sessions)-i <= opts.KeepSessions {
			break
		}
		if s.live {
			logger.Info("prune: skipping running session", log.String("session", s.id))
			continue
		}

		if !opts.DryRun {
			if err := os.RemoveAll(s.dir); err != nil {
				logger.Error("prune: remove failed", log.String("session", s.id), log.Err(err))
				errs = append(errs, fmt.Errorf("remove %s: %w", s.id, err))
				continue
			}
		}
		res.Removed = append(res.Removed, s.id)
		res.Freed += s.size
		res.Remaining -= s.size
		res.Kept--
	}

	if len(res.Removed) > 0 {
		logger.Info("prune completed",
			log.Int("removed", len(res.Removed)),
			log.String("freed", FormatBytes(res.Freed)),
			log.String("remaining", FormatBytes(res.Remaining)),
			log.Bool("dry_run", opts.DryRun),
		)
	}
	return res, errors.Join(errs...)
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// FormatBytes renders b with a binary unit suffix.
func FormatBytes(b int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
		GB
	)

	fb := float64(b)
	switch {
	case fb >= GB:
		return fmt.Sprintf("%.2fGiB", fb/GB)
	case fb >= MB:
		return fmt.Sprintf("%.2fMiB", fb/MB)
	case fb >= KB:
		return fmt.Sprintf("%.2fKiB", fb/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
