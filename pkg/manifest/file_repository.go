package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileName is the manifest file name inside a session directory.
const FileName = "session.json"

// FileRepository stores a Manifest as JSON in a session directory.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository for the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load reads the manifest from disk.
// Returns an empty manifest and nil error if no manifest file exists.
func (r *FileRepository) Load(ctx context.Context) (Manifest, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	m.Dir = r.dir
	return m, nil
}

// Save persists the manifest atomically (temp file, fsync, rename).
func (r *FileRepository) Save(ctx context.Context, m Manifest) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "."+FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	return os.Rename(tmpPath, r.Path())
}

// Path returns the full path to the manifest file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, FileName)
}

// ScanDir loads the manifest of every session directory directly below root,
// ordered by start time (oldest first). Directories without a manifest are
// skipped; unreadable manifests are returned as an error.
func ScanDir(ctx context.Context, root string) ([]Manifest, error) {
	ents, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Manifest
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		m, err := NewFileRepository(filepath.Join(root, e.Name())).Load(ctx)
		if err != nil {
			return nil, err
		}
		if m.IsEmpty() {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
