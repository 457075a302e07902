package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/contre95/navidrop/src/music"
	"github.com/google/uuid"
)

const tempExt = ".mp3"

// TempStore keeps staged uploads in a flat directory addressed by opaque ids.
type TempStore struct {
	root    string
	maxSize int64
}

// NewTempStore creates the root directory if needed and returns a store rooted there.
func NewTempStore(root string, maxSize int64) (*TempStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve temp store root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create temp store root %s: %w", abs, err)
	}
	return &TempStore{root: filepath.Clean(abs), maxSize: maxSize}, nil
}

// Root returns the absolute store directory.
func (s *TempStore) Root() string {
	return s.root
}

// Stage writes r into a fresh file and returns its id. Partial files are removed on failure.
func (s *TempStore) Stage(ctx context.Context, r io.Reader) (string, error) {
	id := uuid.New().String() + tempExt
	path := filepath.Join(s.root, id)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	// Read one byte past the limit so oversize input is detectable.
	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("failed to write temp file: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("failed to close temp file: %w", closeErr)
	case written > s.maxSize:
		err = fmt.Errorf("%w (%d bytes)", music.ErrTooLarge, s.maxSize)
	case ctx.Err() != nil:
		err = ctx.Err()
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("failed to remove partial temp file", "path", path, "error", rmErr)
		}
		return "", err
	}

	if !s.Exists(id) {
		return "", fmt.Errorf("temp file %s missing after write", id)
	}
	slog.Debug("Staged temp file", "id", id, "bytes", written)
	return id, nil
}

// Resolve maps an id to its absolute path. Anything that would land outside the root is refused.
func (s *TempStore) Resolve(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("resolve %q: %w", id, music.ErrContainment)
	}
	path, err := filepath.Abs(filepath.Join(s.root, id))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", id, music.ErrContainment)
	}
	if !strings.HasPrefix(filepath.Clean(path), s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("resolve %q: %w", id, music.ErrContainment)
	}
	return path, nil
}

// Exists reports whether id names a regular file inside the store.
func (s *TempStore) Exists(id string) bool {
	path, err := s.Resolve(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes a staged file. Removing an already missing file is not an error.
func (s *TempStore) Remove(id string) error {
	path, err := s.Resolve(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file %s: %w", id, err)
	}
	return nil
}

// Sweep deletes regular files older than maxAge and returns how many were removed.
// Individual failures are logged and skipped, so running it twice is harmless.
func (s *TempStore) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		slog.Warn("temp sweep could not list directory", "root", s.root, "error", err)
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Already gone, probably a concurrent sweep.
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("temp sweep failed to remove file", "path", path, "error", err)
			}
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Temp sweep removed stale files", "removed", removed, "max_age", maxAge)
	}
	return removed
}
