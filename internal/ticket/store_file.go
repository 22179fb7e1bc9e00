package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON file per fingerprint under a configured cache
// directory so tickets survive process restarts. Writes go to a temp file
// in the same directory followed by a rename, which is atomic on POSIX
// filesystems; readers see either the old entry or the new one, never a
// torn write.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed. The directory is an
// explicit configuration value with lifecycle from process startup to
// shutdown.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(fp Fingerprint) string {
	return filepath.Join(s.dir, string(fp)+".json")
}

// Get returns ErrNotFound for missing, empty or unparseable entries. Cache
// corruption must read as a miss, never as a caller-visible failure.
func (s *FileStore) Get(_ context.Context, fp Fingerprint) (CachedTicket, error) {
	raw, err := os.ReadFile(s.path(fp))
	if err != nil {
		return CachedTicket{}, ErrNotFound
	}
	var cached CachedTicket
	if err := json.Unmarshal(raw, &cached); err != nil {
		return CachedTicket{}, ErrNotFound
	}
	if cached.Token == "" || cached.Sign == "" {
		return CachedTicket{}, ErrNotFound
	}
	return cached, nil
}

// Put overwrites the entry for the fingerprint. Last writer wins; both
// writers produce an individually valid entry.
func (s *FileStore) Put(_ context.Context, fp Fingerprint, t CachedTicket) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, string(fp)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ticket file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ticket file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ticket file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(fp)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("swap ticket file: %w", err)
	}
	return nil
}
