// Package checkpoint persists and resumes tailer file offsets. The file
// store is the system of record per spec; an optional Mongo-backed mirror
// adds fleet-wide observability but never gates resumption.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Store is a file-based offset checkpoint, one sidecar file per
// (key, class) pair under dir. A Mirror may be attached for best-effort
// cross-host visibility.
type Store struct {
	dir string
	mu  sync.Mutex

	Mirror *MongoMirror
}

// NewStore creates a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string, class byte) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%c.offset", key, class))
}

// Load reads the persisted offset. ok is false when no checkpoint exists
// yet (fresh start).
func (s *Store) Load(key string, class byte) (offset int64, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key, class))
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint: read %s/%c: %w", key, class, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint: parse %s/%c: %w", key, class, err)
	}
	return n, true, nil
}

// Save persists offset via write-then-rename so a crash mid-write never
// corrupts the sidecar file. Spec §5 notes atomic write-then-rename is not
// strictly required for correctness (replay is harmless), but it costs
// nothing and avoids truncated offset files on a full disk.
func (s *Store) Save(key string, class byte, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key, class)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(offset, 10)), 0o644); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("checkpoint: rename %s: %w", tmp, err)
	}

	if s.Mirror != nil {
		s.Mirror.Upsert(key, class, offset)
	}
	return nil
}
