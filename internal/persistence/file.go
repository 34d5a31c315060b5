package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"crerag/internal/domain"
)

// FileStore keeps each artifact as a JSON file in a data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed persister rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the data directory.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Save writes all four artifacts. Each file is replaced atomically.
func (f *FileStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	payloads, err := encode(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	for _, name := range AllArtifacts {
		if err := ctx.Err(); err != nil {
			return &domain.PersistenceError{Op: "save", Artifact: name, Err: err}
		}
		if err := writeAtomic(f.path(name), payloads[name]); err != nil {
			return &domain.PersistenceError{Op: "save", Artifact: name, Err: err}
		}
	}
	return nil
}

// Load reads the artifacts back.
func (f *FileStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	payloads := make(map[string][]byte, len(AllArtifacts))
	for _, name := range AllArtifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f.path(name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &domain.PersistenceError{Op: "load", Artifact: name, Err: err}
		}
		payloads[name] = data
	}
	return decode(payloads)
}

func writeAtomic(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString()[:8])
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
