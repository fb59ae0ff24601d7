package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage implements core.Storage over a directory of state files,
// one file per entry. It is the default durable storage - the desktop
// equivalent of the browser's local storage. Files are written with
// owner-only permissions since the session entry carries the bearer
// token.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a file storage rooted at dir, creating it if
// needed. An empty dir resolves to <user config dir>/storefront.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve state directory: %w", err)
		}
		dir = filepath.Join(base, "storefront")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	return &FileStorage{dir: dir}, nil
}

// Dir returns the state directory
func (f *FileStorage) Dir() string {
	return f.dir
}

func (f *FileStorage) path(key string) string {
	// Keys are namespaced with ':' which is not filename-safe everywhere
	name := strings.ReplaceAll(key, ":", "_") + ".json"
	return filepath.Join(f.dir, name)
}

// Load reads an entry. A missing entry returns (nil, nil).
func (f *FileStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state entry %s: %w", key, err)
	}
	return data, nil
}

// Save overwrites an entry wholesale. The write goes through a temp
// file and rename so a crash mid-write never leaves a torn entry.
func (f *FileStorage) Save(ctx context.Context, key string, data []byte) error {
	target := f.path(key)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state entry %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to commit state entry %s: %w", key, err)
	}
	return nil
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (f *FileStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state entry %s: %w", key, err)
	}
	return nil
}
