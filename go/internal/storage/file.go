package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore persists values as a JSON object in a single file, the
// terminal client's local profile. Every write replaces the file
// atomically.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// OpenFileStore loads path, creating parent directories as needed. A
// missing file starts empty; an unreadable one is logged and replaced.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	fsStore := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fsStore, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	if len(data) == 0 {
		return fsStore, nil
	}
	if err := json.Unmarshal(data, &fsStore.values); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("profile is corrupt, starting empty")
		fsStore.values = make(map[string]string)
	}
	return fsStore, nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	f.values[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := make(map[string]string)
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			removed[k] = v
			delete(f.values, k)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := f.flush(); err != nil {
		for k, v := range removed {
			f.values[k] = v
		}
		return err
	}
	return nil
}

// flush must be called with f.mu held
func (f *FileStore) flush() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".profile-*")
	if err != nil {
		return fmt.Errorf("failed to create temp profile: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp profile: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}
