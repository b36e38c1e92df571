package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileKV persists every entry in a single JSON document. Writes go through a
// temp file and rename so a crash never leaves a half-written document.
type FileKV struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]fileEntry
	now      func() time.Time
}

type fileEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// NewFileKV opens (or creates) the document at path.
func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("storage: file driver needs a path")
	}
	f := &FileKV{
		filePath: path,
		data:     make(map[string]fileEntry),
		now:      time.Now,
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileKV) load() error {
	raw, err := os.ReadFile(f.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read %s: %w", f.filePath, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return fmt.Errorf("storage: decode %s: %w", f.filePath, err)
	}
	if f.data == nil {
		f.data = make(map[string]fileEntry)
	}
	return nil
}

// save must be called with the write lock held.
func (f *FileKV) save() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.filePath)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.filePath)
}

func (f *FileKV) expired(e fileEntry) bool {
	return !e.ExpiresAt.IsZero() && f.now().After(e.ExpiresAt)
}

func (f *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	e, ok := f.data[key]
	if !ok || f.expired(e) {
		return nil, ErrNotFound
	}
	return []byte(e.Value), nil
}

func (f *FileKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e := fileEntry{Value: string(value)}
	if ttl > 0 {
		e.ExpiresAt = f.now().Add(ttl)
	}
	f.data[key] = e
	// expired entries are dropped whenever the document is rewritten
	for k, v := range f.data {
		if f.expired(v) {
			delete(f.data, k)
		}
	}
	return f.save()
}

func (f *FileKV) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.save()
}

func (f *FileKV) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = make(map[string]fileEntry)
	return f.save()
}

func (f *FileKV) Close() error { return nil }
