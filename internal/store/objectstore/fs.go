// Package objectstore implements store.ObjectStore on the local filesystem
// (or a bucket mount). Writes go through a temp file and an atomic rename
// so readers never observe a half-written object.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"farmgate/internal/store"
)

// FS is a filesystem-backed object store rooted at Root. BaseURL is
// prepended to keys when building viewer URLs; when empty, file:// URLs
// are produced.
type FS struct {
	Root    string
	BaseURL string
}

// New creates the root directory if needed and returns the store.
func New(root, baseURL string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	return &FS{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Get implements store.ObjectStore.
func (f *FS) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Put implements store.ObjectStore. The content type is ignored by the
// filesystem backend; it exists for parity with bucket-backed stores.
func (f *FS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".farmgate-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp object: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp object: %w", err)
	}
	return nil
}

// Exists implements store.ObjectStore.
func (f *FS) Exists(ctx context.Context, key string) (bool, error) {
	path, err := f.path(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return true, nil
}

// URL implements store.ObjectStore.
func (f *FS) URL(key string) string {
	if f.BaseURL != "" {
		return f.BaseURL + "/" + key
	}
	return "file://" + filepath.Join(f.Root, filepath.FromSlash(key))
}

// path maps a key to a filesystem path, rejecting traversal outside Root.
func (f *FS) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(f.Root, clean), nil
}
