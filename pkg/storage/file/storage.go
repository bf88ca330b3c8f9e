// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckey.
//
// go-seckey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package file provides a directory backed implementation of storage.Backend.
// Writes go through a temporary file in the target directory so readers
// never observe a partially written value, and exclusive writes are
// published with a hard link so only one writer across processes wins.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-seckey/pkg/storage"
)

const (
	defaultDirPerms = 0700
	defaultPerms    = 0600

	tempPrefix = ".tmp-"
)

// FileStorage stores each key as a file below rootDir.
type FileStorage struct {
	mu      sync.RWMutex
	rootDir string
	closed  bool
}

// New creates a FileStorage rooted at rootDir, creating the directory with
// 0700 permissions if needed.
func New(rootDir string) (storage.Backend, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file storage: root directory cannot be empty")
	}

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to resolve root directory: %w", err)
	}
	if err := os.MkdirAll(abs, defaultDirPerms); err != nil {
		return nil, fmt.Errorf("file storage: failed to create root directory: %w", err)
	}

	return &FileStorage{
		rootDir: abs,
	}, nil
}

// Get retrieves the value for the given key.
func (f *FileStorage) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path, err := f.keyToPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("file storage: failed to read key %q: %w", key, err)
	}
	return data, nil
}

// Put writes value to a temporary file and publishes it under key. With
// opts.NoOverwrite the publish fails with storage.ErrAlreadyExists when
// the key is present.
func (f *FileStorage) Put(key string, value []byte, opts *storage.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return storage.ErrClosed
	}

	path, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirPerms); err != nil {
		return fmt.Errorf("file storage: failed to create directory for key %q: %w", key, err)
	}

	tmp, err := writeTemp(dir, value, permissions(opts))
	if err != nil {
		return fmt.Errorf("file storage: failed to write key %q: %w", key, err)
	}
	defer os.Remove(tmp)

	if opts != nil && opts.NoOverwrite {
		if err := os.Link(tmp, path); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("file storage: failed to publish key %q: %w", key, err)
		}
		return nil
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("file storage: failed to publish key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Returns storage.ErrNotFound if it does not exist.
func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return storage.ErrClosed
	}

	path, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("file storage: failed to delete key %q: %w", key, err)
	}
	return nil
}

// List returns all keys with the given prefix in sorted order. Temporary
// files of in-flight writes are skipped.
func (f *FileStorage) List(prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrClosed
	}

	keys := make([]string, 0)
	err := filepath.WalkDir(f.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(f.rootDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to list keys: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Exists checks if a key exists in storage.
func (f *FileStorage) Exists(key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return false, storage.ErrClosed
	}

	path, err := f.keyToPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("file storage: failed to check key %q: %w", key, err)
	}
	return true, nil
}

// Close marks the storage closed. Files are left in place.
func (f *FileStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// keyToPath validates key and maps it below the root directory.
func (f *FileStorage) keyToPath(key string) (string, error) {
	if f.closed {
		return "", storage.ErrClosed
	}
	if err := validateStorageKey(key); err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrInvalidID, err)
	}
	return filepath.Join(f.rootDir, filepath.FromSlash(key)), nil
}

// validateStorageKey allows nested keys such as "keys/demo.key.json" but
// rejects anything that could escape the root directory.
func validateStorageKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("key contains null byte")
	}
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return fmt.Errorf("key cannot be an absolute path")
	}
	for _, elem := range strings.Split(key, "/") {
		if elem == ".." {
			return fmt.Errorf("key contains path traversal attempt")
		}
		if strings.HasPrefix(elem, tempPrefix) {
			return fmt.Errorf("key uses reserved prefix %q", tempPrefix)
		}
	}
	return nil
}

func writeTemp(dir string, value []byte, perm fs.FileMode) (string, error) {
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func permissions(opts *storage.Options) fs.FileMode {
	if opts != nil && opts.Permissions != 0 {
		return opts.Permissions
	}
	return defaultPerms
}
