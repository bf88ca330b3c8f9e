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

// Package memory provides an in-memory implementation of storage.Backend.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-seckey/pkg/storage"
)

// Storage is a thread-safe map backed storage.Backend. Values are copied
// on the way in and on the way out.
type Storage struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New creates a new in-memory storage backend.
func New() storage.Backend {
	return &Storage{
		data: make(map[string][]byte),
	}
}

// Get retrieves a copy of the value for the given key.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	value, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Put stores a copy of value. With opts.NoOverwrite an existing key yields
// storage.ErrAlreadyExists.
func (s *Storage) Put(key string, value []byte, opts *storage.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	if key == "" {
		return storage.ErrInvalidID
	}

	if opts != nil && opts.NoOverwrite {
		if _, exists := s.data[key]; exists {
			return storage.ErrAlreadyExists
		}
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	s.data[key] = valueCopy
	return nil
}

// Delete removes the key. Returns storage.ErrNotFound if it does not exist.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}

	delete(s.data, key)
	return nil
}

// List returns all keys with the given prefix in sorted order.
func (s *Storage) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Exists checks if a key exists in storage.
func (s *Storage) Exists(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, storage.ErrClosed
	}

	_, exists := s.data[key]
	return exists, nil
}

// Close drops all data. Subsequent calls return storage.ErrClosed;
// closing twice is allowed.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}
