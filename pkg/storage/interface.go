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

// Package storage defines the raw key/value persistence used by the key
// backends. Values are opaque blobs; the backends decide their encoding.
package storage

import (
	"io/fs"
)

// Backend is a minimal key/value store.
type Backend interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Put stores the value for the given key. An existing value is
	// overwritten unless opts.NoOverwrite is set, in which case
	// ErrAlreadyExists is returned and the stored value is left untouched.
	Put(key string, value []byte, opts *Options) error

	// Delete removes the key and its value from storage.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns all keys with the given prefix in sorted order.
	List(prefix string) ([]string, error)

	// Exists checks if a key exists in storage.
	Exists(key string) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Options control a single Put.
type Options struct {
	// Permissions sets the file mode for file-based storage.
	Permissions fs.FileMode

	// NoOverwrite makes the write exclusive. Exactly one of several
	// concurrent exclusive writers to the same key succeeds, including
	// writers in other processes sharing a file store.
	NoOverwrite bool
}

// DefaultOptions returns owner-only permissions with overwrite allowed.
func DefaultOptions() *Options {
	return &Options{
		Permissions: 0600,
	}
}

// ExclusiveOptions returns owner-only permissions with NoOverwrite set.
func ExclusiveOptions() *Options {
	return &Options{
		Permissions: 0600,
		NoOverwrite: true,
	}
}
