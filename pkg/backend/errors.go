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

package backend

import "errors"

var (
	// ErrKeyNotFound is returned when attempting to retrieve a key that does not exist.
	ErrKeyNotFound = errors.New("backend: key not found")

	// ErrKeyAlreadyExists is returned when attempting to generate a key that already exists.
	ErrKeyAlreadyExists = errors.New("backend: key already exists")

	// ErrNotSupported is returned when a key spec, policy or operation is not
	// supported by the backend on this device.
	ErrNotSupported = errors.New("backend: operation not supported")

	// ErrInvalidCredential is returned when a protected key is used without a
	// credential or with one that does not unlock it.
	ErrInvalidCredential = errors.New("backend: invalid credential")

	// ErrStoreCorrupted is returned when a stored key record cannot be
	// decoded or lacks its key material.
	ErrStoreCorrupted = errors.New("backend: key store corrupted")

	// ErrStorage is returned when the underlying storage fails.
	ErrStorage = errors.New("backend: storage failure")

	// ErrClosed is returned when using a closed backend.
	ErrClosed = errors.New("backend: closed")
)
