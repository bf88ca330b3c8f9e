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

package keychain

import "errors"

var (
	// ErrStoreAccess indicates the key store could not be read: storage
	// failure, a corrupted record or a device state that forbids access.
	ErrStoreAccess = errors.New("keychain: key store not accessible")

	// ErrKeyGeneration indicates a key could not be generated under the
	// requested policy and algorithm on this device.
	ErrKeyGeneration = errors.New("keychain: key generation failed")

	// ErrKeyNotFound indicates no key matches the identifier and policy.
	ErrKeyNotFound = errors.New("keychain: key not found")

	// ErrUnsupportedKey indicates the key's algorithm does not support the
	// requested operation.
	ErrUnsupportedKey = errors.New("keychain: unsupported key")

	// ErrAuthenticationDenied indicates the user declined the challenge or
	// did not answer before the timeout.
	ErrAuthenticationDenied = errors.New("keychain: authentication denied or timed out")

	// ErrDeviceLocked indicates a device bound key was used while the
	// device is locked. Always wrapped by ErrStoreAccess.
	ErrDeviceLocked = errors.New("keychain: device locked")

	// ErrDeviceMismatch indicates a device bound key was created on another
	// device. Always wrapped by ErrStoreAccess.
	ErrDeviceMismatch = errors.New("keychain: key bound to another device")

	// ErrInvalidConfig indicates the key store configuration is invalid.
	ErrInvalidConfig = errors.New("keychain: invalid configuration")

	// ErrClosed indicates the key store has been closed.
	ErrClosed = errors.New("keychain: closed")
)
