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

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// storeError maps a backend lookup failure onto the key store taxonomy.
func (ks *KeyStore) storeError(id types.KeyID, err error) error {
	switch {
	case errors.Is(err, backend.ErrKeyNotFound):
		return fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	case errors.Is(err, backend.ErrClosed):
		return ErrClosed
	case errors.Is(err, backend.ErrStoreCorrupted):
		ks.logger.Warn("corrupted key record", "id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrStoreAccess, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreAccess, err)
	}
}

// generationError maps a backend generation failure.
func (ks *KeyStore) generationError(id types.KeyID, err error) error {
	switch {
	case errors.Is(err, backend.ErrInvalidCredential):
		return fmt.Errorf("%w: %w", ErrAuthenticationDenied, err)
	case errors.Is(err, backend.ErrStorage), errors.Is(err, backend.ErrStoreCorrupted):
		return fmt.Errorf("%w: %w", ErrStoreAccess, err)
	case errors.Is(err, backend.ErrClosed):
		return ErrClosed
	default:
		ks.logger.Debug("key generation failed", "id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
}

// useError maps a failure to obtain or exercise a private key capability.
func (ks *KeyStore) useError(id types.KeyID, err error) error {
	switch {
	case errors.Is(err, ErrAuthenticationDenied), errors.Is(err, ErrStoreAccess),
		errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrUnsupportedKey), errors.Is(err, ErrClosed):
		return err
	case errors.Is(err, backend.ErrInvalidCredential):
		return fmt.Errorf("%w: %w", ErrAuthenticationDenied, err)
	case errors.Is(err, backend.ErrNotSupported):
		return fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	case errors.Is(err, backend.ErrKeyNotFound), errors.Is(err, backend.ErrClosed),
		errors.Is(err, backend.ErrStoreCorrupted), errors.Is(err, backend.ErrStorage):
		return ks.storeError(id, err)
	default:
		return err
	}
}

// errorType labels an error for the errors_total metric.
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, ErrDeviceLocked):
		return "device_locked"
	case errors.Is(err, ErrDeviceMismatch):
		return "device_mismatch"
	case errors.Is(err, ErrStoreAccess):
		return "store_access"
	case errors.Is(err, ErrAuthenticationDenied):
		return "auth_denied"
	case errors.Is(err, ErrKeyGeneration):
		return "key_generation"
	case errors.Is(err, ErrUnsupportedKey):
		return "unsupported_key"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "internal"
	}
}
