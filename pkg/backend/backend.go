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

// Package backend defines the secure storage subsystem behind the key
// store. A Backend owns the private half of its keys: it generates them
// under a protection policy, persists them and hands out signing and key
// agreement capabilities without the caller ever holding the key material
// of a hardware backend.
package backend

import (
	"crypto"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// GenerateRequest describes a key to create.
type GenerateRequest struct {
	ID     types.KeyID
	Spec   types.KeySpec
	Policy types.Policy

	// DeviceID is recorded with the key so device bound keys can be
	// refused on other devices.
	DeviceID string

	// Credential protects the key when the policy requires user
	// authentication. It must be nil otherwise.
	Credential *auth.Credential
}

// Backend is a secure key storage implementation.
type Backend interface {
	// Type identifies the implementation.
	Type() types.BackendType

	// Capabilities reports what the backend supports on this device.
	Capabilities() types.Capabilities

	// Find returns the key stored under id. Returns ErrKeyNotFound when
	// no key exists or the key belongs to another backend.
	Find(id types.KeyID) (*Key, error)

	// Generate creates and persists a new key. Returns ErrKeyAlreadyExists
	// if any key is already stored under the ID, leaving it untouched.
	Generate(req *GenerateRequest) (*Key, error)

	// Delete removes the key stored under id.
	Delete(id types.KeyID) error

	// List returns all keys owned by the backend.
	List() ([]*Key, error)

	// Signer returns an ECDSA signer producing X9.62 DER signatures over a
	// digest. Returns ErrNotSupported for keys without a signature
	// algorithm and ErrInvalidCredential when cred does not unlock the key.
	Signer(key *Key, cred *auth.Credential) (crypto.Signer, error)

	// KeyAgreement returns an ECDH capability for the key. Returns
	// ErrNotSupported for keys without a cipher algorithm.
	KeyAgreement(key *Key, cred *auth.Credential) (types.KeyAgreement, error)

	// Close releases resources held by the backend.
	Close() error
}
