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

// Package software implements backend.Backend with keys generated in
// process and persisted as PKCS#8. Keys whose policy requires user
// authentication are stored encrypted under the user's passcode, so the
// private key cannot be loaded without a successful challenge.
package software

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/encoding"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/storage"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// materialPKCS8 is the record part holding the PKCS#8 private key.
const materialPKCS8 = "pkcs8"

// SoftwareBackend stores EC keys as PKCS#8 in a storage.Backend.
//
// Thread-safe: Yes, uses a read-write mutex for concurrent access.
type SoftwareBackend struct {
	storage storage.Backend
	random  io.Reader
	logger  *logging.Logger
	closed  bool
	mu      sync.RWMutex
}

// NewBackend creates a software backend.
//
// Example usage:
//
//	backend, err := software.NewBackend(&software.Config{
//	    KeyStorage: memory.New(),
//	})
func NewBackend(config *Config) (*SoftwareBackend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	random := config.Rand
	if random == nil {
		random = rand.Reader
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &SoftwareBackend{
		storage: config.KeyStorage,
		random:  random,
		logger:  logger.With("backend", types.BackendTypeSoftware.String()),
	}, nil
}

// Type returns the backend type.
func (b *SoftwareBackend) Type() types.BackendType {
	return types.BackendTypeSoftware
}

// Capabilities reports software key support.
func (b *SoftwareBackend) Capabilities() types.Capabilities {
	return types.Capabilities{
		HardwareBacked: false,
		Curves:         []types.Curve{types.CurveP256, types.CurveP384},
		Signing:        true,
		KeyAgreement:   true,
	}
}

// Find returns the software key stored under id.
func (b *SoftwareBackend) Find(id types.KeyID) (*backend.Key, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, backend.ErrClosed
	}

	key, _, err := backend.LoadRecord(b.storage, id, b.Type())
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Generate creates a new key pair and persists it exclusively.
func (b *SoftwareBackend) Generate(req *backend.GenerateRequest) (*backend.Key, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.ErrClosed
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	password, err := passwordFor(req.Policy, req.Credential)
	if err != nil {
		return nil, err
	}

	priv, err := ecdsa.GenerateKey(req.Spec.Curve.Elliptic(), b.random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", req.Spec.Curve, err)
	}

	der, err := encoding.EncodePKCS8(priv, password)
	if err != nil {
		return nil, err
	}

	key := backend.NewKey(req, b.Type(), &priv.PublicKey)
	if err := backend.CreateRecord(b.storage, key, backend.Material{materialPKCS8: der}); err != nil {
		return nil, err
	}

	b.logger.Debug("generated key", "id", req.ID, "ref", key.Ref, "spec", req.Spec.String())
	return key, nil
}

// Delete removes the software key stored under id.
func (b *SoftwareBackend) Delete(id types.KeyID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return backend.ErrClosed
	}
	return backend.DeleteRecord(b.storage, id, b.Type())
}

// List returns all software keys.
func (b *SoftwareBackend) List() ([]*backend.Key, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, backend.ErrClosed
	}
	return backend.ListRecords(b.storage, b.Type())
}

// Signer loads the private key and returns it as a crypto.Signer.
func (b *SoftwareBackend) Signer(key *backend.Key, cred *auth.Credential) (crypto.Signer, error) {
	if !key.Spec.CanSign() {
		return nil, fmt.Errorf("%w: key %s has no signature algorithm", backend.ErrNotSupported, key.ID)
	}
	return b.privateKey(key, cred)
}

// KeyAgreement loads the private key and returns its ECDH form.
func (b *SoftwareBackend) KeyAgreement(key *backend.Key, cred *auth.Credential) (types.KeyAgreement, error) {
	if !key.Spec.CanEncrypt() {
		return nil, fmt.Errorf("%w: key %s has no cipher algorithm", backend.ErrNotSupported, key.ID)
	}
	priv, err := b.privateKey(key, cred)
	if err != nil {
		return nil, err
	}
	ecdhKey, err := priv.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrStoreCorrupted, err)
	}
	return ecdhKey, nil
}

// Close marks the backend closed. The storage is owned by the caller.
func (b *SoftwareBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

func (b *SoftwareBackend) privateKey(key *backend.Key, cred *auth.Credential) (*ecdsa.PrivateKey, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, backend.ErrClosed
	}

	password, err := passwordFor(key.Policy, cred)
	if err != nil {
		return nil, err
	}

	material, err := backend.LoadMaterial(b.storage, key)
	if err != nil {
		return nil, err
	}
	der, ok := material[materialPKCS8]
	if !ok || len(der) == 0 {
		return nil, fmt.Errorf("%w: key %s has no PKCS#8 material", backend.ErrStoreCorrupted, key.ID)
	}

	priv, err := encoding.DecodeECPrivateKeyPKCS8(der, password)
	if err != nil {
		if errors.Is(err, encoding.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: key %s", backend.ErrInvalidCredential, key.ID)
		}
		return nil, fmt.Errorf("%w: %v", backend.ErrStoreCorrupted, err)
	}
	if !priv.PublicKey.Equal(key.Public) {
		return nil, fmt.Errorf("%w: key %s private and public halves differ", backend.ErrStoreCorrupted, key.ID)
	}
	return priv, nil
}

func validateRequest(req *backend.GenerateRequest) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", backend.ErrNotSupported)
	}
	if err := req.ID.Validate(); err != nil {
		return err
	}
	if err := req.Spec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrNotSupported, err)
	}
	if err := req.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrNotSupported, err)
	}
	if req.Policy.Storage != types.StorageSoftware {
		return fmt.Errorf("%w: software backend cannot store %s keys", backend.ErrNotSupported, req.Policy.Storage)
	}
	return nil
}

// passwordFor returns the PKCS#8 encryption password for a policy: the
// credential for protected keys and nil otherwise.
func passwordFor(policy types.Policy, cred *auth.Credential) ([]byte, error) {
	if !policy.RequiresAuth() {
		return nil, nil
	}
	password := cred.Bytes()
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: protected key requires a credential", backend.ErrInvalidCredential)
	}
	return password, nil
}
