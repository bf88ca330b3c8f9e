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
	"context"
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// KeyPair is a handle to a stored key pair. The public half is always
// available; the private half is only reachable through Signer and
// KeyAgreement, which enforce the key's protection policy on every call.
type KeyPair struct {
	store   *KeyStore
	backend backend.Backend
	key     *backend.Key
}

func newKeyPair(ks *KeyStore, be backend.Backend, key *backend.Key) *KeyPair {
	return &KeyPair{store: ks, backend: be, key: key}
}

// ID returns the key identifier.
func (kp *KeyPair) ID() types.KeyID { return kp.key.ID }

// Ref identifies the underlying key. A key deleted and recreated under the
// same identifier has a new Ref.
func (kp *KeyPair) Ref() uuid.UUID { return kp.key.Ref }

// Policy returns the protection policy the key was created with.
func (kp *KeyPair) Policy() types.Policy { return kp.key.Policy }

// Spec returns the key's curve and algorithms.
func (kp *KeyPair) Spec() types.KeySpec { return kp.key.Spec }

// Public returns the public key.
func (kp *KeyPair) Public() *ecdsa.PublicKey { return kp.key.Public }

// Created returns the creation time.
func (kp *KeyPair) Created() time.Time { return kp.key.Created }

// DeviceID returns the device the key was created on.
func (kp *KeyPair) DeviceID() string { return kp.key.DeviceID }

// Backend returns the type of backend holding the private key.
func (kp *KeyPair) Backend() types.BackendType { return kp.key.Backend }

// HardwareBacked reports whether the private key lives in secure hardware.
func (kp *KeyPair) HardwareBacked() bool {
	return kp.backend.Capabilities().HardwareBacked
}

// PublicBytes returns the uncompressed X9.63 public key.
func (kp *KeyPair) PublicBytes() []byte {
	return kp.key.PublicBytes()
}

// Signer returns a crypto.Signer for the private key. Keys requiring user
// authentication challenge the user first.
func (kp *KeyPair) Signer(ctx context.Context) (crypto.Signer, error) {
	if !kp.key.Spec.CanSign() {
		return nil, fmt.Errorf("%w: %s has no signature algorithm", ErrUnsupportedKey, kp.key.ID)
	}

	cred, err := kp.unlock(ctx, auth.OpSign)
	if err != nil {
		return nil, err
	}
	defer cred.Clear()

	s, err := kp.backend.Signer(kp.key, cred)
	if err != nil {
		return nil, kp.store.useError(kp.key.ID, err)
	}
	return &signer{signer: s, kp: kp}, nil
}

// KeyAgreement returns the ECDH capability of the private key. Keys
// requiring user authentication challenge the user first.
func (kp *KeyPair) KeyAgreement(ctx context.Context) (types.KeyAgreement, error) {
	if !kp.key.Spec.CanEncrypt() {
		return nil, fmt.Errorf("%w: %s has no cipher algorithm", ErrUnsupportedKey, kp.key.ID)
	}

	cred, err := kp.unlock(ctx, auth.OpDecrypt)
	if err != nil {
		return nil, err
	}
	defer cred.Clear()

	ka, err := kp.backend.KeyAgreement(kp.key, cred)
	if err != nil {
		return nil, kp.store.useError(kp.key.ID, err)
	}
	return &keyAgreement{agreement: ka, kp: kp}, nil
}

// unlock checks the device state and, if the policy requires it,
// authenticates the user.
func (kp *KeyPair) unlock(ctx context.Context, op auth.Operation) (*auth.Credential, error) {
	ks := kp.store
	if err := ks.checkOpen(); err != nil {
		return nil, err
	}
	if err := ks.checkAccess(kp.key); err != nil {
		return nil, err
	}
	if !kp.key.Policy.RequiresAuth() {
		return nil, nil
	}
	return ks.authenticate(ctx, kp.key.ID, op)
}

// signer translates backend failures at signing time, such as a TPM
// rejecting the auth value.
type signer struct {
	signer crypto.Signer
	kp     *KeyPair
}

func (s *signer) Public() crypto.PublicKey {
	return s.signer.Public()
}

func (s *signer) Sign(random io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	sig, err := s.signer.Sign(random, digest, opts)
	if err != nil {
		return nil, s.kp.store.useError(s.kp.key.ID, err)
	}
	return sig, nil
}

type keyAgreement struct {
	agreement types.KeyAgreement
	kp        *KeyPair
}

func (k *keyAgreement) ECDH(peer *ecdh.PublicKey) ([]byte, error) {
	z, err := k.agreement.ECDH(peer)
	if err != nil {
		return nil, k.kp.store.useError(k.kp.key.ID, err)
	}
	return z, nil
}
