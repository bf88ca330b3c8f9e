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

// Package encryption encrypts messages to stored or exported public keys
// and decrypts them with stored private keys, using the standard X9.63
// ECIES variant with AES-GCM.
package encryption

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-seckey/pkg/crypto/ecies"
	"github.com/jeremyhahn/go-seckey/pkg/encoding"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/metrics"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// Ciphertext is an ECIES envelope: ephemeral public key, ciphertext and tag.
type Ciphertext []byte

// EncryptionKey is a public key with its algorithm, such as
// *keychain.KeyPair or *PublicKey.
type EncryptionKey interface {
	Spec() types.KeySpec
	Public() *ecdsa.PublicKey
}

// DecryptionKey is a key handle that can perform key agreement, such as
// *keychain.KeyPair.
type DecryptionKey interface {
	ID() types.KeyID
	Spec() types.KeySpec
	Backend() types.BackendType
	KeyAgreement(ctx context.Context) (types.KeyAgreement, error)
}

// Config configures a Service.
type Config struct {
	// Rand is the source for ephemeral keys. Defaults to crypto/rand.
	Rand io.Reader

	// Logger defaults to logging.DefaultLogger.
	Logger *logging.Logger
}

// Service encrypts and decrypts messages.
//
// Thread-safe: Yes.
type Service struct {
	random io.Reader
	logger *logging.Logger
}

// NewService creates an encryption service. A nil config uses the defaults.
func NewService(config *Config) *Service {
	s := &Service{random: rand.Reader, logger: logging.DefaultLogger()}
	if config != nil {
		if config.Rand != nil {
			s.random = config.Rand
		}
		if config.Logger != nil {
			s.logger = config.Logger
		}
	}
	return s
}

// Encrypt seals plaintext to key. Any plaintext, including an empty one,
// round trips through Decrypt with the matching private key.
func (s *Service) Encrypt(key EncryptionKey, plaintext []byte) (Ciphertext, error) {
	timer := metrics.NewTimer(metrics.OpEncrypt, "public")
	ct, err := s.encrypt(key, plaintext)
	timer.ObserveError(err, cipherErrorType(err))
	return ct, err
}

func (s *Service) encrypt(key EncryptionKey, plaintext []byte) (Ciphertext, error) {
	spec := key.Spec()
	if !spec.CanEncrypt() {
		return nil, fmt.Errorf("%w: no cipher algorithm", ErrUnsupportedKey)
	}
	pub := key.Public()
	if pub == nil {
		return nil, fmt.Errorf("%w: no public key", ErrUnsupportedKey)
	}
	recipient, err := encoding.ECDHPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	}

	ct, err := ecies.Encrypt(s.random, recipient, spec.Cipher, plaintext)
	if err != nil {
		if errors.Is(err, ecies.ErrInvalidKey) || errors.Is(err, ecies.ErrUnsupportedAlgorithm) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	return ct, nil
}

// Decrypt opens ciphertext with the private half of key. A tampered
// envelope or the wrong key fails with ErrAuthenticationFailed and never
// yields plaintext.
func (s *Service) Decrypt(ctx context.Context, key DecryptionKey, ciphertext Ciphertext) ([]byte, error) {
	timer := metrics.NewTimer(metrics.OpDecrypt, key.Backend().String())
	pt, err := s.decrypt(ctx, key, ciphertext)
	timer.ObserveError(err, cipherErrorType(err))
	if err != nil {
		s.logger.Debug("decrypt failed", "id", key.ID(), "error", err)
		return nil, err
	}
	return pt, nil
}

func (s *Service) decrypt(ctx context.Context, key DecryptionKey, ciphertext Ciphertext) ([]byte, error) {
	spec := key.Spec()
	if !spec.CanEncrypt() {
		return nil, fmt.Errorf("%w: %s has no cipher algorithm", ErrUnsupportedKey, key.ID())
	}

	// Reject short envelopes before challenging the user.
	if min := ecies.Overhead(spec.Cipher); len(ciphertext) < min {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedCiphertext, len(ciphertext), min)
	}

	ka, err := key.KeyAgreement(ctx)
	if err != nil {
		if errors.Is(err, ErrUnsupportedKey) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	pt, err := ecies.Decrypt(ka, spec.Cipher, ciphertext)
	switch {
	case err == nil:
		return pt, nil
	case errors.Is(err, ErrMalformedCiphertext), errors.Is(err, ErrAuthenticationFailed):
		return nil, err
	case errors.Is(err, ecies.ErrInvalidKey), errors.Is(err, ecies.ErrUnsupportedAlgorithm):
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
}

// PublicKey is an encryption-only key built from exported public bytes.
type PublicKey struct {
	spec types.KeySpec
	pub  *ecdsa.PublicKey
}

// NewPublicKey parses an uncompressed X9.63 public key for spec.
func NewPublicKey(raw []byte, spec types.KeySpec) (*PublicKey, error) {
	if !spec.CanEncrypt() {
		return nil, fmt.Errorf("%w: no cipher algorithm", ErrUnsupportedKey)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	}
	pub, err := encoding.ParsePublicKey(spec.Curve, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	}
	return &PublicKey{spec: spec, pub: pub}, nil
}

// Spec returns the key's algorithm spec.
func (k *PublicKey) Spec() types.KeySpec { return k.spec }

// Public returns the public key.
func (k *PublicKey) Public() *ecdsa.PublicKey { return k.pub }

func cipherErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthenticationDenied):
		return "auth_denied"
	case errors.Is(err, ErrAuthenticationFailed):
		return "auth_failed"
	case errors.Is(err, ErrMalformedCiphertext):
		return "malformed"
	case errors.Is(err, ErrUnsupportedKey):
		return "unsupported_key"
	default:
		return "cipher"
	}
}
