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

// Package signing signs messages with stored keys and verifies X9.62 DER
// ECDSA signatures against key handles or exported public key bytes.
package signing

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-seckey/pkg/encoding"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/metrics"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// Signature is an X9.62 DER encoded ECDSA signature.
type Signature []byte

// PrivateKey is a key handle that can produce a signer, such as
// *keychain.KeyPair.
type PrivateKey interface {
	ID() types.KeyID
	Spec() types.KeySpec
	Backend() types.BackendType
	Signer(ctx context.Context) (crypto.Signer, error)
}

// VerifyingKey is a public key with its algorithm, such as
// *keychain.KeyPair or *PublicKey.
type VerifyingKey interface {
	Spec() types.KeySpec
	Public() *ecdsa.PublicKey
}

// Service signs and verifies messages.
//
// Thread-safe: Yes.
type Service struct {
	random io.Reader
	logger *logging.Logger
}

// Config configures a Service.
type Config struct {
	// Rand is the nonce source for software signing. Defaults to crypto/rand.
	Rand io.Reader

	// Logger defaults to logging.DefaultLogger.
	Logger *logging.Logger
}

// NewService creates a signing service. A nil config uses the defaults.
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

// Sign hashes message with the key's signature hash and signs the digest.
// Signatures are randomized: signing the same message twice yields
// different signatures that both verify.
func (s *Service) Sign(ctx context.Context, key PrivateKey, message []byte) (Signature, error) {
	spec := key.Spec()
	if !spec.CanSign() {
		return nil, fmt.Errorf("%w: %s has no signature algorithm", ErrUnsupportedKey, key.ID())
	}

	timer := metrics.NewTimer(metrics.OpSign, key.Backend().String())
	sig, err := s.sign(ctx, key, spec, message)
	timer.ObserveError(err, signErrorType(err))
	if err != nil {
		s.logger.Debug("sign failed", "id", key.ID(), "error", err)
		return nil, err
	}
	return sig, nil
}

func (s *Service) sign(ctx context.Context, key PrivateKey, spec types.KeySpec, message []byte) (Signature, error) {
	signer, err := key.Signer(ctx)
	if err != nil {
		if errors.Is(err, ErrUnsupportedKey) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	hash := spec.Signature.Hash()
	h := hash.New()
	h.Write(message)

	sig, err := signer.Sign(s.random, h.Sum(nil), hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature of message by key. A
// mismatched signature returns false without error. Errors are limited to
// ErrMalformedSignature for a signature that is not a DER SEQUENCE of two
// INTEGERs and ErrUnsupportedKey for a key that cannot verify.
//
// The DER framing is parsed strictly. A modified byte inside r or s yields
// false, but damage to a tag or length byte yields ErrMalformedSignature
// rather than false.
func (s *Service) Verify(key VerifyingKey, message []byte, sig Signature) (bool, error) {
	timer := metrics.NewTimer(metrics.OpVerify, "public")
	ok, err := verify(key, message, sig)
	timer.Observe(err)
	return ok, err
}

func verify(key VerifyingKey, message []byte, sig Signature) (bool, error) {
	spec := key.Spec()
	if !spec.CanSign() {
		return false, fmt.Errorf("%w: no signature algorithm", ErrUnsupportedKey)
	}
	pub := key.Public()
	if pub == nil {
		return false, fmt.Errorf("%w: no public key", ErrUnsupportedKey)
	}
	curve, err := types.CurveFromElliptic(pub.Curve)
	if err != nil || curve != spec.Signature.Curve() {
		return false, fmt.Errorf("%w: public key is not on %s", ErrUnsupportedKey, spec.Signature.Curve())
	}

	r, sv, err := parseSignature(sig)
	if err != nil {
		return false, err
	}

	h := spec.Signature.Hash().New()
	h.Write(message)
	return ecdsa.Verify(pub, h.Sum(nil), r, sv), nil
}

// parseSignature decodes the DER structure SEQUENCE { r INTEGER, s INTEGER }
// strictly: no trailing data, minimal integer encodings.
func parseSignature(sig []byte) (r, s *big.Int, err error) {
	r, s = new(big.Int), new(big.Int)
	var inner cryptobyte.String
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, ErrMalformedSignature
	}
	return r, s, nil
}

// PublicKey is a verification-only key built from exported public bytes.
type PublicKey struct {
	spec types.KeySpec
	pub  *ecdsa.PublicKey
}

// NewPublicKey parses an uncompressed X9.63 public key for spec.
func NewPublicKey(raw []byte, spec types.KeySpec) (*PublicKey, error) {
	if !spec.CanSign() {
		return nil, fmt.Errorf("%w: no signature algorithm", ErrUnsupportedKey)
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

// Public returns the ECDSA public key.
func (k *PublicKey) Public() *ecdsa.PublicKey { return k.pub }

func signErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthenticationDenied):
		return "auth_denied"
	case errors.Is(err, ErrUnsupportedKey):
		return "unsupported_key"
	default:
		return "signing"
	}
}
