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

// Package jwk exports key store public keys as JSON Web Keys (RFC 7517).
package jwk

import (
	"crypto"
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"github.com/jeremyhahn/go-seckey/pkg/types"
)

var (
	// ErrInvalidKey is returned for a nil key or an unsupported key type.
	ErrInvalidKey = errors.New("jwk: invalid key")

	// ErrNotPublic is returned when a parsed JWK carries private material.
	ErrNotPublic = errors.New("jwk: not a public key")
)

// Use values
const (
	UseSignature  = "sig"
	UseEncryption = "enc"
)

// FromPublicKey builds a public JWK for an EC key created under spec. The
// key ID is the RFC 7638 SHA-256 thumbprint. Signing keys carry the JOSE
// algorithm name; encryption-only keys are marked "enc".
func FromPublicKey(pub *ecdsa.PublicKey, spec types.KeySpec) (*jose.JSONWebKey, error) {
	if pub == nil {
		return nil, ErrInvalidKey
	}

	jwk := &jose.JSONWebKey{Key: pub}
	switch {
	case spec.CanSign():
		jwk.Use = UseSignature
		jwk.Algorithm = algorithmName(spec.Signature)
	case spec.CanEncrypt():
		jwk.Use = UseEncryption
	}

	kid, err := Thumbprint(jwk)
	if err != nil {
		return nil, err
	}
	jwk.KeyID = kid
	return jwk, nil
}

// Thumbprint returns the base64url RFC 7638 SHA-256 thumbprint of jwk.
func Thumbprint(jwk *jose.JSONWebKey) (string, error) {
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// Marshal builds the JWK for pub and encodes it as JSON.
func Marshal(pub *ecdsa.PublicKey, spec types.KeySpec) ([]byte, error) {
	jwk, err := FromPublicKey(pub, spec)
	if err != nil {
		return nil, err
	}
	return jwk.MarshalJSON()
}

// ParsePublicKey decodes a JSON encoded public EC JWK.
func ParsePublicKey(data []byte) (*ecdsa.PublicKey, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if !jwk.IsPublic() {
		return nil, ErrNotPublic
	}
	pub, ok := jwk.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected EC key, got %T", ErrInvalidKey, jwk.Key)
	}
	return pub, nil
}

func algorithmName(alg types.SignatureAlgorithm) string {
	switch alg {
	case types.SignatureECDSAX962SHA256:
		return string(jose.ES256)
	case types.SignatureECDSAX962SHA384:
		return string(jose.ES384)
	default:
		return ""
	}
}
