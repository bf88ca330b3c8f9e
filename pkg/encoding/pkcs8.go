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

// Package encoding converts key material between its in-memory form and
// the byte formats the key store persists or exports: PKCS#8 (optionally
// passcode encrypted), PKIX, PEM and the raw uncompressed X9.63 point.
package encoding

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// EncodePKCS8 encodes a private key to ASN.1 DER PKCS#8. A non-empty
// password produces a PBES2 encrypted structure.
func EncodePKCS8(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	der, err := pkcs8.MarshalPrivateKey(privateKey, password, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}
	return der, nil
}

// DecodePKCS8 decodes ASN.1 DER PKCS#8 data. Encrypted data requires the
// password it was encrypted with; a wrong password yields ErrInvalidPassword.
func DecodePKCS8(data []byte, password []byte) (crypto.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	key, err := pkcs8.ParsePKCS8PrivateKey(data, password)
	if err != nil {
		if len(password) > 0 && isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("%w: failed to parse PKCS#8: %v", ErrInvalidData, err)
	}

	privKey, ok := key.(crypto.PrivateKey)
	if !ok || privKey == nil {
		return nil, ErrInvalidPrivateKey
	}
	return privKey, nil
}

// DecodeECPrivateKeyPKCS8 is DecodePKCS8 restricted to EC keys.
func DecodeECPrivateKeyPKCS8(data []byte, password []byte) (*ecdsa.PrivateKey, error) {
	key, err := DecodePKCS8(data, password)
	if err != nil {
		return nil, err
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected EC key, got %T", ErrInvalidPrivateKey, key)
	}
	return ecKey, nil
}

// EncodePublicKeyPKIX encodes a public key to ASN.1 DER SubjectPublicKeyInfo.
func EncodePublicKeyPKIX(publicKey crypto.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}

	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKIX public key: %w", err)
	}
	return der, nil
}

// DecodePublicKeyPKIX decodes ASN.1 DER SubjectPublicKeyInfo.
func DecodePublicKeyPKIX(data []byte) (crypto.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	pubKey, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse PKIX public key: %v", ErrInvalidData, err)
	}
	return pubKey, nil
}

// isPasswordError reports whether err is one of the messages youmark/pkcs8
// produces when decryption yields garbage.
func isPasswordError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"incorrect password",
		"asn1: structure error",
		"tags don't match",
		"invalid padding",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
