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

// Package ecies implements the standard X9.63 variant of the Elliptic Curve
// Integrated Encryption Scheme with AES-GCM, byte compatible with the
// eciesEncryptionStandardX963SHA256AESGCM family of platform algorithms.
//
// Encryption:
//  1. Generate an ephemeral key pair on the recipient's curve
//  2. Z = x-coordinate of ECDH(ephemeral private, recipient public)
//  3. K = X9.63 KDF(Z, sharedInfo = ephemeral public key), 16 bytes for
//     P-256 and 32 bytes for P-384
//  4. Seal the plaintext with AES-GCM under K and a 16 byte all-zero IV
//
// The envelope is:
//
//	[ephemeral_public_key || ciphertext || tag]
//
// Where:
//   - ephemeral_public_key: uncompressed point (65/97 bytes for P-256/P-384)
//   - ciphertext: same length as the plaintext
//   - tag: 16 bytes
//
// The fixed IV is safe because K is fresh for every message.
package ecies

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-seckey/pkg/crypto/kdf"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

const (
	// ivSize is the GCM IV length used by the standard variant.
	ivSize = 16

	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

var (
	// ErrMalformedCiphertext is returned when an envelope is too short to
	// hold an ephemeral public key and a tag.
	ErrMalformedCiphertext = errors.New("ecies: malformed ciphertext")

	// ErrAuthenticationFailed is returned when the envelope does not
	// authenticate under the private key: a wrong key, a modified
	// ciphertext or tag, or an ephemeral key that is not a curve point.
	ErrAuthenticationFailed = errors.New("ecies: message authentication failed")

	// ErrUnsupportedAlgorithm is returned for an unknown cipher algorithm.
	ErrUnsupportedAlgorithm = errors.New("ecies: unsupported algorithm")

	// ErrInvalidKey is returned for a missing key or a key on the wrong curve.
	ErrInvalidKey = errors.New("ecies: invalid key")

	// ErrKeyAgreement is returned when the private key holder fails to
	// compute the shared secret.
	ErrKeyAgreement = errors.New("ecies: key agreement failed")
)

// Overhead returns the number of bytes an envelope adds to the plaintext.
func Overhead(alg types.CipherAlgorithm) int {
	return alg.Curve().PointSize() + TagSize
}

// Encrypt seals plaintext to the recipient public key. The key must be on
// the curve the algorithm is defined for.
func Encrypt(random io.Reader, recipient *ecdh.PublicKey, alg types.CipherAlgorithm, plaintext []byte) ([]byte, error) {
	if random == nil {
		return nil, fmt.Errorf("ecies: random source cannot be nil")
	}
	curve, err := ecdhCurve(alg)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: public key cannot be nil", ErrInvalidKey)
	}
	if recipient.Curve() != curve {
		return nil, fmt.Errorf("%w: public key is not on %s", ErrInvalidKey, alg.Curve())
	}

	ephemeral, err := curve.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("ecies: failed to generate ephemeral key: %w", err)
	}

	z, err := ephemeral.ECDH(recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}

	ephemeralPub := ephemeral.PublicKey().Bytes()
	aead, err := newAEAD(alg, z, ephemeralPub)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(ephemeralPub), len(ephemeralPub)+len(plaintext)+TagSize)
	copy(out, ephemeralPub)
	return aead.Seal(out, make([]byte, ivSize), plaintext, nil), nil
}

// Decrypt opens an envelope produced by Encrypt using the private half of
// the recipient key. The private key is only used through ECDH so hardware
// keys can decrypt without exposing their scalar.
func Decrypt(key types.KeyAgreement, alg types.CipherAlgorithm, envelope []byte) ([]byte, error) {
	curve, err := ecdhCurve(alg)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: private key cannot be nil", ErrInvalidKey)
	}

	pointSize := alg.Curve().PointSize()
	if len(envelope) < pointSize+TagSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d",
			ErrMalformedCiphertext, len(envelope), pointSize+TagSize)
	}

	ephemeralPub := envelope[:pointSize]
	ephemeral, err := curve.NewPublicKey(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ephemeral public key", ErrAuthenticationFailed)
	}

	z, err := key.ECDH(ephemeral)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyAgreement, err)
	}

	aead, err := newAEAD(alg, z, ephemeralPub)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, make([]byte, ivSize), envelope[pointSize:], nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func newAEAD(alg types.CipherAlgorithm, z, sharedInfo []byte) (cipher.AEAD, error) {
	key, err := kdf.X963(alg.Hash(), z, sharedInfo, alg.KeySize())
	if err != nil {
		return nil, fmt.Errorf("ecies: key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ecies: failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("ecies: failed to create GCM: %w", err)
	}
	return aead, nil
}

func ecdhCurve(alg types.CipherAlgorithm) (ecdh.Curve, error) {
	if alg.KeySize() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	return alg.Curve().ECDH(), nil
}
