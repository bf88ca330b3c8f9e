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

package types

import (
	"crypto"
	"crypto/ecdh"
	"crypto/elliptic"
	"fmt"
	"strings"
)

// Curve names a NIST prime curve supported for key generation.
type Curve string

const (
	CurveP256 Curve = "P-256"
	CurveP384 Curve = "P-384"
)

// ParseCurve accepts the canonical names plus the common aliases
// "p256", "secp256r1", "prime256v1", "p384" and "secp384r1".
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p-256", "p256", "secp256r1", "prime256v1":
		return CurveP256, nil
	case "p-384", "p384", "secp384r1":
		return CurveP384, nil
	default:
		return "", fmt.Errorf("%w: unknown curve %q", ErrInvalidKeySpec, s)
	}
}

// Elliptic returns the crypto/elliptic curve, or nil for an unknown curve.
func (c Curve) Elliptic() elliptic.Curve {
	switch c {
	case CurveP256:
		return elliptic.P256()
	case CurveP384:
		return elliptic.P384()
	default:
		return nil
	}
}

// ECDH returns the crypto/ecdh curve, or nil for an unknown curve.
func (c Curve) ECDH() ecdh.Curve {
	switch c {
	case CurveP256:
		return ecdh.P256()
	case CurveP384:
		return ecdh.P384()
	default:
		return nil
	}
}

// Size returns the byte length of a field element on the curve.
func (c Curve) Size() int {
	switch c {
	case CurveP256:
		return 32
	case CurveP384:
		return 48
	default:
		return 0
	}
}

// PointSize returns the length of an uncompressed X9.63 point.
func (c Curve) PointSize() int {
	if c.Size() == 0 {
		return 0
	}
	return 1 + 2*c.Size()
}

// CurveFromElliptic maps a crypto/elliptic curve back to a Curve.
func CurveFromElliptic(curve elliptic.Curve) (Curve, error) {
	if curve == nil {
		return "", fmt.Errorf("%w: nil curve", ErrInvalidKeySpec)
	}
	return ParseCurve(curve.Params().Name)
}

// SignatureAlgorithm is the fixed signature scheme bound to a key.
type SignatureAlgorithm string

const (
	// SignatureECDSAX962SHA256 hashes the message with SHA-256 and produces
	// an X9.62 DER encoded ECDSA signature.
	SignatureECDSAX962SHA256 SignatureAlgorithm = "ecdsa-signature-message-x962-sha256"

	// SignatureECDSAX962SHA384 is the P-384 counterpart using SHA-384.
	SignatureECDSAX962SHA384 SignatureAlgorithm = "ecdsa-signature-message-x962-sha384"
)

// Hash returns the message digest used by the algorithm.
func (a SignatureAlgorithm) Hash() crypto.Hash {
	switch a {
	case SignatureECDSAX962SHA256:
		return crypto.SHA256
	case SignatureECDSAX962SHA384:
		return crypto.SHA384
	default:
		return 0
	}
}

// Curve returns the only curve the algorithm is defined for.
func (a SignatureAlgorithm) Curve() Curve {
	switch a {
	case SignatureECDSAX962SHA256:
		return CurveP256
	case SignatureECDSAX962SHA384:
		return CurveP384
	default:
		return ""
	}
}

// CipherAlgorithm is the fixed integrated encryption scheme bound to a key.
type CipherAlgorithm string

const (
	// CipherECIESX963SHA256AESGCM is ephemeral ECDH, ANSI X9.63 KDF with
	// SHA-256 and AES-128-GCM, wire compatible with the platform
	// eciesEncryptionStandardX963SHA256AESGCM algorithm.
	CipherECIESX963SHA256AESGCM CipherAlgorithm = "ecies-encryption-standard-x963-sha256-aesgcm"

	// CipherECIESX963SHA384AESGCM is the P-384 counterpart using SHA-384
	// and AES-256-GCM.
	CipherECIESX963SHA384AESGCM CipherAlgorithm = "ecies-encryption-standard-x963-sha384-aesgcm"
)

// Hash returns the digest used by the X9.63 key derivation.
func (a CipherAlgorithm) Hash() crypto.Hash {
	switch a {
	case CipherECIESX963SHA256AESGCM:
		return crypto.SHA256
	case CipherECIESX963SHA384AESGCM:
		return crypto.SHA384
	default:
		return 0
	}
}

// KeySize returns the AES key length in bytes: 16 for 256-bit curves and
// 32 for larger ones.
func (a CipherAlgorithm) KeySize() int {
	switch a {
	case CipherECIESX963SHA256AESGCM:
		return 16
	case CipherECIESX963SHA384AESGCM:
		return 32
	default:
		return 0
	}
}

// Curve returns the only curve the algorithm is defined for.
func (a CipherAlgorithm) Curve() Curve {
	switch a {
	case CipherECIESX963SHA256AESGCM:
		return CurveP256
	case CipherECIESX963SHA384AESGCM:
		return CurveP384
	default:
		return ""
	}
}

// KeySpec fixes the curve and the operations a key pair supports. The
// algorithms are chosen when the key is created and are not negotiable at
// call time.
type KeySpec struct {
	Curve     Curve              `json:"curve" yaml:"curve"`
	Signature SignatureAlgorithm `json:"signature,omitempty" yaml:"signature,omitempty"`
	Cipher    CipherAlgorithm    `json:"cipher,omitempty" yaml:"cipher,omitempty"`
}

// SigningKeySpec returns a spec for an ECDSA signing key on the curve.
func SigningKeySpec(curve Curve) KeySpec {
	spec := KeySpec{Curve: curve}
	switch curve {
	case CurveP256:
		spec.Signature = SignatureECDSAX962SHA256
	case CurveP384:
		spec.Signature = SignatureECDSAX962SHA384
	}
	return spec
}

// EncryptionKeySpec returns a spec for an ECIES encryption key on the curve.
func EncryptionKeySpec(curve Curve) KeySpec {
	spec := KeySpec{Curve: curve}
	switch curve {
	case CurveP256:
		spec.Cipher = CipherECIESX963SHA256AESGCM
	case CurveP384:
		spec.Cipher = CipherECIESX963SHA384AESGCM
	}
	return spec
}

// DualUseKeySpec returns a spec for a key that both signs and decrypts.
func DualUseKeySpec(curve Curve) KeySpec {
	spec := SigningKeySpec(curve)
	spec.Cipher = EncryptionKeySpec(curve).Cipher
	return spec
}

// CanSign reports whether the key spec carries a signature algorithm.
func (s KeySpec) CanSign() bool {
	return s.Signature != ""
}

// CanEncrypt reports whether the key spec carries a cipher algorithm.
func (s KeySpec) CanEncrypt() bool {
	return s.Cipher != ""
}

// Validate checks the curve, the algorithms and that each algorithm is
// defined for the curve.
func (s KeySpec) Validate() error {
	if s.Curve.Size() == 0 {
		return fmt.Errorf("%w: unknown curve %q", ErrInvalidKeySpec, s.Curve)
	}
	if !s.CanSign() && !s.CanEncrypt() {
		return fmt.Errorf("%w: no signature or cipher algorithm", ErrInvalidKeySpec)
	}
	if s.CanSign() {
		if s.Signature.Hash() == 0 {
			return fmt.Errorf("%w: unknown signature algorithm %q", ErrInvalidKeySpec, s.Signature)
		}
		if s.Signature.Curve() != s.Curve {
			return fmt.Errorf("%w: %s is not defined for %s", ErrInvalidKeySpec, s.Signature, s.Curve)
		}
	}
	if s.CanEncrypt() {
		if s.Cipher.KeySize() == 0 {
			return fmt.Errorf("%w: unknown cipher algorithm %q", ErrInvalidKeySpec, s.Cipher)
		}
		if s.Cipher.Curve() != s.Curve {
			return fmt.Errorf("%w: %s is not defined for %s", ErrInvalidKeySpec, s.Cipher, s.Curve)
		}
	}
	return nil
}

// String returns a human readable summary of the key spec.
func (s KeySpec) String() string {
	var ops []string
	if s.CanSign() {
		ops = append(ops, string(s.Signature))
	}
	if s.CanEncrypt() {
		ops = append(ops, string(s.Cipher))
	}
	return fmt.Sprintf("EC %s [%s]", s.Curve, strings.Join(ops, ", "))
}
