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

package encoding

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"fmt"

	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// MarshalPublicKey returns the uncompressed X9.63 encoding of an EC public
// key: 0x04 || X || Y, each coordinate padded to the field size.
func MarshalPublicKey(pub *ecdsa.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, ErrInvalidPublicKey
	}
	raw, err := pub.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return raw, nil
}

// ParsePublicKey parses an uncompressed X9.63 point on the given curve.
// Compressed points, wrong lengths and off-curve points are rejected.
func ParsePublicKey(curve types.Curve, raw []byte) (*ecdsa.PublicKey, error) {
	ec := curve.Elliptic()
	if ec == nil {
		return nil, fmt.Errorf("%w: unsupported curve %q", ErrInvalidPublicKey, curve)
	}
	if len(raw) != curve.PointSize() {
		return nil, fmt.Errorf("%w: %d bytes, expected %d for %s", ErrInvalidPublicKey, len(raw), curve.PointSize(), curve)
	}

	pub, err := ecdsa.ParseUncompressedPublicKey(ec, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// ECDHPublicKey converts an EC public key for use with crypto/ecdh.
func ECDHPublicKey(pub *ecdsa.PublicKey) (*ecdh.PublicKey, error) {
	if pub == nil {
		return nil, ErrInvalidPublicKey
	}
	key, err := pub.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return key, nil
}
