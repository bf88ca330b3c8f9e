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

// Package kdf implements the key derivation functions used by the key
// store: the ANSI X9.63 KDF that keys the ECIES envelope and HKDF, used to
// turn a user passcode into a hardware object authorization value.
package kdf

import (
	"crypto"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	_ "crypto/sha256"
	_ "crypto/sha512"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrInvalidLength is returned for a non-positive or oversized output length.
	ErrInvalidLength = errors.New("kdf: invalid output length")

	// ErrUnsupportedHash is returned when the hash is not linked into the binary.
	ErrUnsupportedHash = errors.New("kdf: unsupported hash")
)

// X963 derives length bytes from the shared secret z as specified by
// ANSI X9.63 section 3.6.1 (SEC 1 section 3.6.1):
//
//	K = Hash(Z || Counter1 || SharedInfo) || Hash(Z || Counter2 || SharedInfo) || ...
//
// where each counter is a 32-bit big endian integer starting at 1.
func X963(hash crypto.Hash, z, sharedInfo []byte, length int) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedHash, hash)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if uint64(length) > uint64(hash.Size())*math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d exceeds hash output limit", ErrInvalidLength, length)
	}

	out := make([]byte, 0, length+hash.Size())
	var counter [4]byte
	h := hash.New()
	for i := uint32(1); len(out) < length; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h.Reset()
		h.Write(z)
		h.Write(counter[:])
		h.Write(sharedInfo)
		out = h.Sum(out)
	}
	return out[:length], nil
}

// HKDF derives length bytes from secret using HKDF (RFC 5869) with the
// given hash, salt and context info.
func HKDF(hash crypto.Hash, secret, salt, info []byte, length int) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedHash, hash)
	}
	if length <= 0 || length > 255*hash.Size() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	key := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(hash.New, secret, salt, info), key); err != nil {
		return nil, fmt.Errorf("kdf: hkdf derivation failed: %w", err)
	}
	return key, nil
}
