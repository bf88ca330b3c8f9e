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

package kdf

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// Test vectors from the NIST CAVS ANSI X9.63 KDF component validation
// (SHA-256, 128 bit shared info and 1024 bit output).
func TestX963_KnownAnswer(t *testing.T) {
	z := mustHex(t, "96c05619d56c328ab95fe84b18264b08725b85e33fd34f08")
	info := mustHex(t, "")
	want := mustHex(t, "443024c3dae66b95e6f5670601558f71")

	got, err := X963(crypto.SHA256, z, info, 16)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	z = mustHex(t, "22518b10e70f2a3f243810ae3254139efbee04aa57c7af7d")
	info = mustHex(t, "75eef81aa3041e33b80971203d2c0c52")
	want = mustHex(t, "c498af77161cc59f2962b9a713e2b215152d139766ce34a776df11866a69bf2e"+
		"52a13d9c7c6fc878c50c5ea0bc7b00e0da2447cfd874f6cf92f30d0097111485"+
		"500c90c3af8b487872d04685d14c8d1dc8d7fa08beb0ce0ababc11f0bd496269"+
		"142d43525a78e5bc79a17f59676a5706dc54d54d4d1f0bd7e386128ec26afc21")

	got, err = X963(crypto.SHA256, z, info, 128)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestX963_MatchesManualConstruction(t *testing.T) {
	z := []byte("shared secret")
	info := []byte("shared info")

	h := sha256.New()
	h.Write(z)
	h.Write([]byte{0, 0, 0, 1})
	h.Write(info)
	block1 := h.Sum(nil)

	h.Reset()
	h.Write(z)
	h.Write([]byte{0, 0, 0, 2})
	h.Write(info)
	block2 := h.Sum(nil)

	got, err := X963(crypto.SHA256, z, info, 40)
	require.NoError(t, err)
	assert.Equal(t, append(block1, block2...)[:40], got)
}

func TestX963_Lengths(t *testing.T) {
	for _, n := range []int{1, 16, 32, 33, 48, 100} {
		got, err := X963(crypto.SHA384, []byte("z"), nil, n)
		require.NoError(t, err)
		assert.Len(t, got, n)
	}

	_, err := X963(crypto.SHA256, []byte("z"), nil, 0)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = X963(crypto.Hash(0), []byte("z"), nil, 16)
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

// RFC 5869 test case 1.
func TestHKDF_RFC5869(t *testing.T) {
	ikm := mustHex(t, "0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b")
	salt := mustHex(t, "000102030405060708090a0b0c")
	info := mustHex(t, "f0f1f2f3f4f5f6f7f8f9")
	want := mustHex(t, "3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865")

	got, err := HKDF(crypto.SHA256, ikm, salt, info, 42)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHKDF_InvalidLength(t *testing.T) {
	_, err := HKDF(crypto.SHA256, []byte("k"), nil, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = HKDF(crypto.SHA256, []byte("k"), nil, nil, 255*32+1)
	assert.ErrorIs(t, err, ErrInvalidLength)
}
