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

package encryption

import (
	"errors"

	"github.com/jeremyhahn/go-seckey/pkg/crypto/ecies"
	"github.com/jeremyhahn/go-seckey/pkg/keychain"
)

var (
	// ErrEncryption indicates the encryption operation failed
	ErrEncryption = errors.New("encryption: encryption failed")

	// ErrDecryption indicates the private key operation behind a decryption
	// failed. Failures caused by a declined authentication challenge also
	// match ErrAuthenticationDenied.
	ErrDecryption = errors.New("encryption: decryption failed")

	// ErrMalformedCiphertext indicates an envelope shorter than an
	// ephemeral public key plus a tag
	ErrMalformedCiphertext = ecies.ErrMalformedCiphertext

	// ErrAuthenticationFailed indicates the envelope did not authenticate:
	// tampered data, a wrong key or an invalid ephemeral point
	ErrAuthenticationFailed = ecies.ErrAuthenticationFailed

	// ErrUnsupportedKey indicates the key has no cipher algorithm or its
	// public key does not match the algorithm's curve
	ErrUnsupportedKey = keychain.ErrUnsupportedKey

	// ErrAuthenticationDenied indicates the user declined or did not
	// answer the authentication challenge
	ErrAuthenticationDenied = keychain.ErrAuthenticationDenied
)
