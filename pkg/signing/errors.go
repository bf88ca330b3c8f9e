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

package signing

import (
	"errors"

	"github.com/jeremyhahn/go-seckey/pkg/keychain"
)

var (
	// ErrSigning indicates the signing operation failed. Failures caused by
	// a declined authentication challenge also match ErrAuthenticationDenied.
	ErrSigning = errors.New("signing: operation failed")

	// ErrMalformedSignature indicates a signature that is not an X9.62 DER
	// SEQUENCE of two INTEGERs
	ErrMalformedSignature = errors.New("signing: malformed signature")

	// ErrUnsupportedKey indicates the key has no signature algorithm or
	// its public key does not match the algorithm's curve
	ErrUnsupportedKey = keychain.ErrUnsupportedKey

	// ErrAuthenticationDenied indicates the user declined or did not
	// answer the authentication challenge
	ErrAuthenticationDenied = keychain.ErrAuthenticationDenied
)
