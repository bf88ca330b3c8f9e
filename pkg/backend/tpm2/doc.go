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

// Package tpm2 implements backend.Backend on a TPM 2.0.
//
// Keys are created as ECC NIST P-256 children of the Storage Root Key held
// at a persistent handle. The TPM only ever releases the wrapped private
// area, which is stored with the key record; every signature and every
// ECDH shared secret is computed inside the TPM after reloading it.
//
// Keys whose policy requires user authentication are created with an
// object auth value derived from the user's passcode, so the TPM itself
// refuses to use them without the credential.
//
// The embedded go-tpm-tools simulator is available when built with
// -tags tpm_simulator:
//
//	b, err := tpm2.NewBackend(&tpm2.Config{
//	    UseSimulator: true,
//	    KeyStorage:   memory.New(),
//	})
package tpm2
