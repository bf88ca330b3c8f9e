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

// Package keychain provides query-or-create lifecycle management for
// persisted elliptic curve key pairs.
//
// # Overview
//
// A KeyStore looks keys up by identifier and protection policy, creating
// and persisting a new key pair on the first miss. Keys are held by a
// backend chosen from the policy's storage class: software keys are kept
// as PKCS#8 in the key storage, hardware keys live in a TPM 2.0 and only
// their wrapped blobs are stored.
//
// # Protection Policies
//
// A types.Policy combines a storage class, an accessibility class and an
// authentication requirement. Hardware storage requires the
// when-unlocked-this-device-only accessibility class. Device bound keys are
// refused while the LockState reports the device locked and on any device
// other than the one that created them. Keys requiring authentication call
// the configured auth.Authenticator on generation and on every private key
// use, bounded by the AuthTimeout.
//
// # Basic Usage
//
//	sw, _ := software.NewBackend(&software.Config{KeyStorage: memory.New()})
//	ks, err := keychain.New(&keychain.Config{Software: sw})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ks.Close()
//
//	key, err := ks.GetOrCreate(ctx, "demo.key", types.DefaultPolicy(),
//	    types.SigningKeySpec(types.CurveP256))
//
// Signing and encryption live in the signing and encryption packages, which
// operate on the KeyPair handles returned here.
//
// # Errors
//
// Lookups fail with ErrKeyNotFound on a miss, ErrStoreAccess when the store
// cannot be read, is corrupted or the device state forbids access, and
// ErrKeyGeneration when the requested policy or algorithm cannot be
// created on this device. ErrAuthenticationDenied reports a declined or
// timed out challenge.
package keychain
