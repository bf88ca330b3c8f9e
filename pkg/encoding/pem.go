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
	"crypto"
	"encoding/pem"
)

// PEMTypePublicKey is the PKIX public key block type.
const PEMTypePublicKey = "PUBLIC KEY"

// EncodePublicKeyPEM encodes a public key as a PKIX "PUBLIC KEY" block.
func EncodePublicKeyPEM(publicKey crypto.PublicKey) ([]byte, error) {
	der, err := EncodePublicKeyPKIX(publicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: PEMTypePublicKey, Bytes: der}), nil
}

// DecodePublicKeyPEM decodes a PKIX "PUBLIC KEY" block.
func DecodePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != PEMTypePublicKey {
		return nil, ErrInvalidPEMEncoding
	}
	return DecodePublicKeyPKIX(block.Bytes)
}
