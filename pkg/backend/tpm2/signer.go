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

package tpm2

import (
	"crypto"
	"crypto/ecdh"
	"encoding/asn1"
	"fmt"
	"io"
	"math/big"

	"github.com/google/go-tpm/tpm2"

	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// signer is a crypto.Signer whose private key stays in the TPM.
type signer struct {
	backend *Backend
	object  *object
}

// Public returns the key's public half.
func (s *signer) Public() crypto.PublicKey {
	return s.object.key.Public
}

// Sign signs digest with TPM2_Sign and returns an ASN.1 DER ECDSA
// signature. The random source is unused; the TPM supplies its own nonce.
func (s *signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	key := s.object.key
	want := key.Spec.Signature.Hash()
	if opts == nil || opts.HashFunc() != want {
		return nil, fmt.Errorf("%w: key %s signs %s digests", backend.ErrNotSupported, key.ID, want)
	}
	if len(digest) != want.Size() {
		return nil, fmt.Errorf("%w: digest is %d bytes, expected %d", backend.ErrNotSupported, len(digest), want.Size())
	}
	hashAlg, err := tpmHashAlg(want)
	if err != nil {
		return nil, err
	}

	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	loaded, err := b.load(s.object)
	if err != nil {
		return nil, err
	}
	defer b.flush(loaded.ObjectHandle)

	resp, err := tpm2.Sign{
		KeyHandle: tpm2.AuthHandle{
			Handle: loaded.ObjectHandle,
			Name:   loaded.Name,
			Auth:   tpm2.PasswordAuth(s.object.authValue),
		},
		Digest: tpm2.TPM2BDigest{
			Buffer: digest,
		},
		InScheme: tpm2.TPMTSigScheme{
			Scheme: tpm2.TPMAlgECDSA,
			Details: tpm2.NewTPMUSigScheme(
				tpm2.TPMAlgECDSA,
				&tpm2.TPMSSchemeHash{
					HashAlg: hashAlg,
				},
			),
		},
		Validation: tpm2.TPMTTKHashCheck{
			Tag:       tpm2.TPMSTHashCheck,
			Hierarchy: tpm2.TPMRHNull,
		},
	}.Execute(b.tpm)
	if err != nil {
		return nil, mapAuthError(key, fmt.Errorf("tpm2: sign: %w", err))
	}

	sig, err := resp.Signature.Signature.ECDSA()
	if err != nil {
		return nil, fmt.Errorf("tpm2: sign: %w", err)
	}

	r := new(big.Int).SetBytes(sig.SignatureR.Buffer)
	sv := new(big.Int).SetBytes(sig.SignatureS.Buffer)
	return asn1.Marshal(struct{ R, S *big.Int }{r, sv})
}

// keyAgreement computes ECDH shared secrets inside the TPM.
type keyAgreement struct {
	backend *Backend
	object  *object
}

// ECDH returns the x-coordinate of the shared point with peer, padded to
// the field size, matching crypto/ecdh.
func (k *keyAgreement) ECDH(peer *ecdh.PublicKey) ([]byte, error) {
	key := k.object.key
	if peer == nil || peer.Curve() != ecdh.P256() {
		return nil, fmt.Errorf("%w: peer key is not on %s", backend.ErrNotSupported, key.Spec.Curve)
	}

	size := types.CurveP256.Size()
	raw := peer.Bytes()
	x, y := raw[1:1+size], raw[1+size:]

	b := k.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	loaded, err := b.load(k.object)
	if err != nil {
		return nil, err
	}
	defer b.flush(loaded.ObjectHandle)

	resp, err := tpm2.ECDHZGen{
		KeyHandle: tpm2.AuthHandle{
			Handle: loaded.ObjectHandle,
			Name:   loaded.Name,
			Auth:   tpm2.PasswordAuth(k.object.authValue),
		},
		InPoint: tpm2.New2B(tpm2.TPMSECCPoint{
			X: tpm2.TPM2BECCParameter{Buffer: x},
			Y: tpm2.TPM2BECCParameter{Buffer: y},
		}),
	}.Execute(b.tpm)
	if err != nil {
		return nil, mapAuthError(key, fmt.Errorf("tpm2: ecdh: %w", err))
	}

	point, err := resp.OutPoint.Contents()
	if err != nil {
		return nil, fmt.Errorf("tpm2: ecdh: %w", err)
	}
	if len(point.X.Buffer) > size {
		return nil, fmt.Errorf("tpm2: ecdh: oversized shared point")
	}
	z := make([]byte, size)
	copy(z[size-len(point.X.Buffer):], point.X.Buffer)
	return z, nil
}

func tpmHashAlg(h crypto.Hash) (tpm2.TPMIAlgHash, error) {
	switch h {
	case crypto.SHA256:
		return tpm2.TPMAlgSHA256, nil
	case crypto.SHA384:
		return tpm2.TPMAlgSHA384, nil
	default:
		return 0, fmt.Errorf("%w: hash %s", backend.ErrNotSupported, h)
	}
}
