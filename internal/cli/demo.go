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

package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// Demo key IDs and messages
const (
	DemoSigningKeyID    = "mySecureEnclaveKeyTag"
	DemoEncryptionKeyID = "my.private.key.tag"
	DemoSignedMessage   = "this is a signed message"
	DemoSecretMessage   = "this is a sensitive message"
)

// demoResult is the outcome of runDemo.
type demoResult struct {
	SigningKey     string `json:"signing_key" yaml:"signing_key"`
	SigningBackend string `json:"signing_backend" yaml:"signing_backend"`
	Signature      string `json:"signature" yaml:"signature"`
	Verified       bool   `json:"verified" yaml:"verified"`
	EncryptionKey  string `json:"encryption_key" yaml:"encryption_key"`
	Ciphertext     string `json:"ciphertext" yaml:"ciphertext"`
	Decrypted      string `json:"decrypted" yaml:"decrypted"`
}

var (
	errDemoUnverified = errors.New("demo: signature did not verify")
	errDemoMismatch   = errors.New("demo: decrypted message does not match")
)

func newDemoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the sign and encrypt walkthrough",
		Long: `Create or fetch an authentication protected signing key (in the TPM
when hardware is available), sign and verify a message, then create or
fetch an encryption key and round trip a message through it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			result, err := runDemo(cmd.Context(), s)
			if err != nil {
				return err
			}

			printer := opts.printer(cmd.OutOrStdout())
			if printer.format != OutputFormatText {
				return printer.print(result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signing key:  %s (%s)\n", result.SigningKey, result.SigningBackend)
			fmt.Fprintf(out, "Signature:    %s\n", result.Signature)
			fmt.Fprintf(out, "Verified:     %t\n", result.Verified)
			fmt.Fprintf(out, "Cipher key:   %s\n", result.EncryptionKey)
			fmt.Fprintf(out, "Ciphertext:   %s\n", result.Ciphertext)
			fmt.Fprintf(out, "Decrypted:    %s\n", result.Decrypted)
			return nil
		},
	}
}

// demoSigningPolicy keeps the signing key in hardware when there is any,
// otherwise in software with the same device binding and authentication.
func demoSigningPolicy(hardware bool) types.Policy {
	if hardware {
		return types.HardwarePolicy(types.AuthBiometryOrPasscode)
	}
	return types.Policy{
		Storage:       types.StorageSoftware,
		Accessibility: types.AccessibleWhenUnlockedThisDeviceOnly,
		Auth:          types.AuthBiometryOrPasscode,
	}
}

func runDemo(ctx context.Context, s *session) (*demoResult, error) {
	signingKey, err := s.keys.GetOrCreate(ctx, DemoSigningKeyID,
		demoSigningPolicy(s.keys.HardwareAvailable()), types.SigningKeySpec(types.CurveP256))
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	sig, err := s.signer.Sign(ctx, signingKey, []byte(DemoSignedMessage))
	if err != nil {
		return nil, err
	}
	verified, err := s.signer.Verify(signingKey, []byte(DemoSignedMessage), sig)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, errDemoUnverified
	}

	encryptionKey, err := s.keys.GetOrCreate(ctx, DemoEncryptionKeyID,
		types.DefaultPolicy(), types.EncryptionKeySpec(types.CurveP256))
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	ct, err := s.cipher.Encrypt(encryptionKey, []byte(DemoSecretMessage))
	if err != nil {
		return nil, err
	}
	pt, err := s.cipher.Decrypt(ctx, encryptionKey, ct)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pt, []byte(DemoSecretMessage)) {
		return nil, errDemoMismatch
	}

	return &demoResult{
		SigningKey:     signingKey.ID().String(),
		SigningBackend: signingKey.Backend().String(),
		Signature:      base64.StdEncoding.EncodeToString(sig),
		Verified:       verified,
		EncryptionKey:  encryptionKey.ID().String(),
		Ciphertext:     base64.StdEncoding.EncodeToString(ct),
		Decrypted:      string(pt),
	}, nil
}
