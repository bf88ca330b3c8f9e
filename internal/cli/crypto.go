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
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckey/pkg/encryption"
	"github.com/jeremyhahn/go-seckey/pkg/signing"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// inputFlags select the message: an inline string or a file ("-" for stdin).
type inputFlags struct {
	message string
	in      string
}

func (f *inputFlags) register(cmd *cobra.Command, what string) {
	cmd.Flags().StringVarP(&f.message, "message", "m", "", what+" as a string")
	cmd.Flags().StringVarP(&f.in, "in", "i", "", "read "+what+" from a file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("message", "in")
}

func (f *inputFlags) read(cmd *cobra.Command) ([]byte, error) {
	switch {
	case f.in == "-":
		return io.ReadAll(cmd.InOrStdin())
	case f.in != "":
		// #nosec G304 - input path is provided by the user
		return os.ReadFile(f.in)
	case cmd.Flags().Changed("message"):
		return []byte(f.message), nil
	default:
		return nil, errors.New("one of --message or --in is required")
	}
}

// publicKeyFlags select an exported public key instead of a stored key.
type publicKeyFlags struct {
	publicKey string
	curve     string
}

func (f *publicKeyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.publicKey, "public-key", "",
		"base64 uncompressed public key, as printed by key export, instead of a stored key")
	cmd.Flags().StringVar(&f.curve, "curve", string(types.CurveP256), "curve of --public-key (P-256, P-384)")
}

func (f *publicKeyFlags) raw() ([]byte, types.Curve, error) {
	raw, err := decodeBase64(f.publicKey)
	if err != nil {
		return nil, "", fmt.Errorf("invalid public key: %w", err)
	}
	curve, err := types.ParseCurve(f.curve)
	if err != nil {
		return nil, "", err
	}
	return raw, curve, nil
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func newSignCmd(opts *rootOptions) *cobra.Command {
	var input inputFlags
	cmd := &cobra.Command{
		Use:   "sign <key-id>",
		Short: "Sign a message",
		Long: `Sign a message with a stored key. The X9.62 DER signature is printed
base64 encoded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := input.read(cmd)
			if err != nil {
				return err
			}

			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			kp, err := s.lookup(args[0])
			if err != nil {
				return err
			}
			sig, err := s.signer.Sign(cmd.Context(), kp, message)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintSignature(sig)
		},
	}
	input.register(cmd, "message")
	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var (
		input     inputFlags
		pub       publicKeyFlags
		signature string
	)
	cmd := &cobra.Command{
		Use:   "verify [key-id]",
		Short: "Verify a signature",
		Long: `Verify a base64 signature against a stored key, or against an
exported public key given with --public-key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := input.read(cmd)
			if err != nil {
				return err
			}
			sig, err := decodeBase64(signature)
			if err != nil {
				return fmt.Errorf("invalid signature encoding: %w", err)
			}

			var (
				key signing.VerifyingKey
				svc = signing.NewService(nil)
			)
			switch {
			case pub.publicKey != "":
				raw, curve, err := pub.raw()
				if err != nil {
					return err
				}
				if key, err = signing.NewPublicKey(raw, types.SigningKeySpec(curve)); err != nil {
					return err
				}
			case len(args) == 1:
				s, err := opts.openSession(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()
				if key, err = s.lookup(args[0]); err != nil {
					return err
				}
				svc = s.signer
			default:
				return errors.New("a key ID or --public-key is required")
			}

			valid, err := svc.Verify(key, message, sig)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintVerification(valid)
		},
	}
	input.register(cmd, "message")
	pub.register(cmd)
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "base64 signature")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func newEncryptCmd(opts *rootOptions) *cobra.Command {
	var (
		input inputFlags
		pub   publicKeyFlags
	)
	cmd := &cobra.Command{
		Use:   "encrypt [key-id]",
		Short: "Encrypt a message",
		Long: `Encrypt a message to a stored key, or to an exported public key given
with --public-key. The ECIES envelope is printed base64 encoded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := input.read(cmd)
			if err != nil {
				return err
			}

			var (
				key encryption.EncryptionKey
				svc = encryption.NewService(nil)
			)
			switch {
			case pub.publicKey != "":
				raw, curve, err := pub.raw()
				if err != nil {
					return err
				}
				if key, err = encryption.NewPublicKey(raw, types.EncryptionKeySpec(curve)); err != nil {
					return err
				}
			case len(args) == 1:
				s, err := opts.openSession(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()
				if key, err = s.lookup(args[0]); err != nil {
					return err
				}
				svc = s.cipher
			default:
				return errors.New("a key ID or --public-key is required")
			}

			ct, err := svc.Encrypt(key, plaintext)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintCiphertext(ct)
		},
	}
	input.register(cmd, "plaintext")
	pub.register(cmd)
	return cmd
}

func newDecryptCmd(opts *rootOptions) *cobra.Command {
	var input inputFlags
	cmd := &cobra.Command{
		Use:   "decrypt <key-id>",
		Short: "Decrypt a message",
		Long:  `Decrypt a base64 ECIES envelope with a stored key.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, err := input.read(cmd)
			if err != nil {
				return err
			}
			ct, err := decodeBase64(string(encoded))
			if err != nil {
				return fmt.Errorf("invalid ciphertext encoding: %w", err)
			}

			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			kp, err := s.lookup(args[0])
			if err != nil {
				return err
			}
			pt, err := s.cipher.Decrypt(cmd.Context(), kp, ct)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintPlaintext(pt)
		},
	}
	input.register(cmd, "base64 ciphertext")
	return cmd
}
