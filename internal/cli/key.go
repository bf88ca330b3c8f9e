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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckey/pkg/encoding"
	"github.com/jeremyhahn/go-seckey/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// Key usages accepted by --usage
const (
	UsageSign    = "sign"
	UsageEncrypt = "encrypt"
	UsageDual    = "dual"
)

// Public key export formats accepted by --format
const (
	ExportRaw = "raw"
	ExportPEM = "pem"
	ExportJWK = "jwk"
)

func newKeyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage keys",
		Long:  `Create, inspect, list, delete and export tagged keys`,
	}
	cmd.AddCommand(
		newKeyCreateCmd(opts),
		newKeyGetCmd(opts),
		newKeyListCmd(opts),
		newKeyDeleteCmd(opts),
		newKeyExportCmd(opts),
	)
	return cmd
}

// keyFlags are the creation parameters shared by key create.
type keyFlags struct {
	curve      string
	usage      string
	policy     string
	hardware   bool
	auth       bool
	thisDevice bool
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.curve, "curve", string(types.CurveP256), "curve (P-256, P-384)")
	cmd.Flags().StringVar(&f.usage, "usage", UsageSign, "key usage (sign, encrypt, dual)")
	cmd.Flags().StringVar(&f.policy, "policy", "",
		"full policy as storage/accessibility/auth, overrides --hardware, --auth and --this-device")
	cmd.Flags().BoolVar(&f.hardware, "hardware", false, "keep the private key in the TPM")
	cmd.Flags().BoolVar(&f.auth, "auth", false, "require a passcode for every private key use")
	cmd.Flags().BoolVar(&f.thisDevice, "this-device", false,
		"only usable on this device while unlocked (implied by --hardware)")
}

func (f *keyFlags) spec() (types.KeySpec, error) {
	curve, err := types.ParseCurve(f.curve)
	if err != nil {
		return types.KeySpec{}, err
	}
	return specFor(curve, f.usage)
}

func (f *keyFlags) toPolicy() (types.Policy, error) {
	if f.policy != "" {
		return types.ParsePolicy(f.policy)
	}
	policy := types.DefaultPolicy()
	if f.auth {
		policy.Auth = types.AuthBiometryOrPasscode
	}
	if f.hardware {
		policy.Storage = types.StorageHardware
	}
	if f.hardware || f.thisDevice {
		policy.Accessibility = types.AccessibleWhenUnlockedThisDeviceOnly
	}
	return policy, policy.Validate()
}

func specFor(curve types.Curve, usage string) (types.KeySpec, error) {
	switch strings.ToLower(usage) {
	case UsageSign:
		return types.SigningKeySpec(curve), nil
	case UsageEncrypt:
		return types.EncryptionKeySpec(curve), nil
	case UsageDual:
		return types.DualUseKeySpec(curve), nil
	default:
		return types.KeySpec{}, fmt.Errorf("unknown key usage %q (must be sign, encrypt or dual)", usage)
	}
}

func newKeyCreateCmd(opts *rootOptions) *cobra.Command {
	var flags keyFlags
	cmd := &cobra.Command{
		Use:   "create <key-id>",
		Short: "Create a key, or return the existing key with the same ID",
		Long: `Create a key under the given ID. If a key with the ID already exists
under the same policy and spec it is returned unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := flags.spec()
			if err != nil {
				return err
			}
			policy, err := flags.toPolicy()
			if err != nil {
				return err
			}

			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			opts.printVerbose(cmd.ErrOrStderr(), "Creating %s key %s under %s", spec, args[0], policy)
			kp, err := s.keys.GetOrCreate(cmd.Context(), types.KeyID(args[0]), policy, spec)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintKey(kp)
		},
	}
	flags.register(cmd)
	return cmd
}

func newKeyGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key-id>",
		Short: "Show a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			kp, err := s.lookup(args[0])
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintKey(kp)
		},
	}
}

func newKeyListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			pairs, err := s.keys.List()
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintKeyList(pairs)
		},
	}
}

func newKeyDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := s.keys.Delete(types.KeyID(args[0])); err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintSuccess(fmt.Sprintf("Deleted key: %s", args[0]))
		},
	}
}

func newKeyExportCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <key-id>",
		Short: "Export a public key",
		Long: `Export the public half of a key as uncompressed X9.63 bytes (raw,
printed base64), a PKIX PEM block or a JWK. Private keys are never exported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			kp, err := s.lookup(args[0])
			if err != nil {
				return err
			}

			printer := opts.printer(cmd.OutOrStdout())
			switch strings.ToLower(format) {
			case ExportRaw:
				return printer.PrintPublicKey(ExportRaw, s.keys.ExportPublicBytes(kp), true)
			case ExportPEM:
				data, err := encoding.EncodePublicKeyPEM(kp.Public())
				if err != nil {
					return err
				}
				return printer.PrintPublicKey(ExportPEM, data, false)
			case ExportJWK:
				data, err := jwk.Marshal(kp.Public(), kp.Spec())
				if err != nil {
					return err
				}
				return printer.PrintPublicKey(ExportJWK, data, false)
			default:
				return fmt.Errorf("unknown export format %q (must be raw, pem or jwk)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", ExportRaw, "export format (raw, pem, jwk)")
	return cmd
}
