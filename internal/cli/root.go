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

// Package cli implements the seckey command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckey/internal/config"
	"github.com/jeremyhahn/go-seckey/pkg/auth"
)

// PasscodeEnv supplies the passcode for auth protected keys without a
// terminal prompt, for scripted use.
const PasscodeEnv = "SECKEY_PASSCODE"

// rootOptions holds the global flags and the lazily loaded configuration.
type rootOptions struct {
	configFile string
	output     string
	verbose    bool

	cfg *config.Config

	// authenticator overrides the terminal prompt.
	authenticator auth.Authenticator
}

// config loads the configuration once per invocation.
func (o *rootOptions) config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	o.cfg = cfg
	return cfg, nil
}

func (o *rootOptions) printer(w io.Writer) *Printer {
	return NewPrinter(o.output, w)
}

// newRootCmd builds the command tree.
func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seckey",
		Short: "seckey - key lifecycle and crypto operations",
		Long: `seckey creates and looks up tagged EC keys and uses them to sign,
verify, encrypt and decrypt.

Keys are held in software (PKCS#8 records on disk) or inside a TPM 2.0
when hardware is enabled. Keys created with an authentication requirement
prompt for a passcode on creation and on every private key use; set
` + PasscodeEnv + ` to answer non-interactively.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file (default is $HOME/.seckey.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", string(OutputFormatText),
		"output format (text, json, yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"verbose output")

	cmd.AddCommand(
		newKeyCmd(opts),
		newSignCmd(opts),
		newVerifyCmd(opts),
		newEncryptCmd(opts),
		newDecryptCmd(opts),
		newDemoCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		_ = opts.printer(os.Stderr).PrintError(err) // best effort
	}
	return err
}

// printVerbose prints a message if verbose mode is enabled
func (o *rootOptions) printVerbose(w io.Writer, format string, args ...any) {
	if o.verbose {
		fmt.Fprintf(w, "[VERBOSE] "+format+"\n", args...)
	}
}
