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
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckey/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(opts), newConfigShowCmd(opts))
	return cmd
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var (
		force       bool
		storagePath string
		hardware    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Long: `Write the default configuration to --config, or $HOME/.seckey.yaml.
An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configFile
			if path == "" {
				path = config.DefaultConfigFile()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if storagePath != "" {
				cfg.Storage.Path = storagePath
			}
			cfg.Hardware.Enabled = hardware
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintSuccess(fmt.Sprintf("Wrote config: %s", path))
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&storagePath, "storage-path", "", "key storage directory (default is $HOME/.seckey)")
	cmd.Flags().BoolVar(&hardware, "hardware", false, "enable the TPM 2.0 backend")
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).PrintValue(cfg)
		},
	}
}
