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
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckey/pkg/keychain"
)

// Build information (injected at build time via -ldflags)
var (
	GitCommit = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-seckey/internal/cli.GitCommit=abc123"
	BuildDate = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-seckey/internal/cli.BuildDate=2025-01-15"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version information for the seckey CLI`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := opts.printer(cmd.OutOrStdout())
			if printer.format != OutputFormatText {
				return printer.print(map[string]any{
					"version":    keychain.Version(),
					"commit":     GitCommit,
					"build_date": BuildDate,
					"go_version": runtime.Version(),
					"os":         runtime.GOOS,
					"arch":       runtime.GOARCH,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seckey version %s\n", keychain.Version())
			fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "Build date: %s\n", BuildDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
