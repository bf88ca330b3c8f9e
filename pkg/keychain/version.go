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

package keychain

import "runtime/debug"

// version is set at build time:
//
//	go build -ldflags "-X github.com/jeremyhahn/go-seckey/pkg/keychain.version=v1.0.0"
var version string

// Version returns the library version string: the linker supplied
// version, else the module version recorded in the build info, else
// "unknown".
func Version() string {
	if version != "" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, dep := range info.Deps {
		if dep.Path == "github.com/jeremyhahn/go-seckey" && dep.Version != "" {
			return dep.Version
		}
	}
	return "unknown"
}
