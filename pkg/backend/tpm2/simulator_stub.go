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

//go:build !tpm_simulator

package tpm2

import "github.com/google/go-tpm/tpm2/transport"

// openSimulator returns an error when simulator support is not compiled in
func openSimulator() (transport.TPMCloser, error) {
	return nil, ErrSimulatorNotAvailable
}

func init() {
	simulatorOpener = openSimulator
}
