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

import "errors"

var (
	// ErrInvalidConfig indicates the configuration is invalid
	ErrInvalidConfig = errors.New("tpm2: invalid configuration")

	// ErrTPMNotAvailable indicates the TPM device is not available
	ErrTPMNotAvailable = errors.New("tpm2: TPM device not available")

	// ErrSimulatorNotAvailable is returned when simulator support is not compiled in
	ErrSimulatorNotAvailable = errors.New("tpm2: simulator support not compiled (build with -tags tpm_simulator)")

	// ErrInvalidBlob indicates a stored key blob could not be decoded or loaded
	ErrInvalidBlob = errors.New("tpm2: invalid key blob")
)
