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

package software

import (
	"fmt"
	"io"

	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/storage"
)

// Config contains configuration for the software backend.
type Config struct {
	// KeyStorage holds the key records. Any storage.Backend works; a file
	// store shared with the hardware backend keeps IDs unique across both.
	KeyStorage storage.Backend

	// Rand is the entropy source for key generation. Defaults to crypto/rand.
	Rand io.Reader

	// Logger defaults to logging.DefaultLogger.
	Logger *logging.Logger
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.KeyStorage == nil {
		return fmt.Errorf("KeyStorage is required")
	}
	return nil
}
