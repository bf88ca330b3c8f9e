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

import (
	"fmt"
	"os"
	"time"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// DefaultAuthTimeout bounds a user authentication challenge.
const DefaultAuthTimeout = 30 * time.Second

// LockState reports whether the device is currently locked.
type LockState interface {
	Locked() bool
}

// LockStateFunc adapts a function to the LockState interface.
type LockStateFunc func() bool

// Locked calls f().
func (f LockStateFunc) Locked() bool {
	return f()
}

// Unlocked is a LockState for devices without a lock.
var Unlocked LockState = LockStateFunc(func() bool { return false })

// Config contains the key store collaborators.
type Config struct {
	// Software holds software keys. Required.
	Software backend.Backend

	// Hardware holds hardware-backed keys. Optional; without it hardware
	// policies fail with ErrKeyGeneration.
	Hardware backend.Backend

	// Authenticator answers challenges for keys requiring user
	// authentication. Without it such keys cannot be created or used.
	Authenticator auth.Authenticator

	// LockState defaults to Unlocked.
	LockState LockState

	// DeviceID is recorded with new keys and compared on use of device
	// bound keys. Defaults to the host name.
	DeviceID string

	// AuthTimeout defaults to DefaultAuthTimeout.
	AuthTimeout time.Duration

	// Logger defaults to logging.DefaultLogger.
	Logger *logging.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.Software == nil {
		return fmt.Errorf("%w: software backend is required", ErrInvalidConfig)
	}
	if c.Software.Type() != types.BackendTypeSoftware {
		return fmt.Errorf("%w: software backend has type %s", ErrInvalidConfig, c.Software.Type())
	}
	if c.Hardware != nil && !c.Hardware.Capabilities().HardwareBacked {
		return fmt.Errorf("%w: %s backend is not hardware backed", ErrInvalidConfig, c.Hardware.Type())
	}
	if c.AuthTimeout < 0 {
		return fmt.Errorf("%w: negative auth timeout", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) deviceID() string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}
