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

import (
	"fmt"

	"github.com/google/go-tpm/tpm2/transport"

	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/storage"
)

const (
	// DefaultDevice is the kernel resource manager device.
	DefaultDevice = "/dev/tpmrm0"

	// DefaultSRKHandle is the persistent handle of the Storage Root Key.
	DefaultSRKHandle uint32 = 0x81000001
)

// Config holds the configuration for the TPM2 backend
type Config struct {
	// Device is the path to the TPM device (default: "/dev/tpmrm0")
	Device string `yaml:"device" json:"device"`

	// UseSimulator opens the embedded simulator instead of Device
	UseSimulator bool `yaml:"use_simulator" json:"use_simulator"`

	// SRKHandle is the persistent handle for the Storage Root Key (default: 0x81000001)
	SRKHandle uint32 `yaml:"srk_handle" json:"srk_handle"`

	// KeyStorage holds the key records and wrapped key blobs
	KeyStorage storage.Backend `yaml:"-" json:"-"`

	// Logger is the logger instance to use
	Logger *logging.Logger `yaml:"-" json:"-"`

	// Transport is an already open TPM connection. If set, Device and
	// UseSimulator are ignored and the backend does not close it.
	Transport transport.TPMCloser `yaml:"-" json:"-"`
}

// Validate validates the TPM2 backend configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.KeyStorage == nil {
		return fmt.Errorf("KeyStorage is required")
	}
	if c.SRKHandle != 0 && (c.SRKHandle < 0x81000000 || c.SRKHandle > 0x81ffffff) {
		return fmt.Errorf("SRK handle 0x%08x is not a persistent handle", c.SRKHandle)
	}
	return nil
}

// setDefaults fills in unset fields.
func (c *Config) setDefaults() {
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.SRKHandle == 0 {
		c.SRKHandle = DefaultSRKHandle
	}
	if c.Logger == nil {
		c.Logger = logging.DefaultLogger()
	}
}
