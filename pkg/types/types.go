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

// Package types defines the shared data model used by the key store,
// the storage backends and the signing and encryption services.
package types

import (
	"crypto/ecdh"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidKeyID is returned when a key identifier is empty or contains
	// characters that cannot be persisted safely.
	ErrInvalidKeyID = errors.New("types: invalid key identifier")

	// ErrInvalidPolicy is returned when a protection policy combines
	// attributes that cannot be honored together.
	ErrInvalidPolicy = errors.New("types: invalid key protection policy")

	// ErrInvalidKeySpec is returned when a key spec names an unknown curve
	// or algorithm, or an algorithm that does not match the curve.
	ErrInvalidKeySpec = errors.New("types: invalid key spec")
)

// maxKeyIDLength bounds identifiers so they fit in a single path element.
const maxKeyIDLength = 255

// KeyID is the opaque tag that scopes a key within a store. It is used both
// to look a key up and to name it in persistent storage.
type KeyID string

// String returns the identifier as a string.
func (id KeyID) String() string {
	return string(id)
}

// Validate checks that the identifier is non-empty and restricted to
// characters that are safe as a storage path element.
func (id KeyID) Validate() error {
	s := string(id)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKeyID)
	}
	if len(s) > maxKeyIDLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKeyID, maxKeyIDLength)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKeyID, s)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-', r == '@':
		default:
			return fmt.Errorf("%w: illegal character %q in %q", ErrInvalidKeyID, r, s)
		}
	}
	return nil
}

// StorageClass selects where the private half of a key lives.
type StorageClass string

const (
	// StorageSoftware keeps the private key as PKCS#8 in the key storage.
	StorageSoftware StorageClass = "software"

	// StorageHardware keeps the private key inside secure hardware. Only an
	// encrypted blob or reference is ever persisted.
	StorageHardware StorageClass = "hardware"
)

// Accessibility governs when a stored key may be used.
type Accessibility string

const (
	// AccessibleAlways allows use regardless of device lock state.
	AccessibleAlways Accessibility = "always"

	// AccessibleWhenUnlockedThisDeviceOnly allows use only while the device
	// is unlocked and only on the device that created the key.
	AccessibleWhenUnlockedThisDeviceOnly Accessibility = "when-unlocked-this-device-only"
)

// AuthRequirement states whether use of the private key requires an
// interactive user authentication.
type AuthRequirement string

const (
	// AuthNone requires no user interaction.
	AuthNone AuthRequirement = "none"

	// AuthBiometryOrPasscode requires a biometric or passcode challenge on
	// generation and on every private key operation.
	AuthBiometryOrPasscode AuthRequirement = "biometry-or-passcode"
)

// Policy is the set of protection attributes a key is created under. A key
// is only found when it is looked up with the policy it was created with.
type Policy struct {
	Storage       StorageClass    `json:"storage" yaml:"storage"`
	Accessibility Accessibility   `json:"accessibility" yaml:"accessibility"`
	Auth          AuthRequirement `json:"auth" yaml:"auth"`
}

// DefaultPolicy returns a software-only, always accessible policy without
// user authentication.
func DefaultPolicy() Policy {
	return Policy{
		Storage:       StorageSoftware,
		Accessibility: AccessibleAlways,
		Auth:          AuthNone,
	}
}

// HardwarePolicy returns a hardware-backed policy with the only
// accessibility class hardware keys support.
func HardwarePolicy(auth AuthRequirement) Policy {
	return Policy{
		Storage:       StorageHardware,
		Accessibility: AccessibleWhenUnlockedThisDeviceOnly,
		Auth:          auth,
	}
}

// Validate checks every attribute and the cross-attribute invariant:
// hardware-backed storage requires the device-local, unlocked-only
// accessibility class.
func (p Policy) Validate() error {
	switch p.Storage {
	case StorageSoftware, StorageHardware:
	default:
		return fmt.Errorf("%w: unknown storage class %q", ErrInvalidPolicy, p.Storage)
	}
	switch p.Accessibility {
	case AccessibleAlways, AccessibleWhenUnlockedThisDeviceOnly:
	default:
		return fmt.Errorf("%w: unknown accessibility %q", ErrInvalidPolicy, p.Accessibility)
	}
	switch p.Auth {
	case AuthNone, AuthBiometryOrPasscode:
	default:
		return fmt.Errorf("%w: unknown auth requirement %q", ErrInvalidPolicy, p.Auth)
	}
	if p.Storage == StorageHardware && p.Accessibility != AccessibleWhenUnlockedThisDeviceOnly {
		return fmt.Errorf("%w: hardware-backed keys require accessibility %q",
			ErrInvalidPolicy, AccessibleWhenUnlockedThisDeviceOnly)
	}
	return nil
}

// RequiresAuth reports whether private key use must be authorized by the user.
func (p Policy) RequiresAuth() bool {
	return p.Auth == AuthBiometryOrPasscode
}

// DeviceBound reports whether the key may only be used on the device that
// created it while that device is unlocked.
func (p Policy) DeviceBound() bool {
	return p.Accessibility == AccessibleWhenUnlockedThisDeviceOnly
}

// String returns a compact "storage/accessibility/auth" form.
func (p Policy) String() string {
	return fmt.Sprintf("%s/%s/%s", p.Storage, p.Accessibility, p.Auth)
}

// ParsePolicy parses the form produced by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Policy{}, fmt.Errorf("%w: expected storage/accessibility/auth, got %q", ErrInvalidPolicy, s)
	}
	p := Policy{
		Storage:       StorageClass(parts[0]),
		Accessibility: Accessibility(parts[1]),
		Auth:          AuthRequirement(parts[2]),
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// BackendType identifies the secure storage implementation holding a key.
type BackendType string

const (
	BackendTypeSoftware BackendType = "software"
	BackendTypeTPM2     BackendType = "tpm2"
)

// String returns the string representation of the backend type.
func (bt BackendType) String() string {
	return string(bt)
}

// Capabilities describes what a backend can do on the current device.
type Capabilities struct {
	// HardwareBacked indicates private keys never leave secure hardware.
	HardwareBacked bool

	// Curves lists the curves the backend can generate keys on.
	Curves []Curve

	// Signing indicates ECDSA signing support.
	Signing bool

	// KeyAgreement indicates ECDH support, required for ECIES decryption.
	KeyAgreement bool
}

// SupportsCurve reports whether keys on the curve can be generated.
func (c Capabilities) SupportsCurve(curve Curve) bool {
	for _, supported := range c.Curves {
		if supported == curve {
			return true
		}
	}
	return false
}

// KeyAgreement performs an elliptic curve Diffie-Hellman exchange with the
// private half of a key pair. *ecdh.PrivateKey satisfies it; hardware
// backends implement it without exposing the private scalar.
type KeyAgreement interface {
	ECDH(remote *ecdh.PublicKey) ([]byte, error)
}
