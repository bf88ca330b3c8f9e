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

package auth

import (
	"crypto/subtle"
	"errors"
)

var (
	// ErrEmptyCredential is returned when an empty passcode is provided.
	ErrEmptyCredential = errors.New("auth: passcode cannot be empty")
)

// Credential holds the user secret produced by a successful challenge.
// Callers should Clear it once the protected operation completes.
type Credential struct {
	passcode []byte
}

// NewCredential copies passcode into a new Credential.
func NewCredential(passcode []byte) (*Credential, error) {
	if len(passcode) == 0 {
		return nil, ErrEmptyCredential
	}
	p := make([]byte, len(passcode))
	copy(p, passcode)
	return &Credential{passcode: p}, nil
}

// Bytes returns a copy of the passcode, or nil for a nil or cleared credential.
func (c *Credential) Bytes() []byte {
	if c == nil || c.passcode == nil {
		return nil
	}
	result := make([]byte, len(c.passcode))
	copy(result, c.passcode)
	return result
}

// Clear zeroes the passcode. It is safe to call on a nil credential.
func (c *Credential) Clear() {
	if c == nil || c.passcode == nil {
		return
	}
	for i := range c.passcode {
		c.passcode[i] = 0
	}
	subtle.ConstantTimeCopy(1, c.passcode, make([]byte, len(c.passcode)))
	c.passcode = nil
}
