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

// Package auth defines the interactive user authentication challenge that
// guards keys created with a biometry-or-passcode policy.
//
// The key store calls an Authenticator before generating such a key and
// before every private key operation on it. The returned Credential is
// bound into the key protection: it encrypts software key material and is
// turned into the authorization value of hardware keys, so the same user
// secret must be presented on every challenge.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-seckey/pkg/types"
)

var (
	// ErrDenied is returned when the user declines or fails the challenge.
	ErrDenied = errors.New("auth: authentication denied")

	// ErrRateLimited is returned when too many challenges were attempted.
	ErrRateLimited = errors.New("auth: too many authentication attempts")

	// ErrNoTerminal is returned by the terminal prompt when input is not a TTY.
	ErrNoTerminal = errors.New("auth: input is not a terminal")
)

// Operation names the action the user is asked to approve.
type Operation string

const (
	OpGenerate Operation = "generate"
	OpSign     Operation = "sign"
	OpDecrypt  Operation = "decrypt"
)

// Request describes a single authentication challenge.
type Request struct {
	KeyID     types.KeyID
	Operation Operation
}

// Prompt returns the text shown to the user.
func (r Request) Prompt() string {
	switch r.Operation {
	case OpGenerate:
		return fmt.Sprintf("Create protected key %q", r.KeyID)
	case OpSign:
		return fmt.Sprintf("Sign with key %q", r.KeyID)
	case OpDecrypt:
		return fmt.Sprintf("Decrypt with key %q", r.KeyID)
	default:
		return fmt.Sprintf("Use key %q", r.KeyID)
	}
}

// Authenticator challenges the user. Implementations must return promptly
// once ctx is done; the key store bounds every call with a timeout.
type Authenticator interface {
	Authenticate(ctx context.Context, req Request) (*Credential, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, req Request) (*Credential, error)

// Authenticate calls f(ctx, req).
func (f AuthenticatorFunc) Authenticate(ctx context.Context, req Request) (*Credential, error) {
	return f(ctx, req)
}

// Static returns an Authenticator that always approves with passcode. It is
// intended for tests and unattended tooling.
func Static(passcode string) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, _ Request) (*Credential, error) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDenied, err)
		}
		return NewCredential([]byte(passcode))
	})
}

// Deny returns an Authenticator that declines every challenge.
func Deny() Authenticator {
	return AuthenticatorFunc(func(context.Context, Request) (*Credential, error) {
		return nil, ErrDenied
	})
}
