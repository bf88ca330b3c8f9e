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
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal prompts for a passcode on a TTY without echo.
type Terminal struct {
	in  *os.File
	out io.Writer
}

// NewTerminal returns a prompt reading from in and writing to out.
func NewTerminal(in *os.File, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

type readResult struct {
	passcode []byte
	err      error
}

// Authenticate prints the request prompt and reads a passcode. An empty
// passcode or an expired context is a denial. If ctx expires first the
// pending read is abandoned and completes when the user presses enter.
func (t *Terminal) Authenticate(ctx context.Context, req Request) (*Credential, error) {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%w: %w", ErrDenied, ErrNoTerminal)
	}

	fmt.Fprintf(t.out, "%s. Passcode: ", req.Prompt())

	done := make(chan readResult, 1)
	go func() {
		passcode, err := term.ReadPassword(fd)
		done <- readResult{passcode: passcode, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return nil, fmt.Errorf("%w: %w", ErrDenied, ctx.Err())
	case res := <-done:
		fmt.Fprintln(t.out)
		if res.err != nil {
			return nil, fmt.Errorf("%w: reading passcode: %v", ErrDenied, res.err)
		}
		cred, err := NewCredential(res.passcode)
		for i := range res.passcode {
			res.passcode[i] = 0
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDenied, err)
		}
		return cred, nil
	}
}
