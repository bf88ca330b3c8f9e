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
	"context"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/metrics"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

type authResult struct {
	cred *auth.Credential
	err  error
}

// authenticate challenges the user for op on key id. The call is bounded
// by the auth timeout even if the authenticator ignores its context.
func (ks *KeyStore) authenticate(ctx context.Context, id types.KeyID, op auth.Operation) (*auth.Credential, error) {
	if ks.authenticator == nil {
		metrics.RecordAuthChallenge(metrics.AuthDenied)
		return nil, fmt.Errorf("%w: no authenticator configured", ErrAuthenticationDenied)
	}

	ctx, cancel := context.WithTimeout(ctx, ks.authTimeout)
	defer cancel()

	req := auth.Request{KeyID: id, Operation: op}
	results := make(chan authResult, 1)
	go func() {
		cred, err := ks.authenticator.Authenticate(ctx, req)
		results <- authResult{cred: cred, err: err}
	}()

	timer := metrics.NewTimer(metrics.OpAuthenticate, "")
	select {
	case res := <-results:
		if res.err == nil && res.cred == nil {
			res.err = auth.ErrDenied
		}
		if res.err != nil {
			result := metrics.AuthDenied
			if errors.Is(res.err, context.DeadlineExceeded) {
				result = metrics.AuthTimeout
			}
			metrics.RecordAuthChallenge(result)
			timer.ObserveError(res.err, result)
			ks.logger.Debug("authentication failed", "id", id, "operation", op, "error", res.err)
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationDenied, res.err)
		}
		metrics.RecordAuthChallenge(metrics.AuthGranted)
		timer.Observe(nil)
		return res.cred, nil

	case <-ctx.Done():
		go func() {
			if res := <-results; res.cred != nil {
				res.cred.Clear()
			}
		}()
		result := metrics.AuthDenied
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result = metrics.AuthTimeout
		}
		metrics.RecordAuthChallenge(result)
		timer.ObserveError(ctx.Err(), result)
		ks.logger.Warn("authentication timed out", "id", id, "operation", op, "timeout", ks.authTimeout)
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationDenied, ctx.Err())
	}
}
