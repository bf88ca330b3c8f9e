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

	"golang.org/x/time/rate"
)

// RateLimited wraps next so that at most attemptsPerMinute challenges are
// issued per minute, with bursts up to the same number. A challenge that
// cannot be scheduled before ctx expires fails with ErrDenied and
// ErrRateLimited. A non-positive limit disables throttling.
func RateLimited(next Authenticator, attemptsPerMinute int) Authenticator {
	if attemptsPerMinute <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(float64(attemptsPerMinute)/60.0), attemptsPerMinute)
	return AuthenticatorFunc(func(ctx context.Context, req Request) (*Credential, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDenied, ErrRateLimited)
		}
		return next.Authenticate(ctx, req)
	})
}
