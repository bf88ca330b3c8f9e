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

package metrics

import "time"

// Timer measures one operation against one backend.
//
// Usage:
//
//	timer := metrics.NewTimer(metrics.OpSign, "software")
//	sig, err := signer.Sign(rand.Reader, digest, crypto.SHA256)
//	timer.Observe(err)
type Timer struct {
	operation string
	backend   string
	start     time.Time
}

// NewTimer starts timing an operation.
func NewTimer(operation, backend string) *Timer {
	return &Timer{
		operation: operation,
		backend:   backend,
		start:     time.Now(),
	}
}

// Observe records the operation with a status derived from err and
// returns the elapsed time.
func (t *Timer) Observe(err error) time.Duration {
	elapsed := time.Since(t.start)
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	RecordOperation(t.operation, t.backend, status, elapsed.Seconds())
	return elapsed
}

// ObserveError records the operation like Observe and, on failure, also
// counts the error under errorType.
func (t *Timer) ObserveError(err error, errorType string) time.Duration {
	elapsed := t.Observe(err)
	if err != nil {
		RecordError(t.operation, t.backend, errorType)
	}
	return elapsed
}
