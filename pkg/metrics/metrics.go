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

// Package metrics provides Prometheus instrumentation for key store
// operations: operation counters and latency histograms per backend, error
// counters by error type, authentication challenge outcomes and the number
// of stored keys.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all seckey metrics
	Namespace = "seckey"

	// Label names
	LabelOperation = "operation"
	LabelBackend   = "backend"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelResult    = "result"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpGenerate     = "generate"
	OpGet          = "get"
	OpDelete       = "delete"
	OpList         = "list"
	OpSign         = "sign"
	OpVerify       = "verify"
	OpEncrypt      = "encrypt"
	OpDecrypt      = "decrypt"
	OpAuthenticate = "authenticate"

	// Authentication results
	AuthGranted = "granted"
	AuthDenied  = "denied"
	AuthTimeout = "timeout"
)

var (
	// OperationsTotal tracks the total number of key store operations by type, backend, and status.
	// Use RecordOperation to increment this counter with the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of key store operations by type, backend, and status",
		},
		[]string{LabelOperation, LabelBackend, LabelStatus},
	)

	// OperationDuration tracks the duration of key store operations in seconds.
	// Buckets span in-process signing up to interactive authentication.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of key store operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{LabelOperation, LabelBackend},
	)

	// ErrorsTotal tracks the total number of errors by operation, backend, and error type.
	// Error types should be specific (e.g., "key_not_found", "store_access", "auth_denied").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, backend, and error type",
		},
		[]string{LabelOperation, LabelBackend, LabelErrorType},
	)

	// AuthChallengesTotal tracks user authentication challenges by result.
	AuthChallengesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "auth_challenges_total",
			Help:      "Total number of user authentication challenges by result",
		},
		[]string{LabelResult},
	)

	// KeysTotal tracks the total number of keys stored in each backend.
	KeysTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "keys_total",
			Help:      "Total number of keys stored in each backend",
		},
		[]string{LabelBackend},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records a key store operation with its duration and status.
// This is the primary function for tracking operational metrics.
//
// Parameters:
//   - operation: The operation name (use Op* constants)
//   - backend: The backend identifier (e.g., "software", "tpm2")
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
func RecordOperation(operation, backend, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, backend, status).Inc()
	OperationDuration.WithLabelValues(operation, backend).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
//
// Example:
//
//	if errors.Is(err, keychain.ErrKeyNotFound) {
//	    RecordError(OpGet, "software", "key_not_found")
//	}
func RecordError(operation, backend, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, backend, errorType).Inc()
}

// RecordAuthChallenge records the outcome of a user authentication challenge.
func RecordAuthChallenge(result string) {
	if !enabled.Load() {
		return
	}
	AuthChallengesTotal.WithLabelValues(result).Inc()
}

// SetKeysTotal sets the total number of keys for a backend.
func SetKeysTotal(backend string, count float64) {
	if !enabled.Load() {
		return
	}
	KeysTotal.WithLabelValues(backend).Set(count)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// SetEnabled enables or disables metrics collection.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
