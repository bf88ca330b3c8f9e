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

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsEnabled(t *testing.T) {
	// Metrics should be enabled by default
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled by default")
	}

	Disable()
	if IsEnabled() {
		t.Error("Expected metrics to be disabled after Disable()")
	}

	SetEnabled(true)
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled after SetEnabled(true)")
	}
}

func TestRecordOperation(t *testing.T) {
	Enable()

	OperationsTotal.Reset()
	OperationDuration.Reset()

	RecordOperation(OpGenerate, "software", StatusSuccess, 0.5)

	if count := testutil.CollectAndCount(OperationsTotal); count != 1 {
		t.Errorf("Expected 1 operation recorded, got %d", count)
	}
	if count := testutil.CollectAndCount(OperationDuration); count != 1 {
		t.Errorf("Expected 1 histogram sample, got %d", count)
	}

	RecordOperation(OpGet, "tpm2", StatusError, 0.1)

	if count := testutil.CollectAndCount(OperationsTotal); count != 2 {
		t.Errorf("Expected 2 operations recorded, got %d", count)
	}
	if v := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpGet, "tpm2", StatusError)); v != 1 {
		t.Errorf("Expected error counter 1, got %v", v)
	}
}

func TestRecordOperationWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	OperationsTotal.Reset()

	RecordOperation(OpGenerate, "software", StatusSuccess, 0.5)

	if count := testutil.CollectAndCount(OperationsTotal); count != 0 {
		t.Errorf("Expected 0 operations when disabled, got %d", count)
	}
}

func TestRecordError(t *testing.T) {
	Enable()
	ErrorsTotal.Reset()

	RecordError(OpGet, "software", "key_not_found")
	RecordError(OpSign, "tpm2", "auth_denied")
	RecordError(OpSign, "tpm2", "auth_denied")

	if count := testutil.CollectAndCount(ErrorsTotal); count != 2 {
		t.Errorf("Expected 2 error series, got %d", count)
	}
	if v := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpSign, "tpm2", "auth_denied")); v != 2 {
		t.Errorf("Expected auth_denied count 2, got %v", v)
	}
}

func TestRecordAuthChallenge(t *testing.T) {
	Enable()
	AuthChallengesTotal.Reset()

	RecordAuthChallenge(AuthGranted)
	RecordAuthChallenge(AuthDenied)
	RecordAuthChallenge(AuthGranted)

	if v := testutil.ToFloat64(AuthChallengesTotal.WithLabelValues(AuthGranted)); v != 2 {
		t.Errorf("Expected 2 granted challenges, got %v", v)
	}
	if v := testutil.ToFloat64(AuthChallengesTotal.WithLabelValues(AuthDenied)); v != 1 {
		t.Errorf("Expected 1 denied challenge, got %v", v)
	}
}

func TestSetKeysTotal(t *testing.T) {
	Enable()
	KeysTotal.Reset()

	SetKeysTotal("software", 3)
	SetKeysTotal("software", 2)

	if v := testutil.ToFloat64(KeysTotal.WithLabelValues("software")); v != 2 {
		t.Errorf("Expected 2 keys, got %v", v)
	}
}

func TestTimer(t *testing.T) {
	Enable()
	OperationsTotal.Reset()
	ErrorsTotal.Reset()

	NewTimer(OpSign, "software").Observe(nil)
	NewTimer(OpDecrypt, "software").ObserveError(errors.New("boom"), "auth_failed")
	NewTimer(OpDecrypt, "software").ObserveError(nil, "auth_failed")

	if v := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpSign, "software", StatusSuccess)); v != 1 {
		t.Errorf("Expected 1 successful sign, got %v", v)
	}
	if v := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpDecrypt, "software", StatusError)); v != 1 {
		t.Errorf("Expected 1 failed decrypt, got %v", v)
	}
	if v := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpDecrypt, "software", "auth_failed")); v != 1 {
		t.Errorf("Expected 1 auth_failed error, got %v", v)
	}
}

func TestMetricsNamespace(t *testing.T) {
	if Namespace != "seckey" {
		t.Errorf("Expected namespace 'seckey', got %q", Namespace)
	}

	ch := make(chan *prometheus.Desc, 1)
	OperationsTotal.Describe(ch)
	desc := (<-ch).String()
	if want := `fqName: "seckey_operations_total"`; !strings.Contains(desc, want) {
		t.Errorf("Expected descriptor to contain %s, got %s", want, desc)
	}
}

func BenchmarkRecordOperation(b *testing.B) {
	Enable()
	for i := 0; i < b.N; i++ {
		RecordOperation(OpSign, "software", StatusSuccess, 0.001)
	}
}
