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

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "info", Writer: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Infof("created key %s", "demo.key")
	l.Warn("device locked", "key", "demo.key")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "created key demo.key")
	assert.Contains(t, out, "key=demo.key")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)

	l.With("component", "keystore").Debug("lookup", "id", "demo.key")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "lookup", rec["msg"])
	assert.Equal(t, "keystore", rec["component"])
	assert.Equal(t, "demo.key", rec["id"])
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Options{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMaybeError(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Writer: &buf})
	require.NoError(t, err)

	l.MaybeError(nil)
	assert.Empty(t, buf.String())

	l.MaybeError(errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")
}

func TestDefaults(t *testing.T) {
	assert.NotNil(t, DefaultLogger())
	assert.NotNil(t, NewLogger(true).Slog())
	Discard().Error(errors.New("dropped"))
}
