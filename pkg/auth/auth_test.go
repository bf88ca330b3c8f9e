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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	cred, err := Static("1234").Authenticate(context.Background(), Request{KeyID: "demo.key", Operation: OpSign})
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), cred.Bytes())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Static("1234").Authenticate(ctx, Request{})
	assert.ErrorIs(t, err, ErrDenied)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Static("").Authenticate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyCredential)
}

func TestDeny(t *testing.T) {
	cred, err := Deny().Authenticate(context.Background(), Request{})
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, ErrDenied)
}

func TestRequest_Prompt(t *testing.T) {
	assert.Equal(t, `Sign with key "demo.key"`, Request{KeyID: "demo.key", Operation: OpSign}.Prompt())
	assert.Contains(t, Request{KeyID: "k", Operation: OpGenerate}.Prompt(), "Create")
	assert.Contains(t, Request{KeyID: "k", Operation: OpDecrypt}.Prompt(), "Decrypt")
	assert.Contains(t, Request{KeyID: "k"}.Prompt(), "Use")
}

func TestCredential(t *testing.T) {
	src := []byte("secret")
	cred, err := NewCredential(src)
	require.NoError(t, err)

	src[0] = 'X'
	assert.Equal(t, []byte("secret"), cred.Bytes(), "credential must copy its input")

	out := cred.Bytes()
	out[0] = 'Y'
	assert.Equal(t, []byte("secret"), cred.Bytes(), "Bytes must return a copy")

	cred.Clear()
	assert.Nil(t, cred.Bytes())
	cred.Clear()

	var nilCred *Credential
	assert.Nil(t, nilCred.Bytes())
	nilCred.Clear()

	_, err = NewCredential(nil)
	assert.ErrorIs(t, err, ErrEmptyCredential)
}

func TestRateLimited(t *testing.T) {
	var calls atomic.Int32
	inner := AuthenticatorFunc(func(ctx context.Context, req Request) (*Credential, error) {
		calls.Add(1)
		return NewCredential([]byte("1234"))
	})

	limited := RateLimited(inner, 2)
	for i := 0; i < 2; i++ {
		_, err := limited.Authenticate(context.Background(), Request{})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := limited.Authenticate(ctx, Request{})
	assert.ErrorIs(t, err, ErrDenied)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRateLimited_Disabled(t *testing.T) {
	inner := Static("1234")
	assert.NotNil(t, RateLimited(inner, 0))

	for i := 0; i < 10; i++ {
		_, err := RateLimited(inner, 0).Authenticate(context.Background(), Request{})
		require.NoError(t, err)
	}
}

func TestTerminal_NotATerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	_, err = NewTerminal(f, &out).Authenticate(context.Background(), Request{KeyID: "k", Operation: OpSign})
	assert.ErrorIs(t, err, ErrDenied)
	assert.ErrorIs(t, err, ErrNoTerminal)
	assert.Empty(t, out.String())
}
