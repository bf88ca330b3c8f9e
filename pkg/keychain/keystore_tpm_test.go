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

//go:build tpm_simulator

package keychain_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend/software"
	"github.com/jeremyhahn/go-seckey/pkg/backend/tpm2"
	"github.com/jeremyhahn/go-seckey/pkg/encryption"
	"github.com/jeremyhahn/go-seckey/pkg/keychain"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/signing"
	"github.com/jeremyhahn/go-seckey/pkg/storage/memory"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// newHardwareKeyStore opens a key store backed by the TPM simulator. The
// returned pointer holds the passcode the authenticator answers with.
func newHardwareKeyStore(t *testing.T) (*keychain.KeyStore, *atomic.Pointer[string]) {
	t.Helper()

	keyStorage := memory.New()
	sw, err := software.NewBackend(&software.Config{
		KeyStorage: keyStorage,
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)

	tpm, err := tpm2.NewBackend(&tpm2.Config{
		UseSimulator: true,
		KeyStorage:   keyStorage,
		Logger:       logging.Discard(),
	})
	require.NoError(t, err)

	passcode := new(atomic.Pointer[string])
	initial := "1234"
	passcode.Store(&initial)

	ks, err := keychain.New(&keychain.Config{
		Software: sw,
		Hardware: tpm,
		Authenticator: auth.AuthenticatorFunc(func(ctx context.Context, req auth.Request) (*auth.Credential, error) {
			return auth.Static(*passcode.Load()).Authenticate(ctx, req)
		}),
		DeviceID: "tpm-host",
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	return ks, passcode
}

func TestHardwareKeyStore(t *testing.T) {
	ks, passcode := newHardwareKeyStore(t)
	require.True(t, ks.HardwareAvailable())

	ctx := context.Background()
	policy := types.HardwarePolicy(types.AuthBiometryOrPasscode)
	spec := types.DualUseKeySpec(types.CurveP256)
	signer := signing.NewService(&signing.Config{Logger: logging.Discard()})
	cipher := encryption.NewService(&encryption.Config{Logger: logging.Discard()})

	kp, err := ks.GetOrCreate(ctx, "hw.key", policy, spec)
	require.NoError(t, err)
	assert.True(t, kp.HardwareBacked())
	assert.Equal(t, types.BackendTypeTPM2, kp.Backend())

	t.Run("Idempotent", func(t *testing.T) {
		again, err := ks.GetOrCreate(ctx, "hw.key", policy, spec)
		require.NoError(t, err)
		assert.Equal(t, kp.Ref(), again.Ref())
		assert.Equal(t, kp.PublicBytes(), again.PublicBytes())
	})

	t.Run("SignVerify", func(t *testing.T) {
		sig, err := signer.Sign(ctx, kp, []byte("hello"))
		require.NoError(t, err)

		ok, err := signer.Verify(kp, []byte("hello"), sig)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = signer.Verify(kp, []byte("hello!"), sig)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("EncryptDecrypt", func(t *testing.T) {
		ct, err := cipher.Encrypt(kp, []byte("secret"))
		require.NoError(t, err)

		pt, err := cipher.Decrypt(ctx, kp, ct)
		require.NoError(t, err)
		assert.Equal(t, []byte("secret"), pt)
	})

	t.Run("WrongPasscode", func(t *testing.T) {
		ct, err := cipher.Encrypt(kp, []byte("secret"))
		require.NoError(t, err)

		wrong := "0000"
		passcode.Store(&wrong)
		t.Cleanup(func() {
			right := "1234"
			passcode.Store(&right)
		})

		_, err = signer.Sign(ctx, kp, []byte("hello"))
		assert.ErrorIs(t, err, signing.ErrSigning)
		assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)

		_, err = cipher.Decrypt(ctx, kp, ct)
		assert.ErrorIs(t, err, encryption.ErrDecryption)
		assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, ks.Delete("hw.key"))

		_, err := ks.Find("hw.key", policy)
		assert.ErrorIs(t, err, keychain.ErrKeyNotFound)
	})
}
