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

package keychain_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/backend/software"
	"github.com/jeremyhahn/go-seckey/pkg/encoding"
	"github.com/jeremyhahn/go-seckey/pkg/keychain"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/storage"
	"github.com/jeremyhahn/go-seckey/pkg/storage/memory"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

var (
	p256Signing    = types.SigningKeySpec(types.CurveP256)
	p256Encryption = types.EncryptionKeySpec(types.CurveP256)

	boundPolicy = types.Policy{
		Storage:       types.StorageSoftware,
		Accessibility: types.AccessibleWhenUnlockedThisDeviceOnly,
		Auth:          types.AuthNone,
	}
	protectedPolicy = types.Policy{
		Storage:       types.StorageSoftware,
		Accessibility: types.AccessibleAlways,
		Auth:          types.AuthBiometryOrPasscode,
	}
)

// newKeyStore creates a key store with a software backend on keyStorage.
func newKeyStore(t *testing.T, keyStorage storage.Backend, opts ...func(*keychain.Config)) *keychain.KeyStore {
	t.Helper()

	sw, err := software.NewBackend(&software.Config{
		KeyStorage: keyStorage,
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)

	config := &keychain.Config{
		Software: sw,
		DeviceID: "device-a",
		Logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(config)
	}

	ks, err := keychain.New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	return ks
}

func withAuthenticator(a auth.Authenticator) func(*keychain.Config) {
	return func(c *keychain.Config) { c.Authenticator = a }
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := keychain.New(nil)
	assert.ErrorIs(t, err, keychain.ErrInvalidConfig)

	_, err = keychain.New(&keychain.Config{})
	assert.ErrorIs(t, err, keychain.ErrInvalidConfig)

	sw, err := software.NewBackend(&software.Config{KeyStorage: memory.New()})
	require.NoError(t, err)

	_, err = keychain.New(&keychain.Config{Software: sw, Hardware: sw})
	assert.ErrorIs(t, err, keychain.ErrInvalidConfig, "software backend is not hardware backed")

	_, err = keychain.New(&keychain.Config{Software: sw, AuthTimeout: -time.Second})
	assert.ErrorIs(t, err, keychain.ErrInvalidConfig)
}

func TestNew_DefaultDeviceID(t *testing.T) {
	ks := newKeyStore(t, memory.New(), func(c *keychain.Config) { c.DeviceID = "" })
	assert.NotEmpty(t, ks.DeviceID())
	assert.False(t, ks.HardwareAvailable())
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	first, err := ks.GetOrCreate(ctx, "demo.key", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)
	second, err := ks.GetOrCreate(ctx, "demo.key", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)

	assert.Equal(t, first.Ref(), second.Ref())
	assert.Equal(t, first.PublicBytes(), second.PublicBytes())
	assert.Equal(t, types.KeyID("demo.key"), second.ID())
	assert.Equal(t, types.DefaultPolicy(), second.Policy())
	assert.Equal(t, p256Signing, second.Spec())
	assert.Equal(t, types.BackendTypeSoftware, second.Backend())
	assert.Equal(t, "device-a", second.DeviceID())
	assert.False(t, second.HardwareBacked())
	assert.False(t, second.Created().IsZero())
}

func TestGetOrCreate_InvalidArguments(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	tests := []struct {
		name   string
		id     types.KeyID
		policy types.Policy
		spec   types.KeySpec
		cause  error
	}{
		{"EmptyID", "", types.DefaultPolicy(), p256Signing, types.ErrInvalidKeyID},
		{"TraversalID", "../x", types.DefaultPolicy(), p256Signing, types.ErrInvalidKeyID},
		{"HardwareAlways", "k", types.Policy{
			Storage:       types.StorageHardware,
			Accessibility: types.AccessibleAlways,
			Auth:          types.AuthNone,
		}, p256Signing, types.ErrInvalidPolicy},
		{"EmptySpec", "k", types.DefaultPolicy(), types.KeySpec{Curve: types.CurveP256}, types.ErrInvalidKeySpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ks.GetOrCreate(ctx, tt.id, tt.policy, tt.spec)
			assert.ErrorIs(t, err, keychain.ErrKeyGeneration)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestGetOrCreate_HardwareUnavailable(t *testing.T) {
	ks := newKeyStore(t, memory.New())

	_, err := ks.GetOrCreate(context.Background(), "hw", types.HardwarePolicy(types.AuthNone), p256Signing)
	assert.ErrorIs(t, err, keychain.ErrKeyGeneration)

	_, err = ks.Find("hw", types.HardwarePolicy(types.AuthNone))
	assert.ErrorIs(t, err, keychain.ErrKeyNotFound)
}

// signOnlyBackend hides key agreement support of the wrapped backend.
type signOnlyBackend struct {
	backend.Backend
}

func (b signOnlyBackend) Capabilities() types.Capabilities {
	caps := b.Backend.Capabilities()
	caps.KeyAgreement = false
	return caps
}

func TestGetOrCreate_BackendCapabilities(t *testing.T) {
	sw, err := software.NewBackend(&software.Config{
		KeyStorage: memory.New(),
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)

	ks, err := keychain.New(&keychain.Config{
		Software: signOnlyBackend{sw},
		DeviceID: "device-a",
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	ctx := context.Background()

	_, err = ks.GetOrCreate(ctx, "sig", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)

	_, err = ks.GetOrCreate(ctx, "enc", types.DefaultPolicy(), p256Encryption)
	assert.ErrorIs(t, err, keychain.ErrKeyGeneration)

	_, err = ks.GetOrCreate(ctx, "dual", types.DefaultPolicy(), types.DualUseKeySpec(types.CurveP256))
	assert.ErrorIs(t, err, keychain.ErrKeyGeneration)
}

func TestGetOrCreate_PolicyMismatch(t *testing.T) {
	ks := newKeyStore(t, memory.New(), withAuthenticator(auth.Static("1234")))
	ctx := context.Background()

	_, err := ks.GetOrCreate(ctx, "tagged", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)

	_, err = ks.Find("tagged", protectedPolicy)
	assert.ErrorIs(t, err, keychain.ErrKeyNotFound)

	_, err = ks.GetOrCreate(ctx, "tagged", protectedPolicy, p256Signing)
	assert.ErrorIs(t, err, keychain.ErrKeyGeneration)
}

func TestGetOrCreate_SpecMismatch(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	_, err := ks.GetOrCreate(ctx, "tagged", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)

	_, err = ks.GetOrCreate(ctx, "tagged", types.DefaultPolicy(), p256Encryption)
	assert.ErrorIs(t, err, keychain.ErrKeyGeneration)
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	ks := newKeyStore(t, memory.New())

	const workers = 16
	pairs := make([]*keychain.KeyPair, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pairs[i], errs[i] = ks.GetOrCreate(context.Background(), "shared", types.DefaultPolicy(), p256Signing)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, pairs[0].Ref(), pairs[i].Ref())
	}

	keys, err := ks.List()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestGetOrCreate_RaceAcrossStores(t *testing.T) {
	shared := memory.New()
	stores := []*keychain.KeyStore{
		newKeyStore(t, shared),
		newKeyStore(t, shared),
		newKeyStore(t, shared),
	}

	pairs := make([]*keychain.KeyPair, len(stores))
	errs := make([]error, len(stores))

	var wg sync.WaitGroup
	for i, ks := range stores {
		wg.Add(1)
		go func(i int, ks *keychain.KeyStore) {
			defer wg.Done()
			pairs[i], errs[i] = ks.GetOrCreate(context.Background(), "raced", types.DefaultPolicy(), p256Encryption)
		}(i, ks)
	}
	wg.Wait()

	for i := range stores {
		require.NoError(t, errs[i])
		assert.Equal(t, pairs[0].Ref(), pairs[i].Ref(), "every store returns the winner's key")
	}
}

func TestGetOrCreate_ConcurrentDifferentRequests(t *testing.T) {
	slow := auth.AuthenticatorFunc(func(ctx context.Context, req auth.Request) (*auth.Credential, error) {
		time.Sleep(200 * time.Millisecond)
		return auth.Static("1234").Authenticate(ctx, req)
	})
	ks := newKeyStore(t, memory.New(), withAuthenticator(slow))

	type request struct {
		policy types.Policy
		spec   types.KeySpec
	}
	requests := []request{
		{protectedPolicy, p256Signing},
		{types.DefaultPolicy(), p256Encryption},
	}
	pairs := make([]*keychain.KeyPair, len(requests))
	errs := make([]error, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req request) {
			defer wg.Done()
			time.Sleep(time.Duration(i) * 50 * time.Millisecond)
			pairs[i], errs[i] = ks.GetOrCreate(context.Background(), "k", req.policy, req.spec)
		}(i, req)
	}
	wg.Wait()

	created := 0
	for i, req := range requests {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], keychain.ErrKeyGeneration)
			continue
		}
		created++
		assert.Equal(t, req.policy, pairs[i].Policy())
		assert.Equal(t, req.spec, pairs[i].Spec())
	}
	assert.Equal(t, 1, created, "exactly one request owns the identifier")
}

func TestGetOrCreate_CollapsedCallerKeepsOwnContext(t *testing.T) {
	var challenges atomic.Int32
	slow := auth.AuthenticatorFunc(func(ctx context.Context, req auth.Request) (*auth.Credential, error) {
		challenges.Add(1)
		select {
		case <-time.After(200 * time.Millisecond):
			return auth.Static("1234").Authenticate(ctx, req)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	ks := newKeyStore(t, memory.New(), withAuthenticator(slow))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := ks.GetOrCreate(leaderCtx, "k", protectedPolicy, p256Signing)
		leaderErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	kp, err := ks.GetOrCreate(context.Background(), "k", protectedPolicy, p256Signing)
	require.NoError(t, err)
	assert.Equal(t, protectedPolicy, kp.Policy())

	err = <-leaderErr
	assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), challenges.Load(), "the follower authenticates for itself")
}

func TestDelete(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	kp, err := ks.GetOrCreate(ctx, "demo.key", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)

	require.NoError(t, ks.Delete("demo.key"))

	_, err = ks.Find("demo.key", types.DefaultPolicy())
	assert.ErrorIs(t, err, keychain.ErrKeyNotFound)

	err = ks.Delete("demo.key")
	assert.ErrorIs(t, err, keychain.ErrKeyNotFound, "double delete is an error")

	_, err = kp.Signer(ctx)
	assert.ErrorIs(t, err, keychain.ErrKeyNotFound, "stale handle must not reach the deleted key")

	recreated, err := ks.GetOrCreate(ctx, "demo.key", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)
	assert.NotEqual(t, kp.Ref(), recreated.Ref())
	assert.NotEqual(t, kp.PublicBytes(), recreated.PublicBytes())
}

func TestList(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	keys, err := ks.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, id := range []types.KeyID{"a", "b", "c"} {
		_, err := ks.GetOrCreate(ctx, id, types.DefaultPolicy(), p256Signing)
		require.NoError(t, err)
	}

	keys, err = ks.List()
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, types.KeyID("a"), keys[0].ID())
	assert.Equal(t, types.KeyID("c"), keys[2].ID())
}

func TestExportPublicBytes(t *testing.T) {
	ks := newKeyStore(t, memory.New())

	for _, curve := range []types.Curve{types.CurveP256, types.CurveP384} {
		t.Run(string(curve), func(t *testing.T) {
			kp, err := ks.GetOrCreate(context.Background(), types.KeyID("export-"+string(curve)),
				types.DefaultPolicy(), types.SigningKeySpec(curve))
			require.NoError(t, err)

			raw := ks.ExportPublicBytes(kp)
			require.Len(t, raw, curve.PointSize())
			assert.Equal(t, byte(0x04), raw[0])

			pub, err := encoding.ParsePublicKey(curve, raw)
			require.NoError(t, err)
			assert.True(t, kp.Public().Equal(pub))
		})
	}
}

func TestSigner_Unsupported(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	enc, err := ks.GetOrCreate(ctx, "enc", types.DefaultPolicy(), p256Encryption)
	require.NoError(t, err)
	_, err = enc.Signer(ctx)
	assert.ErrorIs(t, err, keychain.ErrUnsupportedKey)

	sig, err := ks.GetOrCreate(ctx, "sig", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)
	_, err = sig.KeyAgreement(ctx)
	assert.ErrorIs(t, err, keychain.ErrUnsupportedKey)
}

func TestKeyAgreement(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	kp, err := ks.GetOrCreate(ctx, "enc", types.DefaultPolicy(), p256Encryption)
	require.NoError(t, err)

	ka, err := kp.KeyAgreement(ctx)
	require.NoError(t, err)

	peer, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	pub, err := kp.Public().ECDH()
	require.NoError(t, err)

	want, err := peer.ECDH(pub)
	require.NoError(t, err)
	got, err := ka.ECDH(peer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthentication(t *testing.T) {
	shared := memory.New()
	ctx := context.Background()

	var challenges atomic.Int32
	counting := auth.AuthenticatorFunc(func(ctx context.Context, req auth.Request) (*auth.Credential, error) {
		challenges.Add(1)
		return auth.Static("1234").Authenticate(ctx, req)
	})

	ks := newKeyStore(t, shared, withAuthenticator(counting))
	kp, err := ks.GetOrCreate(ctx, "protected", protectedPolicy, p256Signing)
	require.NoError(t, err)
	assert.Equal(t, int32(1), challenges.Load(), "generation challenges the user")

	_, err = ks.GetOrCreate(ctx, "protected", protectedPolicy, p256Signing)
	require.NoError(t, err)
	assert.Equal(t, int32(1), challenges.Load(), "lookup does not challenge")

	_, err = kp.Signer(ctx)
	require.NoError(t, err)
	_, err = kp.Signer(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), challenges.Load(), "every private key use challenges")

	t.Run("Denied", func(t *testing.T) {
		denied := newKeyStore(t, shared, withAuthenticator(auth.Deny()))
		kp, err := denied.Find("protected", protectedPolicy)
		require.NoError(t, err)

		_, err = kp.Signer(ctx)
		assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
		assert.ErrorIs(t, err, auth.ErrDenied)

		_, err = denied.GetOrCreate(ctx, "other", protectedPolicy, p256Signing)
		assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
	})

	t.Run("WrongPasscode", func(t *testing.T) {
		wrong := newKeyStore(t, shared, withAuthenticator(auth.Static("0000")))
		kp, err := wrong.Find("protected", protectedPolicy)
		require.NoError(t, err)

		_, err = kp.Signer(ctx)
		assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
		assert.ErrorIs(t, err, backend.ErrInvalidCredential)
	})

	t.Run("NoAuthenticator", func(t *testing.T) {
		none := newKeyStore(t, shared)
		_, err := none.GetOrCreate(ctx, "other", protectedPolicy, p256Signing)
		assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
	})

	t.Run("NilCredential", func(t *testing.T) {
		empty := newKeyStore(t, shared, withAuthenticator(auth.AuthenticatorFunc(
			func(context.Context, auth.Request) (*auth.Credential, error) { return nil, nil })))
		_, err := empty.GetOrCreate(ctx, "other", protectedPolicy, p256Signing)
		assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
	})
}

func TestAuthentication_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// Ignores its context so only the key store's bound applies.
	stuck := auth.AuthenticatorFunc(func(context.Context, auth.Request) (*auth.Credential, error) {
		<-release
		return nil, errors.New("released")
	})

	ks := newKeyStore(t, memory.New(), withAuthenticator(stuck), func(c *keychain.Config) {
		c.AuthTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	_, err := ks.GetOrCreate(context.Background(), "slow", protectedPolicy, p256Signing)
	assert.ErrorIs(t, err, keychain.ErrAuthenticationDenied)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDeviceLocked(t *testing.T) {
	var locked atomic.Bool
	ks := newKeyStore(t, memory.New(), func(c *keychain.Config) {
		c.LockState = keychain.LockStateFunc(locked.Load)
	})
	ctx := context.Background()

	locked.Store(true)
	_, err := ks.GetOrCreate(ctx, "bound", boundPolicy, p256Signing)
	assert.ErrorIs(t, err, keychain.ErrStoreAccess)
	assert.ErrorIs(t, err, keychain.ErrDeviceLocked)

	locked.Store(false)
	kp, err := ks.GetOrCreate(ctx, "bound", boundPolicy, p256Signing)
	require.NoError(t, err)

	locked.Store(true)
	_, err = ks.Find("bound", boundPolicy)
	assert.ErrorIs(t, err, keychain.ErrDeviceLocked)
	_, err = kp.Signer(ctx)
	assert.ErrorIs(t, err, keychain.ErrStoreAccess)
	assert.ErrorIs(t, err, keychain.ErrDeviceLocked)

	_, err = ks.GetOrCreate(ctx, "always", types.DefaultPolicy(), p256Signing)
	assert.NoError(t, err, "always accessible keys ignore the lock")
}

func TestDeviceMismatch(t *testing.T) {
	shared := memory.New()
	ctx := context.Background()

	a := newKeyStore(t, shared)
	_, err := a.GetOrCreate(ctx, "bound", boundPolicy, p256Signing)
	require.NoError(t, err)

	b := newKeyStore(t, shared, func(c *keychain.Config) { c.DeviceID = "device-b" })
	_, err = b.Find("bound", boundPolicy)
	assert.ErrorIs(t, err, keychain.ErrStoreAccess)
	assert.ErrorIs(t, err, keychain.ErrDeviceMismatch)

	_, err = b.GetOrCreate(ctx, "bound", boundPolicy, p256Signing)
	assert.ErrorIs(t, err, keychain.ErrDeviceMismatch)
}

func TestCorruptedRecord(t *testing.T) {
	keyStorage := memory.New()
	ks := newKeyStore(t, keyStorage)

	require.NoError(t, keyStorage.Put(storage.KeyPath("broken"), []byte("{not json"), storage.DefaultOptions()))

	_, err := ks.Find("broken", types.DefaultPolicy())
	assert.ErrorIs(t, err, keychain.ErrStoreAccess)
	assert.ErrorIs(t, err, backend.ErrStoreCorrupted)

	_, err = ks.GetOrCreate(context.Background(), "broken", types.DefaultPolicy(), p256Signing)
	assert.ErrorIs(t, err, keychain.ErrStoreAccess)

	require.NoError(t, ks.Delete("broken"), "corrupted records can be deleted")
	_, err = ks.Find("broken", types.DefaultPolicy())
	assert.ErrorIs(t, err, keychain.ErrKeyNotFound)
}

func TestStorageFailure(t *testing.T) {
	ks := newKeyStore(t, &failingStorage{err: errors.New("disk on fire")})

	_, err := ks.Find("any", types.DefaultPolicy())
	assert.ErrorIs(t, err, keychain.ErrStoreAccess)
	assert.ErrorIs(t, err, backend.ErrStorage)

	_, err = ks.List()
	assert.ErrorIs(t, err, keychain.ErrStoreAccess)
}

func TestClose(t *testing.T) {
	ks := newKeyStore(t, memory.New())
	ctx := context.Background()

	kp, err := ks.GetOrCreate(ctx, "k", types.DefaultPolicy(), p256Signing)
	require.NoError(t, err)

	require.NoError(t, ks.Close())
	require.NoError(t, ks.Close())

	_, err = ks.Find("k", types.DefaultPolicy())
	assert.ErrorIs(t, err, keychain.ErrClosed)
	_, err = ks.GetOrCreate(ctx, "k", types.DefaultPolicy(), p256Signing)
	assert.ErrorIs(t, err, keychain.ErrClosed)
	assert.ErrorIs(t, ks.Delete("k"), keychain.ErrClosed)
	_, err = ks.List()
	assert.ErrorIs(t, err, keychain.ErrClosed)
	_, err = kp.Signer(ctx)
	assert.ErrorIs(t, err, keychain.ErrClosed)
}

// failingStorage fails every operation.
type failingStorage struct {
	err error
}

func (s *failingStorage) Get(string) ([]byte, error)                  { return nil, s.err }
func (s *failingStorage) Put(string, []byte, *storage.Options) error { return s.err }
func (s *failingStorage) Delete(string) error                        { return s.err }
func (s *failingStorage) List(string) ([]string, error)              { return nil, s.err }
func (s *failingStorage) Exists(string) (bool, error)                { return false, s.err }
func (s *failingStorage) Close() error                               { return nil }
