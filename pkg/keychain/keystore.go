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
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/metrics"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// KeyStore finds, creates and deletes persisted key pairs.
//
// Thread-safe: Yes. Concurrent identical GetOrCreate calls are collapsed
// into one; a create race lost to another process returns
// the winner's key.
type KeyStore struct {
	software      backend.Backend
	hardware      backend.Backend
	authenticator auth.Authenticator
	lockState     LockState
	deviceID      string
	authTimeout   time.Duration
	logger        *logging.Logger
	group         singleflight.Group
	closed        bool
	mu            sync.RWMutex
}

// New creates a key store over the configured backends. The key store
// takes ownership of the backends and closes them on Close.
func New(config *Config) (*KeyStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	lockState := config.LockState
	if lockState == nil {
		lockState = Unlocked
	}
	timeout := config.AuthTimeout
	if timeout == 0 {
		timeout = DefaultAuthTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &KeyStore{
		software:      config.Software,
		hardware:      config.Hardware,
		authenticator: config.Authenticator,
		lockState:     lockState,
		deviceID:      config.deviceID(),
		authTimeout:   timeout,
		logger:        logger,
	}, nil
}

// DeviceID returns the identifier recorded with new keys.
func (ks *KeyStore) DeviceID() string {
	return ks.deviceID
}

// HardwareAvailable reports whether a hardware backend is configured.
func (ks *KeyStore) HardwareAvailable() bool {
	return ks.hardware != nil
}

// GetOrCreate returns the key stored under id with the given policy,
// generating and persisting a new key pair for spec if there is none.
//
// A key stored under id with a different policy is not returned; since
// identifiers are unique the create then fails with ErrKeyGeneration. A
// matching key with a different spec also fails with ErrKeyGeneration.
//
// Concurrent calls are collapsed only when id, policy and spec all match.
// A collapsed caller whose leader was canceled or timed out retries under
// its own context.
func (ks *KeyStore) GetOrCreate(ctx context.Context, id types.KeyID, policy types.Policy, spec types.KeySpec) (*KeyPair, error) {
	if err := validateRequest(id, policy, spec); err != nil {
		return nil, err
	}

	flight := strings.Join([]string{id.String(), policy.String(), spec.String()}, "|")
	for {
		led := false
		results := ks.group.DoChan(flight, func() (any, error) {
			led = true
			return ks.getOrCreate(ctx, id, policy, spec)
		})

		var res singleflight.Result
		select {
		case res = <-results:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrKeyGeneration, ctx.Err())
		}

		if res.Err != nil {
			if !led && ctx.Err() == nil && isContextError(res.Err) {
				ks.logger.Debug("leader of collapsed get-or-create gave up, retrying", "id", id, "error", res.Err)
				continue
			}
			return nil, res.Err
		}
		if res.Shared {
			ks.logger.Debug("collapsed concurrent get-or-create", "id", id)
		}

		kp := res.Val.(*KeyPair)
		if kp.Policy() != policy || kp.Spec() != spec {
			return nil, fmt.Errorf("%w: key %s exists with policy %s and spec %s",
				ErrKeyGeneration, id, kp.Policy(), kp.Spec())
		}
		return kp, nil
	}
}

func (ks *KeyStore) getOrCreate(ctx context.Context, id types.KeyID, policy types.Policy, spec types.KeySpec) (*KeyPair, error) {
	kp, err := ks.Find(id, policy)
	switch {
	case err == nil:
		if kp.Spec() != spec {
			return nil, fmt.Errorf("%w: key %s exists with spec %s", ErrKeyGeneration, id, kp.Spec())
		}
		return kp, nil
	case !errors.Is(err, ErrKeyNotFound):
		return nil, err
	}
	return ks.create(ctx, id, policy, spec)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (ks *KeyStore) create(ctx context.Context, id types.KeyID, policy types.Policy, spec types.KeySpec) (*KeyPair, error) {
	be, err := ks.backendFor(policy)
	if err != nil {
		return nil, err
	}
	caps := be.Capabilities()
	if !caps.SupportsCurve(spec.Curve) {
		return nil, fmt.Errorf("%w: %s backend does not support %s", ErrKeyGeneration, be.Type(), spec.Curve)
	}
	if spec.CanSign() && !caps.Signing {
		return nil, fmt.Errorf("%w: %s backend cannot sign", ErrKeyGeneration, be.Type())
	}
	if spec.CanEncrypt() && !caps.KeyAgreement {
		return nil, fmt.Errorf("%w: %s backend cannot perform key agreement", ErrKeyGeneration, be.Type())
	}
	if policy.DeviceBound() && ks.lockState.Locked() {
		return nil, fmt.Errorf("%w: %w", ErrStoreAccess, ErrDeviceLocked)
	}

	var cred *auth.Credential
	if policy.RequiresAuth() {
		cred, err = ks.authenticate(ctx, id, auth.OpGenerate)
		if err != nil {
			return nil, err
		}
		defer cred.Clear()
	}

	timer := metrics.NewTimer(metrics.OpGenerate, be.Type().String())
	key, err := be.Generate(&backend.GenerateRequest{
		ID:         id,
		Spec:       spec,
		Policy:     policy,
		DeviceID:   ks.deviceID,
		Credential: cred,
	})
	if errors.Is(err, backend.ErrKeyAlreadyExists) {
		timer.Observe(nil)
		ks.logger.Debug("lost create race, fetching stored key", "id", id)
		kp, err := ks.Find(id, policy)
		if errors.Is(err, ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s is stored with another policy", ErrKeyGeneration, id)
		}
		if err == nil && kp.Spec() != spec {
			return nil, fmt.Errorf("%w: key %s exists with spec %s", ErrKeyGeneration, id, kp.Spec())
		}
		return kp, err
	}
	if err != nil {
		err = ks.generationError(id, err)
		timer.ObserveError(err, errorType(err))
		return nil, err
	}
	timer.Observe(nil)

	ks.logger.Info("created key", "id", id, "backend", be.Type(), "policy", policy.String(), "spec", spec.String())
	return newKeyPair(ks, be, key), nil
}

// Find returns the key stored under id if it was created with policy.
func (ks *KeyStore) Find(id types.KeyID, policy types.Policy) (*KeyPair, error) {
	if err := ks.checkOpen(); err != nil {
		return nil, err
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	be, err := ks.backendFor(policy)
	if err != nil {
		// No key can be stored in an unavailable backend.
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}

	timer := metrics.NewTimer(metrics.OpGet, be.Type().String())
	key, err := be.Find(id)
	if err != nil {
		err = ks.storeError(id, err)
		timer.ObserveError(err, errorType(err))
		return nil, err
	}
	if key.Policy != policy {
		err = fmt.Errorf("%w: %s (stored with policy %s)", ErrKeyNotFound, id, key.Policy)
		timer.ObserveError(err, errorType(err))
		return nil, err
	}
	if err := ks.checkAccess(key); err != nil {
		timer.ObserveError(err, errorType(err))
		return nil, err
	}
	timer.Observe(nil)

	return newKeyPair(ks, be, key), nil
}

// Delete removes the key stored under id from whichever backend holds it.
// Deleting an absent key fails with ErrKeyNotFound.
func (ks *KeyStore) Delete(id types.KeyID) error {
	if err := ks.checkOpen(); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		return err
	}

	for _, be := range ks.backends() {
		timer := metrics.NewTimer(metrics.OpDelete, be.Type().String())
		err := be.Delete(id)
		if errors.Is(err, backend.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			err = ks.storeError(id, err)
			timer.ObserveError(err, errorType(err))
			return err
		}
		timer.Observe(nil)
		ks.logger.Info("deleted key", "id", id, "backend", be.Type())
		return nil
	}

	metrics.RecordError(metrics.OpDelete, "", errorType(ErrKeyNotFound))
	return fmt.Errorf("%w: %s", ErrKeyNotFound, id)
}

// List returns every stored key across backends, including keys that are
// currently inaccessible because of the device state.
func (ks *KeyStore) List() ([]*KeyPair, error) {
	if err := ks.checkOpen(); err != nil {
		return nil, err
	}

	var pairs []*KeyPair
	for _, be := range ks.backends() {
		timer := metrics.NewTimer(metrics.OpList, be.Type().String())
		keys, err := be.List()
		if err != nil {
			err = ks.storeError("", err)
			timer.ObserveError(err, errorType(err))
			return nil, err
		}
		timer.Observe(nil)
		metrics.SetKeysTotal(be.Type().String(), float64(len(keys)))

		for _, key := range keys {
			pairs = append(pairs, newKeyPair(ks, be, key))
		}
	}
	return pairs, nil
}

// ExportPublicBytes returns the uncompressed X9.63 public key of kp. The
// private half is never exported.
func (ks *KeyStore) ExportPublicBytes(kp *KeyPair) []byte {
	return kp.PublicBytes()
}

// Close closes the backends. Further calls fail with ErrClosed.
func (ks *KeyStore) Close() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.closed {
		return nil
	}
	ks.closed = true

	var errs []error
	for _, be := range ks.backends() {
		if err := be.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s backend: %w", be.Type(), err))
		}
	}
	return errors.Join(errs...)
}

func (ks *KeyStore) checkOpen() error {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.closed {
		return ErrClosed
	}
	return nil
}

func (ks *KeyStore) backends() []backend.Backend {
	if ks.hardware == nil {
		return []backend.Backend{ks.software}
	}
	return []backend.Backend{ks.software, ks.hardware}
}

// backendFor selects the backend for a policy's storage class. There is
// no fallback from hardware to software.
func (ks *KeyStore) backendFor(policy types.Policy) (backend.Backend, error) {
	if policy.Storage != types.StorageHardware {
		return ks.software, nil
	}
	if ks.hardware == nil {
		return nil, fmt.Errorf("%w: no secure hardware available", ErrKeyGeneration)
	}
	return ks.hardware, nil
}

// checkAccess enforces the accessibility class of a device bound key.
func (ks *KeyStore) checkAccess(key *backend.Key) error {
	if !key.Policy.DeviceBound() {
		return nil
	}
	if key.DeviceID != ks.deviceID {
		return fmt.Errorf("%w: %w: %s was created on %q", ErrStoreAccess, ErrDeviceMismatch, key.ID, key.DeviceID)
	}
	if ks.lockState.Locked() {
		return fmt.Errorf("%w: %w", ErrStoreAccess, ErrDeviceLocked)
	}
	return nil
}

func validateRequest(id types.KeyID, policy types.Policy, spec types.KeySpec) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	return nil
}
