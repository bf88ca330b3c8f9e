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

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeremyhahn/go-seckey/internal/config"
	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/backend/software"
	"github.com/jeremyhahn/go-seckey/pkg/backend/tpm2"
	"github.com/jeremyhahn/go-seckey/pkg/encryption"
	"github.com/jeremyhahn/go-seckey/pkg/keychain"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/metrics"
	"github.com/jeremyhahn/go-seckey/pkg/signing"
	"github.com/jeremyhahn/go-seckey/pkg/storage"
	"github.com/jeremyhahn/go-seckey/pkg/storage/file"
	"github.com/jeremyhahn/go-seckey/pkg/storage/memory"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// session is an open key store with its services for one command.
type session struct {
	keys    *keychain.KeyStore
	signer  *signing.Service
	cipher  *encryption.Service
	logger  *logging.Logger
	storage storage.Backend
}

// openSession wires the configured storage, backends and authenticator
// into a KeyStore.
func (o *rootOptions) openSession(stderr io.Writer) (*session, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	logOpts := cfg.Logging.Options()
	logOpts.Writer = stderr
	if o.verbose {
		logOpts.Level = "debug"
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	metrics.SetEnabled(cfg.Metrics.Enabled)

	keyStorage, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	sw, err := software.NewBackend(&software.Config{
		KeyStorage: keyStorage,
		Logger:     logger,
	})
	if err != nil {
		_ = keyStorage.Close()
		return nil, fmt.Errorf("failed to create software backend: %w", err)
	}

	var (
		hardware backend.Backend
		random   io.Reader
	)
	if cfg.Hardware.Enabled {
		tpm, err := tpm2.NewBackend(&tpm2.Config{
			Device:       cfg.Hardware.Device,
			UseSimulator: cfg.Hardware.Simulator,
			SRKHandle:    cfg.Hardware.SRKHandle,
			KeyStorage:   keyStorage,
			Logger:       logger,
		})
		if err != nil {
			logger.Warn("hardware backend unavailable", "device", cfg.Hardware.Device, "error", err)
		} else {
			hardware = tpm
			random = tpm.Random()
		}
	}

	ks, err := keychain.New(&keychain.Config{
		Software:      sw,
		Hardware:      hardware,
		Authenticator: auth.RateLimited(o.newAuthenticator(logger), cfg.Auth.AttemptsPerMinute),
		DeviceID:      cfg.DeviceID,
		AuthTimeout:   cfg.Auth.Timeout,
		Logger:        logger,
	})
	if err != nil {
		_ = sw.Close()
		if hardware != nil {
			_ = hardware.Close()
		}
		_ = keyStorage.Close()
		return nil, err
	}

	return &session{
		keys:    ks,
		signer:  signing.NewService(&signing.Config{Rand: random, Logger: logger}),
		cipher:  encryption.NewService(&encryption.Config{Rand: random, Logger: logger}),
		logger:  logger,
		storage: keyStorage,
	}, nil
}

func (o *rootOptions) newAuthenticator(logger *logging.Logger) auth.Authenticator {
	if o.authenticator != nil {
		return o.authenticator
	}
	if passcode := os.Getenv(PasscodeEnv); passcode != "" {
		logger.Debug("answering authentication challenges from the environment", "variable", PasscodeEnv)
		return auth.Static(passcode)
	}
	return auth.NewTerminal(os.Stdin, os.Stderr)
}

func newStorage(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageFile:
		s, err := file.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage backend: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// Close closes the key store and its storage.
func (s *session) Close() error {
	return errors.Join(s.keys.Close(), s.storage.Close())
}

// lookup finds a key by ID under whatever policy it was created with.
func (s *session) lookup(id string) (*keychain.KeyPair, error) {
	keyID := types.KeyID(id)
	if err := keyID.Validate(); err != nil {
		return nil, err
	}
	pairs, err := s.keys.List()
	if err != nil {
		return nil, err
	}
	for _, kp := range pairs {
		if kp.ID() == keyID {
			return s.keys.Find(keyID, kp.Policy())
		}
	}
	return nil, fmt.Errorf("%w: %s", keychain.ErrKeyNotFound, id)
}
