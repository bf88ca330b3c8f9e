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

package tpm2

import (
	"crypto"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"

	"github.com/jeremyhahn/go-seckey/pkg/auth"
	"github.com/jeremyhahn/go-seckey/pkg/backend"
	"github.com/jeremyhahn/go-seckey/pkg/crypto/kdf"
	"github.com/jeremyhahn/go-seckey/pkg/encoding"
	"github.com/jeremyhahn/go-seckey/pkg/logging"
	"github.com/jeremyhahn/go-seckey/pkg/storage"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

const (
	// Record parts holding the TPM2B_PRIVATE and TPM2B_PUBLIC blobs.
	materialPrivate = "private"
	materialPublic  = "public"

	authInfo = "seckey/tpm2/auth"
)

// simulatorOpener opens the embedded simulator. Set by build tag.
var simulatorOpener func() (transport.TPMCloser, error)

// Backend implements backend.Backend for TPM 2.0 hardware security modules.
//
// Thread-safe: Yes. TPM commands are serialized on a single mutex since a
// transient object must be loaded, used and flushed without interleaving.
type Backend struct {
	tpm         transport.TPMCloser
	storage     storage.Backend
	logger      *logging.Logger
	srkHandle   tpm2.TPMHandle
	srkName     tpm2.TPM2BName
	externalTPM bool
	closed      bool
	mu          sync.Mutex
}

// NewBackend opens the TPM, provisions the Storage Root Key if it is not
// yet persisted and returns a ready backend.
func NewBackend(config *Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg := *config
	cfg.setDefaults()

	b := &Backend{
		storage:   cfg.KeyStorage,
		logger:    cfg.Logger.With("backend", types.BackendTypeTPM2.String()),
		srkHandle: tpm2.TPMHandle(cfg.SRKHandle),
	}

	switch {
	case cfg.Transport != nil:
		b.tpm = cfg.Transport
		b.externalTPM = true
	case cfg.UseSimulator:
		b.logger.Info("opening TPM simulator")
		tpm, err := simulatorOpener()
		if err != nil {
			return nil, err
		}
		b.tpm = tpm
	default:
		b.logger.Info("opening TPM device", "device", cfg.Device)
		tpm, err := transport.OpenTPM(cfg.Device)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTPMNotAvailable, cfg.Device, err)
		}
		b.tpm = tpm
	}

	if err := b.provisionSRK(); err != nil {
		if !b.externalTPM {
			_ = b.tpm.Close()
		}
		return nil, err
	}
	return b, nil
}

// provisionSRK reads the SRK name from its persistent handle, creating and
// persisting an ECC SRK first if the handle is empty.
func (b *Backend) provisionSRK() error {
	readPub, err := tpm2.ReadPublic{ObjectHandle: b.srkHandle}.Execute(b.tpm)
	if err == nil {
		b.srkName = readPub.Name
		return nil
	}

	b.logger.Info("creating storage root key", "handle", fmt.Sprintf("0x%08x", uint32(b.srkHandle)))

	primary, err := tpm2.CreatePrimary{
		PrimaryHandle: tpm2.AuthHandle{
			Handle: tpm2.TPMRHOwner,
			Auth:   tpm2.PasswordAuth(nil),
		},
		InPublic: tpm2.New2B(tpm2.ECCSRKTemplate),
	}.Execute(b.tpm)
	if err != nil {
		return fmt.Errorf("%w: failed to create SRK: %v", ErrTPMNotAvailable, err)
	}
	defer b.flush(primary.ObjectHandle)

	_, err = tpm2.EvictControl{
		Auth: tpm2.TPMRHOwner,
		ObjectHandle: &tpm2.NamedHandle{
			Handle: primary.ObjectHandle,
			Name:   primary.Name,
		},
		PersistentHandle: b.srkHandle,
	}.Execute(b.tpm)
	if err != nil {
		return fmt.Errorf("%w: failed to persist SRK: %v", ErrTPMNotAvailable, err)
	}

	b.srkName = primary.Name
	return nil
}

// Type returns the backend type.
func (b *Backend) Type() types.BackendType {
	return types.BackendTypeTPM2
}

// Capabilities reports TPM key support.
func (b *Backend) Capabilities() types.Capabilities {
	return types.Capabilities{
		HardwareBacked: true,
		Curves:         []types.Curve{types.CurveP256},
		Signing:        true,
		KeyAgreement:   true,
	}
}

// Find returns the TPM key stored under id.
func (b *Backend) Find(id types.KeyID) (*backend.Key, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.ErrClosed
	}

	key, _, err := backend.LoadRecord(b.storage, id, b.Type())
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Generate creates a key under the SRK and persists its wrapped blobs.
func (b *Backend) Generate(req *backend.GenerateRequest) (*backend.Key, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.ErrClosed
	}
	if err := b.validateRequest(req); err != nil {
		return nil, err
	}

	key := backend.NewKey(req, b.Type(), nil)
	authValue, err := authValueFor(key, req.Credential)
	if err != nil {
		return nil, err
	}

	create := tpm2.Create{
		ParentHandle: tpm2.AuthHandle{
			Handle: b.srkHandle,
			Name:   b.srkName,
			Auth:   tpm2.PasswordAuth(nil),
		},
		InPublic: tpm2.New2B(keyTemplate(req.Spec)),
	}
	if len(authValue) > 0 {
		create.InSensitive = tpm2.TPM2BSensitiveCreate{
			Sensitive: &tpm2.TPMSSensitiveCreate{
				UserAuth: tpm2.TPM2BAuth{Buffer: authValue},
			},
		}
	}

	resp, err := create.Execute(b.tpm)
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to create %s key: %w", req.Spec.Curve, err)
	}

	pub, err := publicKey(resp.OutPublic)
	if err != nil {
		return nil, err
	}
	key.Public = pub

	material := backend.Material{
		materialPrivate: tpm2.Marshal(resp.OutPrivate),
		materialPublic:  tpm2.Marshal(resp.OutPublic),
	}
	if err := backend.CreateRecord(b.storage, key, material); err != nil {
		return nil, err
	}

	b.logger.Debug("generated key", "id", req.ID, "ref", key.Ref, "spec", req.Spec.String())
	return key, nil
}

// Delete removes the TPM key stored under id. The key only ever existed in
// the TPM as a transient object, so removing its blobs destroys it.
func (b *Backend) Delete(id types.KeyID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return backend.ErrClosed
	}
	return backend.DeleteRecord(b.storage, id, b.Type())
}

// List returns all TPM keys.
func (b *Backend) List() ([]*backend.Key, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.ErrClosed
	}
	return backend.ListRecords(b.storage, b.Type())
}

// Signer returns a crypto.Signer that signs inside the TPM.
func (b *Backend) Signer(key *backend.Key, cred *auth.Credential) (crypto.Signer, error) {
	if !key.Spec.CanSign() {
		return nil, fmt.Errorf("%w: key %s has no signature algorithm", backend.ErrNotSupported, key.ID)
	}
	obj, err := b.object(key, cred)
	if err != nil {
		return nil, err
	}
	return &signer{backend: b, object: obj}, nil
}

// KeyAgreement returns an ECDH capability computed by TPM2_ECDH_ZGen.
func (b *Backend) KeyAgreement(key *backend.Key, cred *auth.Credential) (types.KeyAgreement, error) {
	if !key.Spec.CanEncrypt() {
		return nil, fmt.Errorf("%w: key %s has no cipher algorithm", backend.ErrNotSupported, key.ID)
	}
	obj, err := b.object(key, cred)
	if err != nil {
		return nil, err
	}
	return &keyAgreement{backend: b, object: obj}, nil
}

// Close closes the TPM connection unless it was supplied by the caller.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.externalTPM {
		return nil
	}
	return b.tpm.Close()
}

// object is a stored key ready to be loaded for a single operation.
type object struct {
	key       *backend.Key
	private   tpm2.TPM2BPrivate
	public    tpm2.TPM2BPublic
	authValue []byte
}

// object reads the key's current blobs and derives its auth value.
func (b *Backend) object(key *backend.Key, cred *auth.Credential) (*object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.ErrClosed
	}

	authValue, err := authValueFor(key, cred)
	if err != nil {
		return nil, err
	}

	material, err := backend.LoadMaterial(b.storage, key)
	if err != nil {
		return nil, err
	}
	private, err := tpm2.Unmarshal[tpm2.TPM2BPrivate](material[materialPrivate])
	if err != nil {
		return nil, fmt.Errorf("%w: %w: private blob: %v", backend.ErrStoreCorrupted, ErrInvalidBlob, err)
	}
	public, err := tpm2.Unmarshal[tpm2.TPM2BPublic](material[materialPublic])
	if err != nil {
		return nil, fmt.Errorf("%w: %w: public blob: %v", backend.ErrStoreCorrupted, ErrInvalidBlob, err)
	}

	stored, err := publicKey(*public)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrStoreCorrupted, err)
	}
	if !stored.Equal(key.Public) {
		return nil, fmt.Errorf("%w: key %s blob does not match its public key", backend.ErrStoreCorrupted, key.ID)
	}

	return &object{
		key:       key,
		private:   *private,
		public:    *public,
		authValue: authValue,
	}, nil
}

// load makes obj a transient TPM object. The caller must hold b.mu and
// flush the returned handle.
func (b *Backend) load(obj *object) (*tpm2.LoadResponse, error) {
	if b.closed {
		return nil, backend.ErrClosed
	}
	resp, err := tpm2.Load{
		ParentHandle: tpm2.AuthHandle{
			Handle: b.srkHandle,
			Name:   b.srkName,
			Auth:   tpm2.PasswordAuth(nil),
		},
		InPrivate: obj.private,
		InPublic:  obj.public,
	}.Execute(b.tpm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", backend.ErrStoreCorrupted, ErrInvalidBlob, err)
	}
	return resp, nil
}

func (b *Backend) flush(handle tpm2.TPMHandle) {
	if _, err := (tpm2.FlushContext{FlushHandle: handle}).Execute(b.tpm); err != nil {
		b.logger.Warn("failed to flush transient handle", "handle", fmt.Sprintf("0x%08x", uint32(handle)), "error", err)
	}
}

func (b *Backend) validateRequest(req *backend.GenerateRequest) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", backend.ErrNotSupported)
	}
	if err := req.ID.Validate(); err != nil {
		return err
	}
	if err := req.Spec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrNotSupported, err)
	}
	if err := req.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrNotSupported, err)
	}
	if req.Policy.Storage != types.StorageHardware {
		return fmt.Errorf("%w: TPM backend only stores hardware keys", backend.ErrNotSupported)
	}
	if !b.Capabilities().SupportsCurve(req.Spec.Curve) {
		return fmt.Errorf("%w: curve %s on TPM", backend.ErrNotSupported, req.Spec.Curve)
	}
	return nil
}

// authValueFor derives the TPM object auth value from the credential for
// keys that require user authentication. The key's Ref salts the derivation
// so equal passcodes never produce equal auth values.
func authValueFor(key *backend.Key, cred *auth.Credential) ([]byte, error) {
	if !key.Policy.RequiresAuth() {
		return nil, nil
	}
	passcode := cred.Bytes()
	if len(passcode) == 0 {
		return nil, fmt.Errorf("%w: protected key requires a credential", backend.ErrInvalidCredential)
	}
	return kdf.HKDF(crypto.SHA256, passcode, key.Ref[:], []byte(authInfo), 32)
}

// keyTemplate returns an unrestricted ECC template with the usages the
// spec asks for. The scheme is left null so one key can both sign and
// perform ECDH.
func keyTemplate(spec types.KeySpec) tpm2.TPMTPublic {
	return tpm2.TPMTPublic{
		Type:    tpm2.TPMAlgECC,
		NameAlg: tpm2.TPMAlgSHA256,
		ObjectAttributes: tpm2.TPMAObject{
			FixedTPM:            true,
			FixedParent:         true,
			SensitiveDataOrigin: true,
			UserWithAuth:        true,
			SignEncrypt:         spec.CanSign(),
			Decrypt:             spec.CanEncrypt(),
		},
		Parameters: tpm2.NewTPMUPublicParms(
			tpm2.TPMAlgECC,
			&tpm2.TPMSECCParms{
				Scheme: tpm2.TPMTECCScheme{
					Scheme: tpm2.TPMAlgNull,
				},
				CurveID: tpm2.TPMECCNistP256,
			},
		),
	}
}

// publicKey extracts the P-256 public key from a TPM2B_PUBLIC.
func publicKey(public tpm2.TPM2BPublic) (*ecdsa.PublicKey, error) {
	pub, err := public.Contents()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	if pub.Type != tpm2.TPMAlgECC {
		return nil, fmt.Errorf("%w: not an ECC key", ErrInvalidBlob)
	}
	unique, err := pub.Unique.ECC()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}

	size := types.CurveP256.Size()
	if len(unique.X.Buffer) > size || len(unique.Y.Buffer) > size {
		return nil, fmt.Errorf("%w: oversized public point", ErrInvalidBlob)
	}
	raw := make([]byte, 1+2*size)
	raw[0] = 0x04
	copy(raw[1+size-len(unique.X.Buffer):1+size], unique.X.Buffer)
	copy(raw[1+2*size-len(unique.Y.Buffer):], unique.Y.Buffer)

	key, err := encoding.ParsePublicKey(types.CurveP256, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	return key, nil
}

// mapAuthError turns TPM authorization failures into ErrInvalidCredential.
func mapAuthError(key *backend.Key, err error) error {
	if errors.Is(err, tpm2.TPMRCAuthFail) || errors.Is(err, tpm2.TPMRCBadAuth) || errors.Is(err, tpm2.TPMRCLockout) {
		return fmt.Errorf("%w: key %s: %v", backend.ErrInvalidCredential, key.ID, err)
	}
	return err
}
