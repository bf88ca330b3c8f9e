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

package backend

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-seckey/pkg/encoding"
	"github.com/jeremyhahn/go-seckey/pkg/storage"
	"github.com/jeremyhahn/go-seckey/pkg/types"
)

// recordVersion is the current on-disk record layout.
const recordVersion = 1

// Key describes a stored key pair. It never carries private key material;
// backends load that from storage when a capability is requested.
type Key struct {
	ID       types.KeyID
	Ref      uuid.UUID
	Backend  types.BackendType
	Spec     types.KeySpec
	Policy   types.Policy
	Public   *ecdsa.PublicKey
	DeviceID string
	Created  time.Time
}

// PublicBytes returns the uncompressed X9.63 encoding of the public key.
func (k *Key) PublicBytes() []byte {
	raw, err := encoding.MarshalPublicKey(k.Public)
	if err != nil {
		return nil
	}
	return raw
}

// Material holds the backend specific private parts of a record, keyed by
// part name.
type Material map[string][]byte

type record struct {
	Version   int               `json:"version"`
	ID        types.KeyID       `json:"id"`
	Ref       uuid.UUID         `json:"ref"`
	Backend   types.BackendType `json:"backend"`
	Spec      types.KeySpec     `json:"spec"`
	Policy    types.Policy      `json:"policy"`
	PublicKey []byte            `json:"public_key"`
	DeviceID  string            `json:"device_id,omitempty"`
	Created   time.Time         `json:"created"`
	Material  Material          `json:"material"`
}

// NewKey returns a Key for req with a fresh Ref and creation time.
func NewKey(req *GenerateRequest, bt types.BackendType, pub *ecdsa.PublicKey) *Key {
	return &Key{
		ID:       req.ID,
		Ref:      uuid.New(),
		Backend:  bt,
		Spec:     req.Spec,
		Policy:   req.Policy,
		Public:   pub,
		DeviceID: req.DeviceID,
		Created:  time.Now().UTC(),
	}
}

// MarshalRecord encodes a key and its material for storage.
func MarshalRecord(key *Key, material Material) ([]byte, error) {
	pub, err := encoding.MarshalPublicKey(key.Public)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&record{
		Version:   recordVersion,
		ID:        key.ID,
		Ref:       key.Ref,
		Backend:   key.Backend,
		Spec:      key.Spec,
		Policy:    key.Policy,
		PublicKey: pub,
		DeviceID:  key.DeviceID,
		Created:   key.Created,
		Material:  material,
	})
}

// UnmarshalRecord decodes a stored record. Any structural problem,
// including a record without key material, is reported as ErrStoreCorrupted.
func UnmarshalRecord(data []byte) (*Key, Material, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreCorrupted, err)
	}
	if rec.Version != recordVersion {
		return nil, nil, fmt.Errorf("%w: unknown record version %d", ErrStoreCorrupted, rec.Version)
	}
	if err := rec.ID.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreCorrupted, err)
	}
	if err := rec.Spec.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreCorrupted, err)
	}
	if err := rec.Policy.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreCorrupted, err)
	}
	if len(rec.Material) == 0 {
		return nil, nil, fmt.Errorf("%w: key %q has no key material", ErrStoreCorrupted, rec.ID)
	}
	pub, err := encoding.ParsePublicKey(rec.Spec.Curve, rec.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreCorrupted, err)
	}

	return &Key{
		ID:       rec.ID,
		Ref:      rec.Ref,
		Backend:  rec.Backend,
		Spec:     rec.Spec,
		Policy:   rec.Policy,
		Public:   pub,
		DeviceID: rec.DeviceID,
		Created:  rec.Created,
	}, rec.Material, nil
}

// CreateRecord persists a new record exclusively. A record already stored
// under the ID, by this or any other backend, yields ErrKeyAlreadyExists.
func CreateRecord(store storage.Backend, key *Key, material Material) error {
	data, err := MarshalRecord(key, material)
	if err != nil {
		return err
	}
	if err := storage.CreateKey(store, key.ID.String(), data); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrKeyAlreadyExists, key.ID)
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// LoadRecord reads the record stored under id and checks it belongs to
// backend bt.
func LoadRecord(store storage.Backend, id types.KeyID, bt types.BackendType) (*Key, Material, error) {
	data, err := storage.GetKey(store, id.String())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	key, material, err := UnmarshalRecord(data)
	if err != nil {
		return nil, nil, err
	}
	if key.ID != id {
		return nil, nil, fmt.Errorf("%w: record for %q stored under %q", ErrStoreCorrupted, key.ID, id)
	}
	if key.Backend != bt {
		return nil, nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return key, material, nil
}

// LoadMaterial reads the material for key, failing with ErrKeyNotFound if
// the stored record has since been deleted or replaced.
func LoadMaterial(store storage.Backend, key *Key) (Material, error) {
	current, material, err := LoadRecord(store, key.ID, key.Backend)
	if err != nil {
		return nil, err
	}
	if current.Ref != key.Ref {
		return nil, fmt.Errorf("%w: %s was replaced", ErrKeyNotFound, key.ID)
	}
	return material, nil
}

// DeleteRecord removes the record stored under id if it belongs to bt.
func DeleteRecord(store storage.Backend, id types.KeyID, bt types.BackendType) error {
	if _, _, err := LoadRecord(store, id, bt); err != nil && !errors.Is(err, ErrStoreCorrupted) {
		return err
	}
	if err := storage.DeleteKey(store, id.String()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, id)
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// ListRecords returns the keys of all records owned by bt.
func ListRecords(store storage.Backend, bt types.BackendType) ([]*Key, error) {
	ids, err := storage.ListKeys(store)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	keys := make([]*Key, 0, len(ids))
	for _, id := range ids {
		key, _, err := LoadRecord(store, types.KeyID(id), bt)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
