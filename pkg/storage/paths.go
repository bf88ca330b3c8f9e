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

package storage

import (
	"strings"
)

const (
	keyPrefix = "keys/"
	keySuffix = ".json"
)

// KeyPath returns the storage path of the record for the key with the
// given ID. The path follows the convention: keys/{id}.json
func KeyPath(id string) string {
	return keyPrefix + id + keySuffix
}

// ListKeys returns the IDs of all key records in the backend.
func ListKeys(backend Backend) ([]string, error) {
	keys, err := backend.List(keyPrefix)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if !strings.HasSuffix(k, keySuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(k, keyPrefix), keySuffix)
		if id != "" && !strings.Contains(id, "/") {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetKey retrieves the record stored for the given ID.
func GetKey(backend Backend, id string) ([]byte, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	return backend.Get(KeyPath(id))
}

// CreateKey stores a record for the given ID. It fails with
// ErrAlreadyExists if a record is already present.
func CreateKey(backend Backend, id string, data []byte) error {
	if id == "" {
		return ErrInvalidID
	}
	return backend.Put(KeyPath(id), data, ExclusiveOptions())
}

// DeleteKey removes the record stored for the given ID.
func DeleteKey(backend Backend, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	return backend.Delete(KeyPath(id))
}
