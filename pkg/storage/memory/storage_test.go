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

package memory

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jeremyhahn/go-seckey/pkg/storage"
)

// TestPutGet verifies basic Put and Get operations.
func TestPutGet(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value []byte
	}{
		{"simple", "test-key", []byte("test-value")},
		{"empty value", "empty", []byte{}},
		{"binary", "binary", []byte{0x00, 0x01, 0x02, 0xFF}},
		{"nested", "keys/demo.key.json", []byte(`{"id":"demo.key"}`)},
	}

	store := New()
	defer store.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Put(tt.key, tt.value, nil); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, err := store.Get(tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !bytes.Equal(got, tt.value) {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestPut_NoOverwrite(t *testing.T) {
	store := New()
	defer store.Close()

	if err := store.Put("k", []byte("first"), storage.ExclusiveOptions()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	err := store.Put("k", []byte("second"), storage.ExclusiveOptions())
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("Put() error = %v, want ErrAlreadyExists", err)
	}

	got, _ := store.Get("k")
	if string(got) != "first" {
		t.Errorf("Get() = %q, want %q", got, "first")
	}

	if err := store.Put("k", []byte("third"), nil); err != nil {
		t.Fatalf("overwrite Put() error = %v", err)
	}
	got, _ = store.Get("k")
	if string(got) != "third" {
		t.Errorf("Get() = %q, want %q", got, "third")
	}
}

func TestPut_ExclusiveRace(t *testing.T) {
	store := New()
	defer store.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Put("claim", []byte(fmt.Sprint(i)), storage.ExclusiveOptions())
			if err == nil {
				wins.Add(1)
			} else if !errors.Is(err, storage.ErrAlreadyExists) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("exclusive winners = %d, want 1", wins.Load())
	}
}

func TestDefensiveCopies(t *testing.T) {
	store := New()
	defer store.Close()

	value := []byte("original")
	_ = store.Put("k", value, nil)
	value[0] = 'X'

	got, _ := store.Get("k")
	if string(got) != "original" {
		t.Errorf("stored value modified through input slice: %q", got)
	}
	got[0] = 'Y'
	again, _ := store.Get("k")
	if string(again) != "original" {
		t.Errorf("stored value modified through output slice: %q", again)
	}
}

func TestDeleteListExists(t *testing.T) {
	store := New()
	defer store.Close()

	_ = store.Put("keys/b.json", []byte("b"), nil)
	_ = store.Put("keys/a.json", []byte("a"), nil)
	_ = store.Put("other", []byte("o"), nil)

	keys, err := store.List("keys/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fmt.Sprint(keys) != "[keys/a.json keys/b.json]" {
		t.Errorf("List() = %v", keys)
	}

	ok, _ := store.Exists("keys/a.json")
	if !ok {
		t.Error("Exists() = false, want true")
	}

	if err := store.Delete("keys/a.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete("keys/a.json"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get("keys/a.json"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestClosed(t *testing.T) {
	store := New()
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := store.Get("k"); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Get() error = %v, want ErrClosed", err)
	}
	if err := store.Put("k", nil, nil); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Put() error = %v, want ErrClosed", err)
	}
	if _, err := store.List(""); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("List() error = %v, want ErrClosed", err)
	}
}
