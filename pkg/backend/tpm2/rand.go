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
	"fmt"
	"io"

	"github.com/google/go-tpm/tpm2"

	"github.com/jeremyhahn/go-seckey/pkg/backend"
)

// maxRandomRequest is the largest GetRandom request every TPM honors
// (the digest size of its largest hash).
const maxRandomRequest = 32

// Random returns a reader drawing entropy from the TPM random number
// generator. It fails once the backend is closed.
func (b *Backend) Random() io.Reader {
	return randReader{b: b}
}

type randReader struct {
	b *Backend
}

// Read fills p with TPM2_GetRandom output in requests of at most
// maxRandomRequest bytes.
func (r randReader) Read(p []byte) (int, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()

	if r.b.closed {
		return 0, backend.ErrClosed
	}

	n := 0
	for n < len(p) {
		size := min(len(p)-n, maxRandomRequest)
		rsp, err := tpm2.GetRandom{BytesRequested: uint16(size)}.Execute(r.b.tpm)
		if err != nil {
			return n, fmt.Errorf("tpm2: GetRandom failed: %w", err)
		}
		if len(rsp.RandomBytes.Buffer) == 0 {
			return n, fmt.Errorf("tpm2: GetRandom returned no data")
		}
		n += copy(p[n:], rsp.RandomBytes.Buffer)
	}
	return n, nil
}
