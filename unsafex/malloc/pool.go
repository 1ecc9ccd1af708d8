/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package malloc

import (
	"github.com/cockroachdb/errors"

	"github.com/cloudwego/smalloc/unsafex"
)

// pool is the buddy pool reservation.
type pool struct {
	raw   []byte // as returned by BackingStore.Reserve
	arena []byte // window of raw aligned to the pool size
}

// reservePool reserves size bytes aligned to size rounded up to a power of two.
// It over-reserves by the alignment and advances to the first aligned address,
// so the XOR buddy of any block inside the pool stays inside the pool.
func reservePool(store BackingStore, size int) (*pool, error) {
	align := nextPow2(size)
	raw, err := store.Reserve(size + align)
	if err != nil {
		return nil, backingFailure(err, "reserve", size+align)
	}
	if len(raw) < size+align {
		_ = store.Unmap(raw)
		return nil, backingFailure(errors.Newf("got %d bytes", len(raw)), "reserve", size+align)
	}

	addr := unsafex.DataAddr(raw)
	start := (addr + uintptr(align) - 1) &^ uintptr(align-1)
	skip := int(start - addr)
	p := &pool{raw: raw, arena: raw[skip : skip+size : skip+size]}

	if unsafex.DataAddr(p.arena)&uintptr(align-1) != 0 {
		_ = store.Unmap(raw)
		return nil, errors.Wrapf(ErrMisalignedPool, "pool at %#x is not aligned to %d", unsafex.DataAddr(p.arena), align)
	}
	return p, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
