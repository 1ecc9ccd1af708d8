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
	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/cloudwego/smalloc/internal/mmap"
)

// BackingStore provides the memory the allocator manages.
// Calls are made once per pool reservation or large object and are never retried.
type BackingStore interface {
	// Reserve returns a long-lived region of at least size bytes for the buddy pool.
	Reserve(size int) ([]byte, error)

	// Map returns a region of at least size bytes for a single large object.
	Map(size int) ([]byte, error)

	// Unmap releases a region returned by Reserve or Map, passed back unchanged.
	Unmap(b []byte) error
}

// MmapStore backs the allocator with private anonymous memory mappings.
type MmapStore struct{}

// Reserve implements BackingStore.
func (MmapStore) Reserve(size int) ([]byte, error) { return mmap.Anonymous(size) }

// Map implements BackingStore.
func (MmapStore) Map(size int) ([]byte, error) { return mmap.Anonymous(size) }

// Unmap implements BackingStore.
func (MmapStore) Unmap(b []byte) error { return mmap.Unmap(b) }

// HeapStore backs the allocator with Go heap memory.
// The pool comes from dirtmake and large objects from mcache, so neither is zeroed.
// It is the default on platforms without anonymous mappings.
type HeapStore struct{}

// Reserve implements BackingStore.
func (HeapStore) Reserve(size int) ([]byte, error) { return dirtmake.Bytes(size, size), nil }

// Map implements BackingStore.
func (HeapStore) Map(size int) ([]byte, error) { return mcache.Malloc(size), nil }

// Unmap implements BackingStore.
func (HeapStore) Unmap(b []byte) error {
	mcache.Free(b)
	return nil
}

func defaultStore() BackingStore {
	if mmap.Supported {
		return MmapStore{}
	}
	return HeapStore{}
}
