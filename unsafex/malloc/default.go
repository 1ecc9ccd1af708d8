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

var defaultAllocator = mustNewSync(nil)

func mustNewSync(o *Option) *SyncAllocator {
	s, err := NewSync(o)
	if err != nil {
		panic(err)
	}
	return s
}

// Default returns the allocator behind the package-level functions.
func Default() *SyncAllocator {
	return defaultAllocator
}

// Malloc allocates size bytes from the default allocator.
// Tips for usage:
// * the returned buf is not zeroed, use Calloc if needed.
// * call `Free` when buf is no longer used, DO NOT USE buf after calling `Free`.
// * DO NOT reslice the head of buf (buf[n:]) before passing it to `Free` or `Realloc`.
func Malloc(size int) ([]byte, error) {
	return defaultAllocator.Malloc(size)
}

// Calloc allocates count*size zeroed bytes from the default allocator.
func Calloc(count, size int) ([]byte, error) {
	return defaultAllocator.Calloc(count, size)
}

// Free returns buf to the default allocator.
func Free(buf []byte) {
	defaultAllocator.Free(buf)
}

// Realloc resizes buf, see Allocator.Realloc.
// Please make sure you're calling it like `buf, err = malloc.Realloc(buf, n)`.
func Realloc(buf []byte, size int) ([]byte, error) {
	return defaultAllocator.Realloc(buf, size)
}

// ReadStats returns the counters of the default allocator.
func ReadStats() Stats {
	return defaultAllocator.Stats()
}
