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

// Package unsafex holds the pointer/slice conversions used by allocators that
// hand out memory they manage themselves.
package unsafex

import "unsafe"

// DataAddr returns the address of the backing array of b.
// It reads the slice header directly so it works for zero-length slices too.
func DataAddr(b []byte) uintptr {
	return *(*uintptr)(unsafe.Pointer(&b))
}

// BytesAt returns a slice of length n and capacity c starting at p.
// The memory at p must stay valid for as long as the slice is used.
func BytesAt(p unsafe.Pointer, n, c int) []byte {
	return unsafe.Slice((*byte)(p), c)[:n]
}

// Overlap reports whether the backing bytes of a and b intersect.
func Overlap(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := DataAddr(a)
	aEnd := aStart + uintptr(len(a))
	bStart := DataAddr(b)
	bEnd := bStart + uintptr(len(b))
	return !(aEnd <= bStart || bEnd <= aStart)
}
