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

//go:build unix

// Package mmap wraps the anonymous memory mapping calls used as allocator backing store.
package mmap

import "golang.org/x/sys/unix"

// Supported reports whether anonymous mappings are available on this platform.
const Supported = true

// Anonymous maps size bytes of zeroed, private, read-write memory.
func Anonymous(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

// Unmap releases a mapping returned by Anonymous. b must be the full mapping.
func Unmap(b []byte) error {
	return unix.Munmap(b)
}
