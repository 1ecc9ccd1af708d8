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

// Package xbuf provides chained buffers whose chunks come from a malloc allocator.
package xbuf

import (
	"github.com/cloudwego/smalloc/unsafex/malloc"
)

// Allocator is the chunk source of the buffers.
// *malloc.Allocator and *malloc.SyncAllocator implement it.
type Allocator interface {
	Malloc(size int) ([]byte, error)
	Free(b []byte)
}

func orDefault(a Allocator) Allocator {
	if a == nil {
		return malloc.Default()
	}
	return a
}
