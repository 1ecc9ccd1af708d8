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
	"unsafe"

	"github.com/cloudwego/smalloc/unsafex"
)

// block states, stored in header.state.
// A zeroed state means the bytes are no longer a header (absorbed by a merge).
const (
	stateFree   uint32 = 0xF7EEB10C
	stateUsed   uint32 = 0xBADF00D
	stateMapped uint32 = 0x3A99ED
)

// nilOffset terminates a free list.
const nilOffset int32 = -1

// header prefixes every block, in the pool and in mappings.
//
// Pool blocks keep size+HeaderSize equal to BaseUnit<<order.
// prev and next are arena offsets of the neighbours in the free list holding the block;
// they are meaningless while the block is in use or mapped.
type header struct {
	size  uint32 // payload bytes, excluding the header
	state uint32
	prev  int32
	next  int32
}

// HeaderSize is the number of metadata bytes in front of every payload.
const HeaderSize = int(unsafe.Sizeof(header{}))

func (h *header) total() int { return int(h.size) + HeaderSize }

func (h *header) isFree() bool { return h.state == stateFree }

// payload returns the block payload as a slice of length n and capacity h.size.
func (h *header) payload(n int) []byte {
	return unsafex.BytesAt(unsafe.Add(unsafe.Pointer(h), HeaderSize), n, int(h.size))
}
