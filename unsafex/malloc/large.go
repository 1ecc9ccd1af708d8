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

// largeBlock is a block that bypasses the buddy pool and owns its own mapping.
type largeBlock struct {
	mem  []byte // the whole mapping, header included
	prev *largeBlock
	next *largeBlock
}

func (b *largeBlock) header() *header {
	return (*header)(unsafe.Pointer(&b.mem[0]))
}

// payload returns the payload with len and cap equal to the requested size.
func (b *largeBlock) payload() []byte {
	h := b.header()
	return h.payload(int(h.size))
}

// largeList is the unordered list of mapped blocks, in insertion order.
// It owns every largeBlock; byAddr is a lookup index keyed by payload address.
type largeList struct {
	head *largeBlock
	tail *largeBlock

	byAddr map[uintptr]*largeBlock

	blocks int
	bytes  int
}

func (l *largeList) pushBack(b *largeBlock) {
	if l.byAddr == nil {
		l.byAddr = make(map[uintptr]*largeBlock)
	}
	b.prev, b.next = l.tail, nil
	if l.tail == nil {
		l.head = b
	} else {
		l.tail.next = b
	}
	l.tail = b
	l.byAddr[unsafex.DataAddr(b.payload())] = b
	l.blocks++
	l.bytes += int(b.header().size)
}

func (l *largeList) remove(b *largeBlock) {
	if b.prev == nil {
		l.head = b.next
	} else {
		b.prev.next = b.next
	}
	if b.next == nil {
		l.tail = b.prev
	} else {
		b.next.prev = b.prev
	}
	b.prev, b.next = nil, nil
	delete(l.byAddr, unsafex.DataAddr(b.payload()))
	l.blocks--
	l.bytes -= int(b.header().size)
}

// lookup returns the block whose payload starts at addr, or nil.
func (l *largeList) lookup(addr uintptr) *largeBlock {
	return l.byAddr[addr]
}
