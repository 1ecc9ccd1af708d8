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

import "unsafe"

// orderTable holds one address-sorted, doubly linked free list per order.
// Links are arena offsets so a merge can never leave a dangling pointer behind.
type orderTable struct {
	arenaStart unsafe.Pointer
	baseShift  int
	heads      []int32

	freeBlocks int
	freeBytes  int
}

func newOrderTable(arenaStart unsafe.Pointer, baseShift, maxOrder int) orderTable {
	t := orderTable{
		arenaStart: arenaStart,
		baseShift:  baseShift,
		heads:      make([]int32, maxOrder+1),
	}
	for i := range t.heads {
		t.heads[i] = nilOffset
	}
	return t
}

func (t *orderTable) at(off int32) *header {
	return (*header)(unsafe.Add(t.arenaStart, int(off)))
}

// orderOf returns the order of a pool block from its recorded size.
func (t *orderTable) orderOf(h *header) int {
	return log2(h.total()) - t.baseShift
}

// insert links the free block at off into its order's list, keeping ascending address order.
func (t *orderTable) insert(off int32) {
	h := t.at(off)
	order := t.orderOf(h)

	prev := nilOffset
	cur := t.heads[order]
	for cur != nilOffset && cur < off {
		prev = cur
		cur = t.at(cur).next
	}

	h.prev = prev
	h.next = cur
	if prev == nilOffset {
		t.heads[order] = off
	} else {
		t.at(prev).next = off
	}
	if cur != nilOffset {
		t.at(cur).prev = off
	}

	t.freeBlocks++
	t.freeBytes += int(h.size)
}

// remove unlinks the block at off from its order's list.
func (t *orderTable) remove(off int32) {
	h := t.at(off)
	if h.prev == nilOffset {
		t.heads[t.orderOf(h)] = h.next
	} else {
		t.at(h.prev).next = h.next
	}
	if h.next != nilOffset {
		t.at(h.next).prev = h.prev
	}
	h.prev, h.next = nilOffset, nilOffset

	t.freeBlocks--
	t.freeBytes -= int(h.size)
}

// firstFit returns the lowest-addressed block of order `order` with at least n payload bytes.
func (t *orderTable) firstFit(order, n int) int32 {
	for cur := t.heads[order]; cur != nilOffset; cur = t.at(cur).next {
		if int(t.at(cur).size) >= n {
			return cur
		}
	}
	return nilOffset
}

// count returns the number of blocks in the list of the given order.
func (t *orderTable) count(order int) int {
	n := 0
	for cur := t.heads[order]; cur != nilOffset; cur = t.at(cur).next {
		n++
	}
	return n
}

func (t *orderTable) reset() {
	for i := range t.heads {
		t.heads[i] = nilOffset
	}
	t.freeBlocks = 0
	t.freeBytes = 0
}
