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
	"math"
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/cloudwego/smalloc/unsafex"
)

const (
	// DefaultBaseUnit is the total size of an order-0 block (128B).
	DefaultBaseUnit = 128

	// DefaultMaxOrder is the highest order: DefaultBaseUnit<<10 = 128KB.
	DefaultMaxOrder = 10

	// DefaultMaxBlockSize is the total size of the largest buddy block (128KB).
	DefaultMaxBlockSize = DefaultBaseUnit << DefaultMaxOrder
)

// BuddyAllocator is the buddy system engine over a single aligned arena.
//
// Every block starts with an in-band header. Free blocks live in an orderTable,
// one address-sorted list per order. A block of total size S at address A has its
// buddy at A^S, which holds as long as the arena is aligned to the largest block size.
//
// BuddyAllocator is not safe for concurrent use.
type BuddyAllocator struct {
	arena      []byte
	arenaStart unsafe.Pointer
	base       uintptr

	table orderTable

	baseUnit     int
	baseShift    int
	maxBlockSize int
	maxOrder     int

	usedBlocks int
	usedBytes  int

	splits int
	merges int
}

// NewBuddyAllocator creates a buddy allocator with default block sizes (128B min, 128KB max).
// The arena's size MUST be a multiple of DefaultMaxBlockSize and its address aligned to it.
func NewBuddyAllocator(arena []byte) (*BuddyAllocator, error) {
	return NewBuddyAllocatorWithBlockSize(arena, DefaultBaseUnit, DefaultMaxBlockSize)
}

// NewBuddyAllocatorWithBlockSize creates a buddy allocator with custom block sizes.
// Both baseUnit and maxBlock must be powers of two, and baseUnit <= maxBlock.
// The arena's size MUST be a multiple of maxBlock, and its start address MUST be
// aligned to maxBlock, otherwise XOR buddy lookups would land outside real blocks.
func NewBuddyAllocatorWithBlockSize(arena []byte, baseUnit, maxBlock int) (*BuddyAllocator, error) {
	if baseUnit <= 0 || !isPow2(baseUnit) {
		return nil, errors.Newf("baseUnit must be a power of two, got %d", baseUnit)
	}
	if maxBlock <= 0 || !isPow2(maxBlock) {
		return nil, errors.Newf("maxBlockSize must be a power of two, got %d", maxBlock)
	}
	if baseUnit > maxBlock {
		return nil, errors.Newf("baseUnit (%d) must be <= maxBlockSize (%d)", baseUnit, maxBlock)
	}
	if baseUnit <= HeaderSize {
		return nil, errors.Newf("baseUnit must be > HeaderSize (%d), got %d", HeaderSize, baseUnit)
	}

	totalSize := len(arena)
	if totalSize < maxBlock || totalSize%maxBlock != 0 {
		return nil, errors.Newf("arena size must be a multiple of %d bytes and >= %d, got %d",
			maxBlock, maxBlock, totalSize)
	}
	if totalSize > math.MaxInt32 {
		return nil, errors.Newf("arena size must be <= %d, got %d", math.MaxInt32, totalSize)
	}

	base := unsafex.DataAddr(arena)
	if base&uintptr(maxBlock-1) != 0 {
		return nil, errors.Wrapf(ErrMisalignedPool, "arena at %#x is not aligned to %d", base, maxBlock)
	}

	baseShift := log2(baseUnit)
	maxOrder := log2(maxBlock) - baseShift
	a := &BuddyAllocator{
		arena:        arena,
		arenaStart:   unsafe.Pointer(&arena[0]),
		base:         base,
		baseUnit:     baseUnit,
		baseShift:    baseShift,
		maxBlockSize: maxBlock,
		maxOrder:     maxOrder,
	}
	a.table = newOrderTable(a.arenaStart, baseShift, maxOrder)
	a.carve()
	return a, nil
}

// carve splits the arena into maximal free blocks.
func (a *BuddyAllocator) carve() {
	for off := 0; off < len(a.arena); off += a.maxBlockSize {
		h := a.at(off)
		h.size = uint32(a.maxBlockSize - HeaderSize)
		h.state = stateFree
		a.table.insert(int32(off))
	}
}

// Alloc allocates a block with at least size payload bytes.
// It returns nil if size doesn't fit the largest block or no free block is large enough.
// The returned slice has len == size and cap == the block payload size.
func (a *BuddyAllocator) Alloc(size int) []byte {
	if size <= 0 || size > a.maxBlockSize-HeaderSize {
		return nil
	}
	need := size + HeaderSize
	order := a.orderForSize(need)

	// first fit, lowest order first, lowest address first within an order
	off := nilOffset
	for o := order; o <= a.maxOrder && off == nilOffset; o++ {
		off = a.table.firstFit(o, size)
	}
	if off == nilOffset {
		return nil
	}
	a.table.remove(off)

	// Split until the lower half no longer fits the request.
	// The lower half keeps the original offset, the upper half goes back to the table.
	h := a.at(int(off))
	for {
		half := h.total() >> 1
		if half < need || half < a.baseUnit {
			break
		}
		right := a.at(int(off) + half)
		right.size = uint32(half - HeaderSize)
		right.state = stateFree
		h.size = uint32(half - HeaderSize)
		a.table.insert(off + int32(half))
		a.splits++
	}

	h.state = stateUsed
	a.usedBlocks++
	a.usedBytes += int(h.size)
	return h.payload(size)
}

// Free returns a block to the allocator, merging it with free buddies.
// Panics if the block doesn't belong to this allocator or was already freed.
//
// IMPORTANT: The block must start where the slice returned by Alloc started.
// Reslicing the tail (block[:n]) is fine, reslicing the head (block[n:]) is not.
func (a *BuddyAllocator) Free(block []byte) {
	if cap(block) == 0 {
		return
	}
	off := a.offsetOf(block)
	h := a.at(off)
	if h.state != stateUsed {
		panic("malloc: double free or invalid block")
	}
	if cap(block) > int(h.size) {
		panic("malloc: corrupted size")
	}
	a.usedBlocks--
	a.usedBytes -= int(h.size)
	h.state = stateFree
	a.coalesce(off)
}

// coalesce merges the free block at off with its buddies while they are free and
// of the same size, then inserts the survivor into the table.
func (a *BuddyAllocator) coalesce(off int) {
	h := a.at(off)
	for total := h.total(); total < a.maxBlockSize; total <<= 1 {
		buddy := a.buddyOf(off, total)
		bh := a.at(buddy)
		if !bh.isFree() || bh.total() != total {
			break
		}
		a.table.remove(int32(buddy))

		lower, upper := off, buddy
		if buddy < off {
			lower, upper = buddy, off
		}
		a.at(upper).state = 0
		h = a.at(lower)
		h.size = uint32(total<<1 - HeaderSize)
		h.state = stateFree
		off = lower
		a.merges++
	}
	a.table.insert(int32(off))
}

// Grow tries to make block hold size bytes without moving it elsewhere.
//
// If the block already holds size bytes, it is returned unchanged (resliced to size).
// Otherwise, if merging the block with successive free buddies reaches size without
// exceeding the largest block, the merges are committed, the old payload is moved to the
// start of the merged block, and the merged block is returned. Its address is the lowest
// address among the merged buddies. Returns nil if the block can't grow in place; in that
// case nothing is modified.
func (a *BuddyAllocator) Grow(block []byte, size int) []byte {
	off := a.offsetOf(block)
	h := a.at(off)
	if h.state != stateUsed {
		panic("malloc: grow of free or invalid block")
	}
	if size <= int(h.size) {
		return h.payload(size)
	}
	if size > a.maxBlockSize-HeaderSize || !a.canGrow(off, size) {
		return nil
	}

	oldOff := off
	oldSize := int(h.size)
	a.usedBytes -= oldSize

	total := h.total()
	for total-HeaderSize < size {
		buddy := a.buddyOf(off, total)
		a.table.remove(int32(buddy))
		if buddy < off {
			a.at(off).state = 0
			off = buddy
		} else {
			a.at(buddy).state = 0
		}
		total <<= 1
		a.merges++
	}

	h = a.at(off)
	h.size = uint32(total - HeaderSize)
	h.state = stateUsed
	h.prev, h.next = nilOffset, nilOffset
	a.usedBytes += int(h.size)

	if off != oldOff {
		old := unsafex.BytesAt(unsafe.Add(a.arenaStart, oldOff+HeaderSize), oldSize, oldSize)
		copy(h.payload(oldSize), old)
	}
	return h.payload(size)
}

// canGrow is the read-only probe for Grow: it walks the buddy chain of the block at off
// and reports whether the merged payload would reach size.
func (a *BuddyAllocator) canGrow(off, size int) bool {
	total := a.at(off).total()
	for total < a.maxBlockSize {
		buddy := a.buddyOf(off, total)
		bh := a.at(buddy)
		if !bh.isFree() || bh.total() != total {
			return false
		}
		total <<= 1
		if total-HeaderSize >= size {
			return true
		}
		if buddy < off {
			off = buddy
		}
	}
	return false
}

// Owns reports whether block points into this allocator's arena.
func (a *BuddyAllocator) Owns(block []byte) bool {
	data := unsafex.DataAddr(block)
	return data >= a.base+uintptr(HeaderSize) && data < a.base+uintptr(len(a.arena))
}

// UsableSize returns the payload size of the block, which is >= the requested size.
func (a *BuddyAllocator) UsableSize(block []byte) int {
	return int(a.at(a.offsetOf(block)).size)
}

// payloadOf returns the whole payload of block, up to its usable size.
func (a *BuddyAllocator) payloadOf(block []byte) []byte {
	h := a.at(a.offsetOf(block))
	return h.payload(int(h.size))
}

// IsValidOffset checks if the given data offset could be a valid allocation start.
// It validates bounds and alignment without checking the block state.
func (a *BuddyAllocator) IsValidOffset(dataOffset int) bool {
	blockOffset := dataOffset - HeaderSize
	if blockOffset < 0 || blockOffset >= len(a.arena) {
		return false
	}
	return blockOffset&(a.baseUnit-1) == 0
}

// FreeBlocks returns the number of blocks in the order table.
func (a *BuddyAllocator) FreeBlocks() int { return a.table.freeBlocks }

// FreeBytes returns the total payload bytes of free blocks.
func (a *BuddyAllocator) FreeBytes() int { return a.table.freeBytes }

// UsedBlocks returns the number of blocks in use.
func (a *BuddyAllocator) UsedBlocks() int { return a.usedBlocks }

// UsedBytes returns the total payload bytes of blocks in use.
func (a *BuddyAllocator) UsedBytes() int { return a.usedBytes }

// OrderStats returns the number of free blocks per order.
func (a *BuddyAllocator) OrderStats() []int {
	counts := make([]int, a.maxOrder+1)
	for o := range counts {
		counts[o] = a.table.count(o)
	}
	return counts
}

// Reset drops all allocations and returns the allocator to its initial state.
func (a *BuddyAllocator) Reset() {
	a.table.reset()
	a.usedBlocks = 0
	a.usedBytes = 0
	a.carve()
}

func (a *BuddyAllocator) at(off int) *header {
	return (*header)(unsafe.Add(a.arenaStart, off))
}

// offsetOf returns the arena offset of the header in front of block.
func (a *BuddyAllocator) offsetOf(block []byte) int {
	if !a.Owns(block) {
		panic("malloc: block not in arena")
	}
	off := int(unsafex.DataAddr(block)-a.base) - HeaderSize
	if off&(a.baseUnit-1) != 0 {
		panic("malloc: misaligned block")
	}
	return off
}

// buddyOf returns the arena offset of the buddy of the block at off with the given total size.
// The XOR is applied to the absolute address; base alignment makes it equal to off^total.
func (a *BuddyAllocator) buddyOf(off, total int) int {
	return int(((a.base + uintptr(off)) ^ uintptr(total)) - a.base)
}

// orderForSize calculates the smallest order whose blocks hold size bytes, header included.
func (a *BuddyAllocator) orderForSize(size int) int {
	if size <= a.baseUnit {
		return 0
	}
	return bits.Len(uint(size-1)) - a.baseShift
}

func isPow2(n int) bool { return n&(n-1) == 0 }

// log2 of a power of two.
func log2(n int) int { return bits.TrailingZeros(uint(n)) }
