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
	"log/slog"
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/cloudwego/smalloc/unsafex"
)

// Stats is a snapshot of the allocator counters. Byte counts exclude headers.
type Stats struct {
	FreeBlocks   int // blocks in the order table
	FreeBytes    int
	UsedBlocks   int // pool blocks in use
	UsedBytes    int
	MappedBlocks int // large objects
	MappedBytes  int

	Splits int
	Merges int
}

// Allocator serves Malloc, Calloc, Free and Realloc from a buddy pool,
// and requests too large for the pool from dedicated mappings.
//
// The pool is reserved on the first allocation. Allocator is not safe for
// concurrent use, see SyncAllocator.
type Allocator struct {
	opt Option
	log *slog.Logger

	maxBlockSize int
	poolSize     int

	pool  *pool
	buddy *BuddyAllocator
	large largeList
}

// New creates an allocator. A nil o means DefaultOption(), zero fields of o take
// their default values.
func New(o *Option) (*Allocator, error) {
	opt := *DefaultOption()
	if o != nil {
		if o.BaseUnit != 0 {
			opt.BaseUnit = o.BaseUnit
		}
		if o.MaxOrder != 0 {
			opt.MaxOrder = o.MaxOrder
		}
		if o.PoolBlocks != 0 {
			opt.PoolBlocks = o.PoolBlocks
		}
		if o.SizeCap != 0 {
			opt.SizeCap = o.SizeCap
		}
		if o.Store != nil {
			opt.Store = o.Store
		}
		if o.Logger != nil {
			opt.Logger = o.Logger
		}
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}
	return &Allocator{
		opt:          opt,
		log:          opt.Logger,
		maxBlockSize: opt.MaxBlockSize(),
		poolSize:     opt.PoolSize(),
	}, nil
}

// Malloc allocates size bytes. The returned slice has len == size; its contents are
// unspecified. Requests that don't fit the largest buddy block get their own mapping.
//
// Errors: ErrInvalidSize for size <= 0 or size > SizeCap, ErrPoolExhausted when no
// buddy block is free, ErrBackingStore when the pool or the mapping can't be obtained.
func (a *Allocator) Malloc(size int) ([]byte, error) {
	if size <= 0 || size > a.opt.SizeCap {
		return nil, invalidSize(size)
	}
	if err := a.ensurePool(); err != nil {
		return nil, err
	}
	if size+HeaderSize > a.maxBlockSize {
		return a.mapLarge(size)
	}
	b := a.buddy.Alloc(size)
	if b == nil {
		a.log.Debug("buddy pool exhausted", "size", size, "free_bytes", a.buddy.FreeBytes())
		return nil, errors.Wrapf(ErrPoolExhausted, "size %d", size)
	}
	return b, nil
}

// Calloc allocates count*size zeroed bytes. A product of zero or above SizeCap,
// overflow included, is ErrInvalidSize.
func (a *Allocator) Calloc(count, size int) ([]byte, error) {
	if count <= 0 || size <= 0 {
		return nil, invalidSize(count * size)
	}
	hi, lo := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || lo > uint64(a.opt.SizeCap) {
		return nil, errors.Wrapf(ErrInvalidSize, "%d x %d bytes", count, size)
	}
	b, err := a.Malloc(int(lo))
	if err != nil {
		return nil, err
	}
	clear(b)
	return b, nil
}

// Free releases a block returned by Malloc, Calloc or Realloc. Freeing nil is a no-op.
// Panics if the block doesn't belong to this allocator or was already freed.
func (a *Allocator) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	if a.buddy != nil && a.buddy.Owns(b) {
		a.buddy.Free(b)
		return
	}
	lb := a.large.lookup(unsafex.DataAddr(b))
	if lb == nil {
		panic("malloc: double free or block not owned by allocator")
	}
	a.unmapLarge(lb)
}

// Realloc resizes b to size bytes and returns the resized block.
//
// A nil b behaves like Malloc(size). A pool block that already holds size bytes is
// returned at the same address, it is never shrunk. A pool block that can merge with
// free buddies grows in place, at the lowest merged address, with its payload moved
// there. Otherwise a new block is allocated, the payload copied and b freed.
// A mapped block is returned as is only when size equals its size.
//
// On error b is left untouched.
func (a *Allocator) Realloc(b []byte, size int) ([]byte, error) {
	if cap(b) == 0 {
		return a.Malloc(size)
	}
	if size <= 0 || size > a.opt.SizeCap {
		return nil, invalidSize(size)
	}

	if a.buddy != nil && a.buddy.Owns(b) {
		if nb := a.buddy.Grow(b, size); nb != nil {
			return nb, nil
		}
		nb, err := a.Malloc(size)
		if err != nil {
			return nil, err
		}
		copy(nb, a.buddy.payloadOf(b))
		a.buddy.Free(b)
		return nb, nil
	}

	lb := a.large.lookup(unsafex.DataAddr(b))
	if lb == nil {
		panic("malloc: realloc of block not owned by allocator")
	}
	if int(lb.header().size) == size {
		return lb.payload(), nil
	}
	nb, err := a.Malloc(size)
	if err != nil {
		return nil, err
	}
	copy(nb, lb.payload())
	a.unmapLarge(lb)
	return nb, nil
}

// UsableSize returns the payload capacity of a live block.
func (a *Allocator) UsableSize(b []byte) int {
	if a.buddy != nil && a.buddy.Owns(b) {
		return a.buddy.UsableSize(b)
	}
	if lb := a.large.lookup(unsafex.DataAddr(b)); lb != nil {
		return int(lb.header().size)
	}
	panic("malloc: block not owned by allocator")
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	s := Stats{
		MappedBlocks: a.large.blocks,
		MappedBytes:  a.large.bytes,
	}
	if a.buddy != nil {
		s.FreeBlocks = a.buddy.FreeBlocks()
		s.FreeBytes = a.buddy.FreeBytes()
		s.UsedBlocks = a.buddy.UsedBlocks()
		s.UsedBytes = a.buddy.UsedBytes()
		s.Splits = a.buddy.splits
		s.Merges = a.buddy.merges
	}
	return s
}

// NumFreeBlocks returns the number of free blocks in the pool.
func (a *Allocator) NumFreeBlocks() int { return a.Stats().FreeBlocks }

// NumFreeBytes returns the payload bytes of free blocks in the pool.
func (a *Allocator) NumFreeBytes() int { return a.Stats().FreeBytes }

// NumAllocatedBlocks returns the number of free, used and mapped blocks.
func (a *Allocator) NumAllocatedBlocks() int {
	s := a.Stats()
	return s.FreeBlocks + s.UsedBlocks + s.MappedBlocks
}

// NumAllocatedBytes returns the payload bytes of free, used and mapped blocks.
func (a *Allocator) NumAllocatedBytes() int {
	s := a.Stats()
	return s.FreeBytes + s.UsedBytes + s.MappedBytes
}

// MetadataSize returns the size of a block header.
func (a *Allocator) MetadataSize() int { return HeaderSize }

// NumMetadataBytes returns the header bytes of all free, used and mapped blocks.
func (a *Allocator) NumMetadataBytes() int { return HeaderSize * a.NumAllocatedBlocks() }

// OrderStats returns the number of free pool blocks per order, nil before the pool exists.
func (a *Allocator) OrderStats() []int {
	if a.buddy == nil {
		return nil
	}
	return a.buddy.OrderStats()
}

// Validate checks the pool metadata and the large object list.
func (a *Allocator) Validate() error {
	if a.buddy != nil {
		if err := a.buddy.Validate(); err != nil {
			return err
		}
	}
	var blocks, bytes int
	var prev *largeBlock
	for b := a.large.head; b != nil; b = b.next {
		h := b.header()
		if h.state != stateMapped {
			return corrupted("mapped block %d has bad state %#x", blocks, h.state)
		}
		if b.prev != prev {
			return corrupted("mapped block %d links back to the wrong block", blocks)
		}
		if a.large.lookup(unsafex.DataAddr(b.payload())) != b {
			return corrupted("mapped block %d is missing from the index", blocks)
		}
		blocks++
		bytes += int(h.size)
		prev = b
	}
	if a.large.tail != prev {
		return corrupted("mapped list tail does not match its last block")
	}
	if blocks != a.large.blocks || bytes != a.large.bytes || len(a.large.byAddr) != blocks {
		return corrupted("mapped: %d blocks/%d bytes listed, %d/%d counted, %d indexed",
			blocks, bytes, a.large.blocks, a.large.bytes, len(a.large.byAddr))
	}
	return nil
}

// Close releases every mapped block and the pool. Blocks handed out before Close
// must not be used afterwards. The allocator may be used again; it reserves a new pool.
func (a *Allocator) Close() error {
	var err error
	for b := a.large.head; b != nil; {
		next := b.next
		a.large.remove(b)
		err = errors.CombineErrors(err, a.opt.Store.Unmap(b.mem))
		b = next
	}
	if a.pool != nil {
		err = errors.CombineErrors(err, a.opt.Store.Unmap(a.pool.raw))
		a.pool = nil
		a.buddy = nil
	}
	if err != nil {
		return errors.WithSecondaryError(errors.Wrapf(ErrBackingStore, "close: %v", err), err)
	}
	return nil
}

func (a *Allocator) ensurePool() error {
	if a.buddy != nil {
		return nil
	}
	p, err := reservePool(a.opt.Store, a.poolSize)
	if err != nil {
		a.log.Warn("buddy pool reservation failed", "bytes", a.poolSize, "error", err)
		return err
	}
	buddy, err := NewBuddyAllocatorWithBlockSize(p.arena, a.opt.BaseUnit, a.maxBlockSize)
	if err != nil {
		_ = a.opt.Store.Unmap(p.raw)
		return err
	}
	a.pool, a.buddy = p, buddy
	a.log.Info("buddy pool reserved",
		"bytes", a.poolSize, "blocks", a.opt.PoolBlocks, "max_block", a.maxBlockSize,
		"addr", unsafex.DataAddr(p.arena))
	return nil
}

// mapLarge serves size bytes from a dedicated mapping of exactly size+HeaderSize bytes.
func (a *Allocator) mapLarge(size int) ([]byte, error) {
	n := size + HeaderSize
	mem, err := a.opt.Store.Map(n)
	if err != nil {
		a.log.Warn("large object mapping failed", "bytes", n, "error", err)
		return nil, backingFailure(err, "map", n)
	}
	if len(mem) < n {
		_ = a.opt.Store.Unmap(mem)
		return nil, backingFailure(errors.Newf("got %d bytes", len(mem)), "map", n)
	}
	h := (*header)(unsafe.Pointer(&mem[0]))
	h.size = uint32(size)
	h.state = stateMapped
	h.prev, h.next = nilOffset, nilOffset

	lb := &largeBlock{mem: mem}
	a.large.pushBack(lb)
	return lb.payload(), nil
}

func (a *Allocator) unmapLarge(lb *largeBlock) {
	a.large.remove(lb)
	lb.header().state = 0
	if err := a.opt.Store.Unmap(lb.mem); err != nil {
		a.log.Error("large object unmap failed", "bytes", len(lb.mem), "error", err)
	}
}
