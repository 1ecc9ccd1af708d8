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
	"io"
	"log/slog"
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultPoolBlocks is the number of maximal blocks carved from the pool (32 x 128KB = 4MB).
	DefaultPoolBlocks = 32

	// DefaultSizeCap is the largest request accepted by Malloc, Calloc and Realloc.
	DefaultSizeCap = 100000000
)

// Option configures an Allocator.
type Option struct {
	// BaseUnit is the total size of an order-0 block. Must be a power of two > HeaderSize.
	BaseUnit int

	// MaxOrder is the highest order. The largest buddy block is BaseUnit<<MaxOrder bytes,
	// requests that don't fit it are served by the backing store directly.
	MaxOrder int

	// PoolBlocks is the number of largest blocks reserved for the pool.
	// The pool is reserved on the first allocation and never grows.
	PoolBlocks int

	// SizeCap is the largest accepted request in bytes.
	SizeCap int

	// Store provides the pool and large object memory.
	// nil means anonymous mappings where supported, the Go heap otherwise.
	Store BackingStore

	// Logger receives pool lifecycle and backing store failure records.
	// nil discards them.
	Logger *slog.Logger
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		BaseUnit:   DefaultBaseUnit,
		MaxOrder:   DefaultMaxOrder,
		PoolBlocks: DefaultPoolBlocks,
		SizeCap:    DefaultSizeCap,
		Store:      defaultStore(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// MaxBlockSize returns the total size of the largest buddy block.
func (o *Option) MaxBlockSize() int {
	return o.BaseUnit << o.MaxOrder
}

// PoolSize returns the size of the buddy pool in bytes.
func (o *Option) PoolSize() int {
	return o.PoolBlocks * o.MaxBlockSize()
}

func (o *Option) validate() error {
	if o.BaseUnit <= HeaderSize || !isPow2(o.BaseUnit) {
		return errors.Newf("BaseUnit must be a power of two > %d, got %d", HeaderSize, o.BaseUnit)
	}
	if o.MaxOrder < 0 || o.MaxOrder > 20 {
		return errors.Newf("MaxOrder must be in [0, 20], got %d", o.MaxOrder)
	}
	if o.PoolBlocks <= 0 {
		return errors.Newf("PoolBlocks must be > 0, got %d", o.PoolBlocks)
	}
	if int64(o.PoolBlocks)*int64(o.MaxBlockSize()) > math.MaxInt32/2 {
		return errors.Newf("pool of %d x %d bytes is too large", o.PoolBlocks, o.MaxBlockSize())
	}
	if o.SizeCap <= 0 || int64(o.SizeCap) > math.MaxUint32 {
		return errors.Newf("SizeCap must be in (0, %d], got %d", uint32(math.MaxUint32), o.SizeCap)
	}
	return nil
}
