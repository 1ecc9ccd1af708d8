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

package xbuf

import (
	"sync"
)

// chunkSize is the smallest chunk requested from the allocator.
const chunkSize = 1 << 13

var writeBufferPool = sync.Pool{
	New: func() interface{} {
		return &WriteBuffer{
			bufs:   make([][]byte, 0, 16),
			chunks: make([][]byte, 0, 16),
		}
	},
}

// WriteBuffer hands out write windows carved from allocator chunks and
// collects the written bytes as a list of slices.
type WriteBuffer struct {
	alloc Allocator

	off    int // write offset of buf
	buf    []byte
	bufs   [][]byte
	chunks [][]byte // owned, returned to alloc by Free
}

// NewWriteBuffer returns a buffer drawing chunks from a, or from malloc.Default() if a is nil.
func NewWriteBuffer(a Allocator) *WriteBuffer {
	b := writeBufferPool.Get().(*WriteBuffer)
	b.alloc = orDefault(a)
	return b
}

// Bytes returns the written bytes. The slices stay valid until Free.
func (b *WriteBuffer) Bytes() [][]byte {
	b.flush()
	return b.bufs
}

// Len returns the number of bytes written so far.
func (b *WriteBuffer) Len() int {
	n := b.off
	for _, buf := range b.bufs {
		n += len(buf)
	}
	return n
}

// Free releases every chunk and puts b back into the pool. b must not be used afterwards.
func (b *WriteBuffer) Free() {
	b.off = 0
	b.buf = nil
	for i := range b.bufs {
		b.bufs[i] = nil
	}
	b.bufs = b.bufs[:0]
	for i := range b.chunks {
		b.alloc.Free(b.chunks[i])
		b.chunks[i] = nil
	}
	b.chunks = b.chunks[:0]
	b.alloc = nil
	writeBufferPool.Put(b)
}

// MallocN returns a window of n bytes to write into. If the current chunk is not
// enough, a new one of at least n bytes is requested from the allocator.
func (b *WriteBuffer) MallocN(n int) ([]byte, error) {
	buf := b.buf[b.off:]
	if len(buf) < n {
		var err error
		if buf, err = b.growSlow(n); err != nil {
			return nil, err
		}
	}
	b.off += n
	return buf[:n:n], nil
}

// Write implements io.Writer.
func (b *WriteBuffer) Write(p []byte) (int, error) {
	buf, err := b.MallocN(len(p))
	if err != nil {
		return 0, err
	}
	return copy(buf, p), nil
}

func (b *WriteBuffer) growSlow(n int) ([]byte, error) {
	if n < chunkSize {
		n = chunkSize
	}
	buf, err := b.alloc.Malloc(n)
	if err != nil {
		return nil, err
	}
	b.flush()
	// the whole usable size of the block is writable
	buf = buf[:cap(buf)]
	b.chunks = append(b.chunks, buf)
	b.buf = buf
	return buf, nil
}

// WriteDirect appends buf to the output without copying. buf is not owned by b.
func (b *WriteBuffer) WriteDirect(buf []byte) {
	b.flush()
	b.bufs = append(b.bufs, buf)
}

func (b *WriteBuffer) flush() {
	if b.off > 0 {
		b.bufs = append(b.bufs, b.buf[:b.off])
		b.buf = b.buf[b.off:]
		b.off = 0
	}
}
