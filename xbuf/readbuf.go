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

	"github.com/cockroachdb/errors"
)

// ErrNotEnough is returned when a read goes past the last slice.
var ErrNotEnough = errors.New("xbuf: not enough data")

var readBufferPool = sync.Pool{
	New: func() interface{} {
		return &ReadBuffer{
			chunks: make([][]byte, 0, 16),
		}
	},
}

// ReadBuffer reads across a list of slices. Reads that span slices are
// joined into chunks from the allocator.
type ReadBuffer struct {
	alloc Allocator

	off    int
	buf    []byte
	bufs   [][]byte
	chunks [][]byte
}

// NewReadBuffer returns a buffer reading bufs, joining with chunks from a, or
// from malloc.Default() if a is nil.
func NewReadBuffer(a Allocator, bufs [][]byte) *ReadBuffer {
	rb := readBufferPool.Get().(*ReadBuffer)
	rb.alloc = orDefault(a)
	if len(bufs) > 0 {
		rb.buf = bufs[0]
		rb.bufs = bufs[1:]
	}
	return rb
}

// Len returns the number of unread bytes.
func (b *ReadBuffer) Len() int {
	n := len(b.buf) - b.off
	for _, buf := range b.bufs {
		n += len(buf)
	}
	return n
}

// ReadN returns the next n bytes. The result aliases the input slices when they are
// contiguous, otherwise it is a chunk released by Free.
func (b *ReadBuffer) ReadN(n int) ([]byte, error) {
	buf := b.buf[b.off:]
	if len(buf) < n {
		return b.readSlow(n)
	}
	b.off += n
	return buf[:n:n], nil
}

func (b *ReadBuffer) readSlow(n int) ([]byte, error) {
	if b.Len() < n {
		return nil, errors.Wrapf(ErrNotEnough, "read %d of %d bytes", n, b.Len())
	}
	buf, err := b.alloc.Malloc(n)
	if err != nil {
		return nil, err
	}
	b.chunks = append(b.chunks, buf)
	b.copySlow(buf)
	return buf, nil
}

// CopyBytes fills buf with the next len(buf) bytes.
func (b *ReadBuffer) CopyBytes(buf []byte) error {
	n := copy(buf, b.buf[b.off:])
	if len(buf) > n {
		if b.Len() < len(buf) {
			return errors.Wrapf(ErrNotEnough, "read %d of %d bytes", len(buf), b.Len())
		}
		b.copySlow(buf)
		return nil
	}
	b.off += n
	return nil
}

// copySlow fills buf across slices. The caller checks Len first.
func (b *ReadBuffer) copySlow(buf []byte) {
	m := copy(buf, b.buf[b.off:])
	l := m
	for l < len(buf) {
		b.buf = b.bufs[0]
		b.off = 0
		b.bufs = b.bufs[1:]
		m = copy(buf[l:], b.buf)
		l += m
	}
	b.off += m
}

// Free releases the joined chunks and puts b back into the pool.
func (b *ReadBuffer) Free() {
	b.off = 0
	b.buf = nil
	b.bufs = nil
	for i := range b.chunks {
		b.alloc.Free(b.chunks[i])
		b.chunks[i] = nil
	}
	b.chunks = b.chunks[:0]
	b.alloc = nil
	readBufferPool.Put(b)
}
