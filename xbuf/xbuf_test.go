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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/smalloc/unsafex/malloc"
)

func newTestAllocator(t *testing.T) *malloc.Allocator {
	t.Helper()
	a, err := malloc.New(&malloc.Option{PoolBlocks: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestWriteBuffer(t *testing.T) {
	a := newTestAllocator(t)
	b := NewWriteBuffer(a)

	p, err := b.MallocN(10)
	require.NoError(t, err)
	copy(p, "0123456789")
	// one chunk, carved from the pool at its full usable size
	assert.Equal(t, 1, a.Stats().UsedBlocks)
	assert.Equal(t, 16368, len(b.buf))

	_, err = b.Write([]byte("abc"))
	require.NoError(t, err)
	b.WriteDirect([]byte("direct"))
	_, err = b.Write([]byte("xyz"))
	require.NoError(t, err)

	assert.Equal(t, 22, b.Len())
	bufs := b.Bytes()
	assert.Equal(t, []byte("0123456789abcdirectxyz"), bytes.Join(bufs, nil))
	assert.Len(t, bufs, 3)
	assert.Equal(t, 1, a.Stats().UsedBlocks)

	b.Free()
	assert.Equal(t, 0, a.Stats().UsedBlocks)
	require.NoError(t, a.Validate())
}

func TestWriteBufferGrow(t *testing.T) {
	a := newTestAllocator(t)
	b := NewWriteBuffer(a)

	var want []byte
	for i := 0; i < 100; i++ {
		p, err := b.MallocN(1000)
		require.NoError(t, err)
		assert.Len(t, p, 1000)
		for j := range p {
			p[j] = byte(i)
		}
		want = append(want, p...)
	}
	big, err := b.MallocN(200000)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Stats().MappedBlocks)
	want = append(want, big...)

	assert.Equal(t, len(want), b.Len())
	assert.Equal(t, want, bytes.Join(b.Bytes(), nil))

	b.Free()
	s := a.Stats()
	assert.Equal(t, 0, s.UsedBlocks)
	assert.Equal(t, 0, s.MappedBlocks)
	require.NoError(t, a.Validate())
}

func TestWriteBufferAllocFailure(t *testing.T) {
	a, err := malloc.New(&malloc.Option{PoolBlocks: 1, SizeCap: 1 << 14})
	require.NoError(t, err)
	defer a.Close()

	b := NewWriteBuffer(a)
	_, err = b.MallocN(1 << 15)
	assert.ErrorIs(t, err, malloc.ErrInvalidSize)
	_, err = b.Write(make([]byte, 1<<15))
	assert.ErrorIs(t, err, malloc.ErrInvalidSize)
	assert.Equal(t, 0, b.Len())
	b.Free()
}

func TestReadBuffer(t *testing.T) {
	a := newTestAllocator(t)
	r := NewReadBuffer(a, [][]byte{[]byte("hello"), []byte(" "), []byte("world!")})
	assert.Equal(t, 12, r.Len())

	p, err := r.ReadN(3)
	require.NoError(t, err)
	assert.Equal(t, "hel", string(p))
	assert.Equal(t, 0, a.Stats().UsedBlocks)

	// spans three slices, joined into a chunk
	p, err = r.ReadN(5)
	require.NoError(t, err)
	assert.Equal(t, "lo wo", string(p))
	assert.Equal(t, 1, a.Stats().UsedBlocks)

	c := make([]byte, 3)
	require.NoError(t, r.CopyBytes(c))
	assert.Equal(t, "rld", string(c))
	assert.Equal(t, 1, r.Len())

	_, err = r.ReadN(2)
	assert.ErrorIs(t, err, ErrNotEnough)
	assert.ErrorIs(t, r.CopyBytes(make([]byte, 2)), ErrNotEnough)

	require.NoError(t, r.CopyBytes(c[:1]))
	assert.Equal(t, "!", string(c[:1]))
	assert.Equal(t, 0, r.Len())

	r.Free()
	assert.Equal(t, 0, a.Stats().UsedBlocks)
}

func TestReadBufferCopySpans(t *testing.T) {
	r := NewReadBuffer(nil, [][]byte{[]byte("ab"), {}, []byte("cd"), []byte("ef")})
	c := make([]byte, 5)
	require.NoError(t, r.CopyBytes(c))
	assert.Equal(t, "abcde", string(c))
	p, err := r.ReadN(1)
	require.NoError(t, err)
	assert.Equal(t, "f", string(p))
	r.Free()
}

func TestWriteThenRead(t *testing.T) {
	a := newTestAllocator(t)
	w := NewWriteBuffer(a)
	for i := 0; i < 50; i++ {
		p, err := w.MallocN(1000)
		require.NoError(t, err)
		for j := range p {
			p[j] = byte(j)
		}
	}

	r := NewReadBuffer(a, w.Bytes())
	for i := 0; i < 50; i++ {
		p, err := r.ReadN(1000)
		require.NoError(t, err)
		for j := range p {
			if p[j] != byte(j) {
				t.Fatalf("record %d byte %d = %d", i, j, p[j])
			}
		}
	}
	r.Free()
	w.Free()
	assert.Equal(t, 0, a.Stats().UsedBlocks)
	require.NoError(t, a.Validate())
}

func BenchmarkWriteBuffer(b *testing.B) {
	a, err := malloc.New(nil)
	require.NoError(b, err)
	defer a.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := NewWriteBuffer(a)
		for j := 0; j < 64; j++ {
			_, _ = w.MallocN(256)
		}
		w.Free()
	}
}
