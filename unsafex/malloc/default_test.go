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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAllocator(t *testing.T) {
	before := ReadStats()

	b, err := Malloc(100)
	require.NoError(t, err)
	assert.Equal(t, 100, len(b))
	assert.Equal(t, before.UsedBlocks+1, ReadStats().UsedBlocks)

	b, err = Realloc(b, 5000)
	require.NoError(t, err)
	assert.Equal(t, 5000, len(b))
	Free(b)

	c, err := Calloc(100, 3000)
	require.NoError(t, err)
	assert.Equal(t, before.MappedBlocks+1, ReadStats().MappedBlocks)
	Free(c)

	after := ReadStats()
	assert.Equal(t, before.UsedBlocks, after.UsedBlocks)
	assert.Equal(t, before.MappedBlocks, after.MappedBlocks)

	_, err = Malloc(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.Panics(t, func() { Free(make([]byte, 1)) })
}
