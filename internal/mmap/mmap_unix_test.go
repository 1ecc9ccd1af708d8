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

//go:build unix

package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymous(t *testing.T) {
	b, err := Anonymous(200000)
	require.NoError(t, err)
	assert.Equal(t, 200000, len(b))

	// fresh anonymous memory is zeroed and writable
	for i := 0; i < len(b); i += 4096 {
		assert.Equal(t, byte(0), b[i])
		b[i] = 0xff
	}
	require.NoError(t, Unmap(b))
}

func TestAnonymousInvalid(t *testing.T) {
	_, err := Anonymous(0)
	assert.Error(t, err)
}
