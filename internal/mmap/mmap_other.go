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

//go:build !unix

package mmap

import "github.com/cockroachdb/errors"

// Supported reports whether anonymous mappings are available on this platform.
const Supported = false

var errUnsupported = errors.New("mmap: anonymous mappings not supported on this platform")

// Anonymous always fails on this platform.
func Anonymous(size int) ([]byte, error) {
	return nil, errUnsupported
}

// Unmap always fails on this platform.
func Unmap(b []byte) error {
	return errUnsupported
}
