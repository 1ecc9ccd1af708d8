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

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidSize is returned for zero-sized requests, requests above the size cap
	// and element counts whose product overflows.
	ErrInvalidSize = errors.New("malloc: invalid size")

	// ErrPoolExhausted is returned when no free buddy block of a sufficient order exists.
	// The pool never grows.
	ErrPoolExhausted = errors.New("malloc: buddy pool exhausted")

	// ErrBackingStore is returned when reserving the pool or mapping a large object fails.
	ErrBackingStore = errors.New("malloc: backing store failure")

	// ErrMisalignedPool is returned when an arena is not aligned for XOR buddy lookups.
	ErrMisalignedPool = errors.New("malloc: misaligned pool")

	// ErrCorrupted is returned by Validate when allocator metadata is inconsistent.
	ErrCorrupted = errors.New("malloc: corrupted metadata")
)

func invalidSize(n int) error {
	return errors.Wrapf(ErrInvalidSize, "size %d", n)
}

// backingFailure keeps ErrBackingStore in the chain and carries the store error along.
func backingFailure(err error, op string, size int) error {
	return errors.WithSecondaryError(errors.Wrapf(ErrBackingStore, "%s %d bytes: %v", op, size, err), err)
}

func corrupted(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorrupted, format, args...)
}
