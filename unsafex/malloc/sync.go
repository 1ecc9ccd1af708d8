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

import "sync"

// SyncAllocator is an Allocator guarded by a single mutex.
// The free lists and the merge walk are not re-entrant, so every operation
// holds the lock for its whole duration.
type SyncAllocator struct {
	mu sync.Mutex
	a  *Allocator
}

// NewSync creates a SyncAllocator, see New for o.
func NewSync(o *Option) (*SyncAllocator, error) {
	a, err := New(o)
	if err != nil {
		return nil, err
	}
	return &SyncAllocator{a: a}, nil
}

// Malloc calls Allocator.Malloc under the lock.
func (s *SyncAllocator) Malloc(size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Malloc(size)
}

// Calloc calls Allocator.Calloc under the lock.
func (s *SyncAllocator) Calloc(count, size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Calloc(count, size)
}

// Free calls Allocator.Free under the lock.
func (s *SyncAllocator) Free(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Free(b)
}

// Realloc calls Allocator.Realloc under the lock.
func (s *SyncAllocator) Realloc(b []byte, size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Realloc(b, size)
}

// UsableSize calls Allocator.UsableSize under the lock.
func (s *SyncAllocator) UsableSize(b []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.UsableSize(b)
}

// Stats calls Allocator.Stats under the lock.
func (s *SyncAllocator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Stats()
}

// Validate calls Allocator.Validate under the lock.
func (s *SyncAllocator) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Validate()
}

// Close calls Allocator.Close under the lock.
func (s *SyncAllocator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Close()
}
