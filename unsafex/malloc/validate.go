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

// Validate walks the arena and the order table and checks that they agree.
// It returns an error matching ErrCorrupted describing the first inconsistency.
func (a *BuddyAllocator) Validate() error {
	var freeBlocks, freeBytes, usedBlocks, usedBytes int
	for off := 0; off < len(a.arena); {
		h := a.at(off)
		total := h.total()
		if total < a.baseUnit || total > a.maxBlockSize || !isPow2(total) {
			return corrupted("block at %d has bad size %d", off, h.size)
		}
		if off&(total-1) != 0 {
			return corrupted("block at %d is not aligned to its size %d", off, total)
		}
		switch h.state {
		case stateFree:
			freeBlocks++
			freeBytes += int(h.size)
			if total < a.maxBlockSize {
				if buddy := a.buddyOf(off, total); buddy > off {
					if bh := a.at(buddy); bh.isFree() && bh.total() == total {
						return corrupted("free buddies at %d and %d were not merged", off, buddy)
					}
				}
			}
		case stateUsed:
			usedBlocks++
			usedBytes += int(h.size)
		default:
			return corrupted("block at %d has bad state %#x", off, h.state)
		}
		off += total
	}

	listed := 0
	for order, head := range a.table.heads {
		prev := nilOffset
		for cur := head; cur != nilOffset; cur = a.at(int(cur)).next {
			h := a.at(int(cur))
			if !h.isFree() {
				return corrupted("listed block at %d is not free", cur)
			}
			if got := a.table.orderOf(h); got != order {
				return corrupted("block at %d of order %d is listed in order %d", cur, got, order)
			}
			if prev != nilOffset && cur <= prev {
				return corrupted("order %d list is not sorted: %d after %d", order, cur, prev)
			}
			if h.prev != prev {
				return corrupted("block at %d links back to %d, want %d", cur, h.prev, prev)
			}
			prev = cur
			listed++
		}
	}

	if listed != freeBlocks || a.table.freeBlocks != freeBlocks {
		return corrupted("free blocks: %d in arena, %d listed, %d counted", freeBlocks, listed, a.table.freeBlocks)
	}
	if a.table.freeBytes != freeBytes {
		return corrupted("free bytes: %d in arena, %d counted", freeBytes, a.table.freeBytes)
	}
	if a.usedBlocks != usedBlocks || a.usedBytes != usedBytes {
		return corrupted("used: %d blocks/%d bytes in arena, %d/%d counted",
			usedBlocks, usedBytes, a.usedBlocks, a.usedBytes)
	}
	return nil
}
