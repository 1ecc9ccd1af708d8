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

package malloc_test

import (
	"errors"
	"fmt"

	"github.com/cloudwego/smalloc/unsafex/malloc"
)

func ExampleAllocator() {
	a, err := malloc.New(nil)
	if err != nil {
		panic(err)
	}
	defer a.Close()

	buf, _ := a.Malloc(100)
	fmt.Println(len(buf), a.UsableSize(buf))

	s := a.Stats()
	fmt.Println(s.UsedBlocks, s.FreeBlocks, s.Splits)

	buf, _ = a.Realloc(buf, 200)
	fmt.Println(len(buf), a.UsableSize(buf))

	a.Free(buf)
	fmt.Println(a.NumFreeBlocks(), a.NumAllocatedBytes()+a.NumMetadataBytes())

	_, err = a.Malloc(0)
	fmt.Println(errors.Is(err, malloc.ErrInvalidSize))
	// Output:
	// 100 112
	// 1 41 10
	// 200 240
	// 32 4194304
	// true
}

func ExampleMalloc() {
	buf, err := malloc.Malloc(1 << 20)
	if err != nil {
		panic(err)
	}
	defer malloc.Free(buf)

	copy(buf, "hello")
	fmt.Println(string(buf[:5]), len(buf))
	// Output: hello 1048576
}
