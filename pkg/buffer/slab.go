/*
	Copyright 2023 Loophole Labs

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		   http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package buffer

import (
	"fmt"
)

const (
	slabAlign = 64
)

// Slab is a single Region carved into a constant number of fixed size buffers.
//
// It holds the receive buffers of a queue: buffer i always starts at the same address,
// so a device that was handed that address can fill it repeatedly.
type Slab struct {
	region *Region
	size   int
	count  int
}

func NewSlab(count int, size int) (*Slab, error) {
	if count <= 0 || size <= 0 {
		return nil, fmt.Errorf("slab of %d buffers of %d bytes is empty", count, size)
	}

	region, err := NewRegion(int64(count)*int64(size), slabAlign)
	if err != nil {
		return nil, fmt.Errorf("error while allocating slab: %w", err)
	}

	return &Slab{
		region: region,
		size:   size,
		count:  count,
	}, nil
}

// Buffer returns buffer i, or nil if i is out of range.
func (s *Slab) Buffer(i int) []byte {
	if i < 0 || i >= s.count {
		return nil
	}
	offset := i * s.size
	return s.region.Bytes()[offset : offset+s.size : offset+s.size]
}

// Addr returns the device address of buffer i, or 0 if i is out of range.
func (s *Slab) Addr(i int) uint64 {
	if i < 0 || i >= s.count {
		return 0
	}
	return s.region.Addr() + uint64(i*s.size)
}

// Slice resolves size bytes at the device address addr inside the Slab.
func (s *Slab) Slice(addr uint64, size uint32) []byte {
	return s.region.Slice(addr, size)
}

// Size returns the size of one buffer.
func (s *Slab) Size() int {
	return s.size
}

// Count returns the number of buffers.
func (s *Slab) Count() int {
	return s.count
}

func (s *Slab) Close() error {
	return s.region.Close()
}
