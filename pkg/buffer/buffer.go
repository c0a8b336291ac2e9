//go:build linux

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
	"os"

	binutils "github.com/jfoster/binary-utilities"
	"golang.org/x/sys/unix"
)

var (
	pageSize = int64(os.Getpagesize())
)

// IsAvailable reports whether device-visible regions can be allocated on this platform.
func IsAvailable() bool {
	return true
}

// Region is a block of memory that has been allocated outside of the Go heap via mmap.
//
// The address of a Region never changes and the garbage collector never looks at it,
// so it can be handed to a device for the whole lifetime of the Region.
type Region struct {
	b      []byte
	mapped []byte
}

// NewRegion allocates a zeroed Region of size bytes whose first byte is aligned to align.
//
// The mapping is rounded up to a whole number of pages, which means any power of two up
// to the page size is satisfied by the mapping itself.
func NewRegion(size int64, align int64) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("size must be positive: %d", size)
	}

	if align <= 0 || binutils.NextPowerOfTwo(align) != align {
		return nil, fmt.Errorf("%w: %d is not a power of two", ErrBadAlignment, align)
	}

	if align > pageSize {
		return nil, fmt.Errorf("%w: %d exceeds the page size %d", ErrBadAlignment, align, pageSize)
	}

	length := (size + pageSize - 1) / pageSize * pageSize
	mapped, err := unix.Mmap(-1, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS|unix.MAP_POPULATE)
	if err != nil {
		return nil, fmt.Errorf("error while mmaping region of %d bytes: %w", length, err)
	}

	r := &Region{
		b:      mapped[:size:size],
		mapped: mapped,
	}
	register(r)
	return r, nil
}

// Bytes returns the usable bytes of the Region.
func (r *Region) Bytes() []byte {
	if r == nil {
		return nil
	}
	return r.b
}

// Len returns the usable size of the Region.
func (r *Region) Len() int {
	if r == nil {
		return 0
	}
	return len(r.b)
}

// Addr returns the address of the first byte of the Region, as seen by a device.
func (r *Region) Addr() uint64 {
	if r == nil || r.b == nil {
		return 0
	}
	return Addr(r.b)
}

// Slice returns the size bytes of the Region starting at the device address addr,
// or nil if that range is not entirely inside the Region.
func (r *Region) Slice(addr uint64, size uint32) []byte {
	start := r.Addr()
	if start == 0 || addr < start || addr-start+uint64(size) > uint64(len(r.b)) {
		return nil
	}
	offset := addr - start
	return r.b[offset : offset+uint64(size) : offset+uint64(size)]
}

// Reset zeroes the Region.
func (r *Region) Reset() {
	if r != nil {
		clear(r.b)
	}
}

// Close unmaps the Region. Closing a nil or already closed Region does nothing.
func (r *Region) Close() error {
	if r == nil || r.mapped == nil {
		return nil
	}
	unregister(r)
	err := unix.Munmap(r.mapped)
	r.b, r.mapped = nil, nil
	if err != nil {
		return fmt.Errorf("error while unmapping region: %w", err)
	}
	return nil
}
