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

// Package buffer allocates memory that a device can read and write directly.
package buffer

import (
	"errors"
	"sort"
	"sync"
	"unsafe"
)

var (
	ErrNotAvailable = errors.New("buffer is not available on this platform")
	ErrBadAlignment = errors.New("invalid alignment")
)

var registry struct {
	sync.RWMutex
	regions []*Region
}

// Addr returns the address of the first byte of b, as seen by a device. It is only
// meaningful for slices that live inside a Region.
func Addr(b []byte) uint64 {
	if cap(b) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}

// Lookup returns the size bytes starting at the device address addr, as long as they
// lie entirely inside one live Region. It returns nil otherwise.
func Lookup(addr uint64, size uint32) []byte {
	registry.RLock()
	defer registry.RUnlock()

	i := sort.Search(len(registry.regions), func(i int) bool {
		return registry.regions[i].Addr() > addr
	})
	if i == 0 {
		return nil
	}
	return registry.regions[i-1].Slice(addr, size)
}

func register(r *Region) {
	registry.Lock()
	defer registry.Unlock()

	addr := r.Addr()
	i := sort.Search(len(registry.regions), func(i int) bool {
		return registry.regions[i].Addr() > addr
	})
	registry.regions = append(registry.regions, nil)
	copy(registry.regions[i+1:], registry.regions[i:])
	registry.regions[i] = r
}

func unregister(r *Region) {
	registry.Lock()
	defer registry.Unlock()

	for i, region := range registry.regions {
		if region == r {
			registry.regions = append(registry.regions[:i], registry.regions[i+1:]...)
			return
		}
	}
}
