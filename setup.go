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

package etha

import (
	"fmt"

	binutils "github.com/jfoster/binary-utilities"
	"github.com/loopholelabs/etha/pkg/buffer"
)

// slotAlign is the alignment of a ring of slots of the given size: the slot size
// rounded up to a power of two.
func slotAlign(slotSize uint32) int64 {
	return binutils.NextPowerOfTwo(int64(slotSize))
}

// allocRing allocates the memory of capacity slots of slotSize bytes.
// It returns a nil Region for a slotSize of zero.
func allocRing(capacity uint32, slotSize uint32) (*buffer.Region, error) {
	if slotSize == 0 {
		return nil, nil
	}

	region, err := buffer.NewRegion(int64(capacity)*int64(slotSize), slotAlign(slotSize))
	if err != nil {
		return nil, fmt.Errorf("error while allocating %d slots of %d bytes: %w", capacity, slotSize, err)
	}
	return region, nil
}
