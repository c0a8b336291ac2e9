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
)

// Pointer is a position in a ring as exchanged with the device.
//
// Bits 0..30 hold the slot index and bit 31 is the round bit, which flips every time
// the index wraps. Two pointers with the same index are equal when their rounds match
// and exactly one capacity apart when they differ, which tells a full ring apart from an
// empty one.
type Pointer uint32

const (
	PointerRound     Pointer = 1 << 31
	PointerIndexMask Pointer = PointerRound - 1
)

// MakePointer assembles a Pointer from its round bit and slot index.
func MakePointer(round bool, index uint32) Pointer {
	p := Pointer(index) & PointerIndexMask
	if round {
		p |= PointerRound
	}
	return p
}

// Index returns the slot index.
func (p Pointer) Index() uint32 {
	return uint32(p & PointerIndexMask)
}

// Round returns the round bit.
func (p Pointer) Round() bool {
	return p&PointerRound != 0
}

// Advance moves p forward by n slots in a ring of the given capacity.
// n must not exceed capacity.
func (p Pointer) Advance(capacity uint32, n uint32) Pointer {
	if p.Index()+n > capacity-1 {
		return (p^PointerRound)&PointerRound | Pointer(p.Index()+n-capacity)
	}
	return p + Pointer(n)
}

func (p Pointer) String() string {
	round := 0
	if p.Round() {
		round = 1
	}
	return fmt.Sprintf("%d:%d", round, p.Index())
}

// Distance returns the number of slots from "from" forward to "to" in a ring of the
// given capacity. The result is in [0, capacity] as long as "to" is not behind "from".
func Distance(from Pointer, to Pointer, capacity uint32) uint32 {
	if from.Round() != to.Round() {
		return capacity - (from.Index() - to.Index())
	}
	return to.Index() - from.Index()
}

// Passed reports whether the consumer has moved beyond cursor, meaning the slot at cursor
// has been consumed. With equal rounds the consumer index must be ahead of cursor; after
// a wrap it must not have caught up with cursor again.
func Passed(cursor Pointer, consumer Pointer) bool {
	if cursor.Round() == consumer.Round() {
		return consumer.Index() > cursor.Index()
	}
	return consumer.Index() <= cursor.Index()
}
