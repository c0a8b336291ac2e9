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

// Package etha drives the descriptor rings of the etha packet engines.
//
// Every engine talks to software through circular rings of fixed size descriptors that
// live in memory shared with the device. Software produces requests and advances the
// producer pointer register; the device consumes them, writes a response into the
// matching slot of the response ring and advances the consumer pointer register.
// RxQueue, TxQueue and OffloadQueue implement the conventions of the Ethernet receive,
// Ethernet transmit and single-shot transform engines on top of Ring.
package etha

import (
	"errors"

	"github.com/loopholelabs/etha/pkg/buffer"
	"github.com/loopholelabs/etha/pkg/logging"
)

var logger = logging.New("etha")

var (
	ErrInvalidCapacity = errors.New("invalid ring capacity")
	ErrInvalidSlotSize = errors.New("invalid ring slot size")
	ErrAlreadyEnabled  = errors.New("ring is already enabled")
	ErrNotEnabled      = errors.New("ring is not enabled")
	ErrClosed          = errors.New("ring is closed")
	ErrRingFull        = errors.New("ring is full")
	ErrEmptyChain      = errors.New("frame chain has no blocks")
	ErrTooManyBlocks   = errors.New("frame chain has too many blocks")
	ErrFrameTooLarge   = errors.New("frame is too large")
)

// IsAvailable reports whether rings can be allocated on this platform.
func IsAvailable() bool {
	return buffer.IsAvailable()
}
