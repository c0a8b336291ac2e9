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
	"github.com/pkg/math"
)

const (
	MinCapacity       = 1
	MaxCapacity       = 1 << 16
	DefaultCapacity   = 256
	DefaultBufferSize = 2048
)

// QueueConfig contains the settings of a queue.
type QueueConfig struct {
	// Capacity is the number of slots of each ring of the queue.
	// The default is DefaultCapacity. It is clamped to [MinCapacity, MaxCapacity].
	Capacity int `json:"capacity,omitempty"`

	// BufferSize is the size of each receive buffer. It is ignored by transmit and
	// transform queues. The default is DefaultBufferSize.
	BufferSize int `json:"bufferSize,omitempty"`

	// HighWatermark is the occupancy at which the ring reports almost-full.
	// The default is Capacity.
	HighWatermark int `json:"highWatermark,omitempty"`

	// LowWatermark is the occupancy at which the ring reports almost-empty.
	LowWatermark int `json:"lowWatermark,omitempty"`

	// InterruptMask selects the status flags that raise the ring's interrupt.
	InterruptMask Status `json:"interruptMask,omitempty"`
}

func (cfg *QueueConfig) applyDefaults() {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	cfg.Capacity = math.MinInt(math.MaxInt(MinCapacity, cfg.Capacity), MaxCapacity)

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	cfg.BufferSize = math.MinInt(cfg.BufferSize, MaxFrameSize)

	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = cfg.Capacity
	}
	cfg.HighWatermark = math.MinInt(cfg.HighWatermark, cfg.Capacity)
	cfg.LowWatermark = math.MinInt(math.MaxInt(0, cfg.LowWatermark), cfg.HighWatermark)
}

// newRing creates a ring for a queue.
func (cfg QueueConfig) newRing(bus Bus, base uint32, reqSize uint32, respSize uint32) (*Ring, error) {
	return NewRing(bus, base, uint32(cfg.Capacity), reqSize, respSize)
}

// enableRing programs the watermarks and interrupt mask of r, then enables it.
func (cfg QueueConfig) enableRing(r *Ring) error {
	if err := r.State().check(); err != ErrNotEnabled {
		if err == nil {
			return ErrAlreadyEnabled
		}
		return err
	}
	r.SetWatermarks(uint32(cfg.HighWatermark), uint32(cfg.LowWatermark))
	r.SetInterruptMask(cfg.InterruptMask)
	return r.Enable()
}
