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

	"github.com/loopholelabs/etha/pkg/buffer"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RxFrame is a frame received by an RxQueue: the response describing its first block,
// and every block of the chain in order.
//
// The buffers behind Blocks belong to software until the frame is released.
type RxFrame struct {
	Result *RxResultDesc
	Blocks []MemBlock
}

// Empty reports whether the frame carries nothing.
func (f *RxFrame) Empty() bool {
	return f.Result == nil
}

// Len returns the number of blocks in the frame.
func (f *RxFrame) Len() uint32 {
	return uint32(len(f.Blocks))
}

// RxQueue is the receive side of an Ethernet queue.
//
// Every request slot holds the address of one fixed receive buffer. The device writes a
// received frame into as many consecutive buffers as it needs, fills one response per
// buffer, and consumes the matching requests. Releasing the frame hands the requests, and
// with them the buffers, back to the device.
type RxQueue struct {
	id      int
	cfg     QueueConfig
	ring    *Ring
	buffers *buffer.Slab
	cursor  Pointer
	armed   bool
}

func NewRxQueue(bus Bus, id int, cfg QueueConfig) (*RxQueue, error) {
	cfg.applyDefaults()

	ring, err := cfg.newRing(bus, RxRingBase(id), RxReqSize, RxResultSize)
	if err != nil {
		return nil, fmt.Errorf("error while creating receive ring %d: %w", id, err)
	}

	buffers, err := buffer.NewSlab(cfg.Capacity, cfg.BufferSize)
	if err != nil {
		_ = ring.Close()
		return nil, fmt.Errorf("error while allocating receive buffers %d: %w", id, err)
	}

	return &RxQueue{
		id:      id,
		cfg:     cfg,
		ring:    ring,
		buffers: buffers,
	}, nil
}

func (q *RxQueue) ID() int {
	return q.id
}

func (q *RxQueue) Ring() *Ring {
	return q.ring
}

// Enable turns the ring on. The first Enable hands every receive buffer to the device.
// Enabling again after Ring().Disable() only reprograms the ring: the device kept its
// pointers, so buffers and frames not yet received stay where they were.
func (q *RxQueue) Enable() error {
	if err := q.ring.State().check(); err != ErrNotEnabled {
		if err == nil {
			return ErrAlreadyEnabled
		}
		return err
	}

	q.ring.SetMemSize(uint32(q.cfg.BufferSize))
	if err := q.cfg.enableRing(q.ring); err != nil {
		return err
	}

	if q.armed {
		logger.Info("receive queue re-enabled", zap.Int("id", q.id))
		return nil
	}

	q.cursor = q.ring.Consumer()
	if _, ok := q.ring.Push(q.ring.Capacity(), func(i uint32, slot []byte, _ bool, _ bool) {
		As[RxReqDesc](slot).Addr = q.buffers.Addr(int(i))
	}); !ok {
		q.ring.Disable()
		return fmt.Errorf("error while arming receive buffers of queue %d: %w", q.id, ErrRingFull)
	}
	q.armed = true

	logger.Info("receive queue enabled",
		zap.Int("id", q.id),
		zap.Int("capacity", q.cfg.Capacity),
		zap.Int("buffer-size", q.cfg.BufferSize),
	)
	return nil
}

// Receive returns the next received frame, or an empty frame if there is none.
func (q *RxQueue) Receive() (frame RxFrame) {
	if q.ring.State() != StateEnabled || q.ring.PendingResponses(q.cursor) == 0 {
		return
	}

	head := ResponseAt[RxResultDesc](q.ring, q.cursor)
	n := head.Frame.NBlocks() + 1
	frame.Result = head
	frame.Blocks = make([]MemBlock, n)
	for i := uint32(0); i < n; i++ {
		desc := ResponseAt[RxResultDesc](q.ring, q.ring.Advance(q.cursor, i))
		frame.Blocks[i] = MemBlock{
			Addr: desc.Frame.Addr(),
			Size: desc.Frame.Size(),
		}
	}
	q.cursor = q.ring.Advance(q.cursor, n)
	return
}

// Release hands the buffers of frame back to the device and empties frame.
// Releasing an empty frame does nothing.
func (q *RxQueue) Release(frame *RxFrame) {
	if frame.Empty() {
		return
	}
	q.ring.AdvanceProducer(frame.Result.Frame.NBlocks() + 1)
	frame.Result, frame.Blocks = nil, nil
}

// Payload returns the received bytes of block, or nil if block does not point into the
// queue's buffers.
func (q *RxQueue) Payload(block MemBlock) []byte {
	return q.buffers.Slice(block.Addr, block.Size)
}

// Bytes copies the payload of every block of frame into one slice.
func (q *RxQueue) Bytes(frame *RxFrame) []byte {
	if frame.Empty() {
		return nil
	}
	b := make([]byte, 0, frame.Result.Frame.TotalSize())
	for _, block := range frame.Blocks {
		b = append(b, q.Payload(block)...)
	}
	return b
}

func (q *RxQueue) Close() error {
	return multierr.Combine(q.ring.Close(), q.buffers.Close())
}
