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
	"context"
	"fmt"

	"go.uber.org/zap"
)

// TxQueue is the transmit side of an Ethernet queue.
//
// A frame is sent as a chain of request slots, one per block. Only the first slot of a
// chain gets a response, and only when the sender asked for one.
type TxQueue struct {
	id     int
	cfg    QueueConfig
	ring   *Ring
	cursor Pointer
}

func NewTxQueue(bus Bus, id int, cfg QueueConfig) (*TxQueue, error) {
	cfg.applyDefaults()

	ring, err := cfg.newRing(bus, TxRingBase(id), TxReqSize, TxResultSize)
	if err != nil {
		return nil, fmt.Errorf("error while creating transmit ring %d: %w", id, err)
	}

	return &TxQueue{
		id:   id,
		cfg:  cfg,
		ring: ring,
	}, nil
}

func (q *TxQueue) ID() int {
	return q.id
}

func (q *TxQueue) Ring() *Ring {
	return q.ring
}

func (q *TxQueue) Enable() error {
	if err := q.cfg.enableRing(q.ring); err != nil {
		return err
	}
	q.cursor = q.ring.Producer()

	logger.Info("transmit queue enabled",
		zap.Int("id", q.id),
		zap.Int("capacity", q.cfg.Capacity),
	)
	return nil
}

// ResponseReady reports whether the device has consumed the chain at the cursor.
func (q *TxQueue) ResponseReady() bool {
	return q.ring.ResponseReady(q.cursor)
}

// Send transmits a frame made of blocks. See SendContext.
func (q *TxQueue) Send(totalSize uint32, blocks []MemBlock, blocking bool) (*TxResultDesc, error) {
	return q.SendContext(context.Background(), totalSize, blocks, blocking)
}

// SendContext transmits a frame of totalSize bytes made of blocks, waiting for free
// slots as long as needed.
//
// When blocking, it then waits for the device to consume the frame and returns its
// response, which stays valid until the slot is reused. Otherwise it returns a nil
// response right after publishing the frame, and no response is ever written for it.
//
// ctx only bounds the waiting. A frame that has been published is never taken back,
// so a blocking send cancelled after publishing returns ctx.Err() with the frame still
// in flight.
func (q *TxQueue) SendContext(ctx context.Context, totalSize uint32, blocks []MemBlock, blocking bool) (*TxResultDesc, error) {
	if err := q.ring.State().check(); err != nil {
		return nil, err
	}
	if totalSize > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, totalSize)
	}
	if _, err := ChainSize(blocks); err != nil {
		return nil, err
	}
	n := len(blocks)
	if uint32(n) > q.ring.Capacity() {
		return nil, fmt.Errorf("%w: %d blocks do not fit in %d slots", ErrTooManyBlocks, n, q.ring.Capacity())
	}

	_, err := push(ctx, q.ring, uint32(n), func(i uint32, slot []byte, isHead bool, _ bool) {
		req := As[TxReqDesc](slot)
		req.PrepareBlock(blocks[i], int(i), n)
		if isHead {
			req.PrepareHead(totalSize, n, blocking)
		}
	})
	if err != nil {
		return nil, err
	}

	if !blocking {
		q.cursor = q.ring.Producer()
		return nil, nil
	}

	err = Poll(ctx, q.ResponseReady)
	cursor := q.cursor
	q.cursor = q.ring.Producer()
	if err != nil {
		return nil, err
	}
	return ResponseAt[TxResultDesc](q.ring, cursor), nil
}

func (q *TxQueue) Close() error {
	return q.ring.Close()
}
