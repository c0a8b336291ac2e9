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
	"unsafe"

	"go.uber.org/zap"
)

// OffloadQueue is a queue of a transform engine: every request is a single Req slot and
// the device answers it with a Resp at the same index.
type OffloadQueue[Req any, Resp any] struct {
	name string
	cfg  QueueConfig
	ring *Ring
}

// NewOffloadQueue creates a transform queue whose ring control block is at base.
func NewOffloadQueue[Req any, Resp any](bus Bus, name string, base uint32, cfg QueueConfig) (*OffloadQueue[Req, Resp], error) {
	cfg.applyDefaults()

	var req Req
	var resp Resp
	ring, err := cfg.newRing(bus, base, uint32(unsafe.Sizeof(req)), uint32(unsafe.Sizeof(resp)))
	if err != nil {
		return nil, fmt.Errorf("error while creating %s ring: %w", name, err)
	}

	return &OffloadQueue[Req, Resp]{
		name: name,
		cfg:  cfg,
		ring: ring,
	}, nil
}

func (q *OffloadQueue[Req, Resp]) Ring() *Ring {
	return q.ring
}

func (q *OffloadQueue[Req, Resp]) Enable() error {
	if err := q.cfg.enableRing(q.ring); err != nil {
		return err
	}

	logger.Info("offload queue enabled",
		zap.String("name", q.name),
		zap.Int("capacity", q.cfg.Capacity),
	)
	return nil
}

// Submit publishes req. See SubmitContext.
func (q *OffloadQueue[Req, Resp]) Submit(req *Req) (Pointer, error) {
	return q.SubmitContext(context.Background(), req)
}

// SubmitContext copies req into the next request slot, waiting for one to become free,
// and publishes it. The returned ticket identifies the request's response.
func (q *OffloadQueue[Req, Resp]) SubmitContext(ctx context.Context, req *Req) (Pointer, error) {
	if err := q.ring.State().check(); err != nil {
		return 0, err
	}
	return push(ctx, q.ring, 1, func(_ uint32, slot []byte, _ bool, _ bool) {
		*As[Req](slot) = *req
	})
}

// Completed reports whether the device has consumed the request of ticket.
func (q *OffloadQueue[Req, Resp]) Completed(ticket Pointer) bool {
	return q.ring.ResponseReady(ticket)
}

// Response returns the response slot of ticket. It does not check that the device has
// written it yet.
func (q *OffloadQueue[Req, Resp]) Response(ticket Pointer) *Resp {
	return ResponseAt[Resp](q.ring, ticket)
}

// Wait polls until the request of ticket has been consumed, then returns its response.
func (q *OffloadQueue[Req, Resp]) Wait(ctx context.Context, ticket Pointer) (*Resp, error) {
	if err := Poll(ctx, func() bool { return q.Completed(ticket) }); err != nil {
		return nil, err
	}
	return q.Response(ticket), nil
}

func (q *OffloadQueue[Req, Resp]) Close() error {
	return q.ring.Close()
}
