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
	"unsafe"

	"github.com/loopholelabs/etha/pkg/buffer"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Ring is one descriptor ring of a device: a request ring that software produces into
// and, optionally, a response ring of the same capacity that the device fills at the
// indices it consumes.
//
// A Ring is not safe for concurrent use. The device is the only other party.
type Ring struct {
	bus      Bus
	base     uint32
	capacity uint32
	reqSize  uint32
	respSize uint32
	req      *buffer.Region
	resp     *buffer.Region
	state    State
	logger   *zap.Logger
}

// NewRing allocates the memory of a ring whose control block is at base.
// A respSize of zero creates a ring without responses.
func NewRing(bus Bus, base uint32, capacity uint32, reqSize uint32, respSize uint32) (*Ring, error) {
	if capacity < MinCapacity || capacity > uint32(PointerIndexMask) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if reqSize == 0 {
		return nil, fmt.Errorf("%w: request slots cannot be empty", ErrInvalidSlotSize)
	}

	r := &Ring{
		bus:      bus,
		base:     base,
		capacity: capacity,
		reqSize:  reqSize,
		respSize: respSize,
		logger:   logger.With(zap.Uint32("base", base)),
	}

	var err error
	if r.req, err = allocRing(capacity, reqSize); err != nil {
		return nil, fmt.Errorf("error while allocating request ring at %#x: %w", base, err)
	}
	if r.resp, err = allocRing(capacity, respSize); err != nil {
		_ = r.req.Close()
		return nil, fmt.Errorf("error while allocating response ring at %#x: %w", base, err)
	}

	return r, nil
}

func (r *Ring) write(reg uint32, value uint32) {
	r.bus.Write(r.base+reg, value)
}

func (r *Ring) read(reg uint32) uint32 {
	return r.bus.Read(r.base + reg)
}

// Base returns the register address of the ring's control block.
func (r *Ring) Base() uint32 {
	return r.base
}

func (r *Ring) Capacity() uint32 {
	return r.capacity
}

func (r *Ring) State() State {
	return r.state
}

// HasResponses reports whether the ring has a response ring.
func (r *Ring) HasResponses() bool {
	return r.respSize != 0
}

// Enable publishes the ring memory and capacity to the device and turns the ring on.
func (r *Ring) Enable() error {
	switch r.state {
	case StateEnabled:
		return ErrAlreadyEnabled
	case StateClosed:
		return ErrClosed
	}

	req := r.req.Addr()
	r.write(RingRegsReqBaseL, uint32(req))
	r.write(RingRegsReqBaseH, uint32(req>>32))
	if r.resp != nil {
		resp := r.resp.Addr()
		r.write(RingRegsRespBaseL, uint32(resp))
		r.write(RingRegsRespBaseH, uint32(resp>>32))
	}
	r.write(RingRegsSize, r.capacity)
	r.write(RingRegsCtrl, RingCtrlEnable)
	r.state = StateEnabled

	r.logger.Debug("ring enabled",
		zap.Uint32("capacity", r.capacity),
		zap.Uint64("req", req),
		zap.Uint64("resp", r.resp.Addr()),
	)
	return nil
}

// Disable turns the ring off. The device keeps its pointers, and a later Enable resumes
// from them.
func (r *Ring) Disable() {
	if r.state != StateEnabled {
		return
	}
	r.write(RingRegsCtrl, 0)
	r.state = StateDisabled
	r.logger.Debug("ring disabled")
}

// Close disables the ring and releases its memory.
func (r *Ring) Close() error {
	if r.state == StateClosed {
		return nil
	}
	r.Disable()
	r.state = StateClosed

	err := multierr.Combine(r.req.Close(), r.resp.Close())
	r.req, r.resp = nil, nil
	if err != nil {
		return fmt.Errorf("error while releasing ring at %#x: %w", r.base, err)
	}
	return nil
}

// Status reads the status register.
func (r *Ring) Status() Status {
	return Status(r.read(RingRegsStatus))
}

// SetWatermarks sets the occupancy thresholds of the almost-full and almost-empty flags.
func (r *Ring) SetWatermarks(high uint32, low uint32) {
	r.write(RingRegsHWaterMark, high)
	r.write(RingRegsLWaterMark, low)
}

// SetInterruptMask selects the status flags that raise the ring's interrupt.
func (r *Ring) SetInterruptMask(mask Status) {
	r.write(RingRegsIntMask, uint32(mask))
}

// SetMemSize tells the device the size of the buffers it receives into.
func (r *Ring) SetMemSize(size uint32) {
	r.write(RingRegsMemSize, size)
}

// Producer reads the producer pointer register.
func (r *Ring) Producer() Pointer {
	return Pointer(r.read(RingRegsProducer))
}

// Consumer reads the consumer pointer register.
func (r *Ring) Consumer() Pointer {
	return Pointer(r.read(RingRegsConsumer))
}

// Advance moves p forward by n slots of this ring.
func (r *Ring) Advance(p Pointer, n uint32) Pointer {
	return p.Advance(r.capacity, n)
}

// AdvanceProducer publishes n more requests and returns the previous producer.
func (r *Ring) AdvanceProducer(n uint32) Pointer {
	producer := r.Producer()
	r.write(RingRegsProducer, uint32(producer.Advance(r.capacity, n)))
	return producer
}

// Occupancy returns the number of requests the device has not consumed yet.
func (r *Ring) Occupancy() uint32 {
	return Distance(r.Consumer(), r.Producer(), r.capacity)
}

// Free returns the number of request slots available to software.
func (r *Ring) Free() uint32 {
	return r.capacity - r.Occupancy()
}

// PendingResponses returns the number of slots the device has consumed since cursor.
func (r *Ring) PendingResponses(cursor Pointer) uint32 {
	return Distance(cursor, r.Consumer(), r.capacity)
}

// ResponseReady reports whether the device has consumed the slot at cursor.
func (r *Ring) ResponseReady(cursor Pointer) bool {
	return Passed(cursor, r.Consumer())
}

// RequestSlot returns the request slot at p, or nil if p is out of range.
func (r *Ring) RequestSlot(p Pointer) []byte {
	return slot(r.req, p, r.capacity, r.reqSize)
}

// ResponseSlot returns the response slot at p, or nil if p is out of range or the ring
// has no responses.
func (r *Ring) ResponseSlot(p Pointer) []byte {
	return slot(r.resp, p, r.capacity, r.respSize)
}

func slot(region *buffer.Region, p Pointer, capacity uint32, size uint32) []byte {
	if region == nil || p.Index() >= capacity {
		return nil
	}
	offset := p.Index() * size
	return region.Bytes()[offset : offset+size : offset+size]
}

// Push reserves n request slots, lets fill write them, and publishes them to the device
// by advancing the producer.
//
// fill is called once per slot in chain order. It returns false without calling fill
// when fewer than n slots are free. Otherwise it returns the producer from before the
// push, which is the position of the first slot.
func (r *Ring) Push(n uint32, fill func(i uint32, slot []byte, isHead bool, isTail bool)) (Pointer, bool) {
	if r.Free() < n {
		return 0, false
	}

	ticket := r.Producer()
	for i := uint32(0); i < n; i++ {
		fill(i, r.RequestSlot(ticket.Advance(r.capacity, i)), i == 0, i == n-1)
	}
	r.write(RingRegsProducer, uint32(ticket.Advance(r.capacity, n)))
	return ticket, true
}

// As views slot as a *T. It returns nil if slot is too short.
func As[T any](slot []byte) *T {
	var zero T
	if len(slot) == 0 || uintptr(len(slot)) < unsafe.Sizeof(zero) {
		return nil
	}
	return (*T)(unsafe.Pointer(&slot[0]))
}

// RequestAt views the request slot at p as a *T.
func RequestAt[T any](r *Ring, p Pointer) *T {
	return As[T](r.RequestSlot(p))
}

// ResponseAt views the response slot at p as a *T.
func ResponseAt[T any](r *Ring, p Pointer) *T {
	return As[T](r.ResponseSlot(p))
}
