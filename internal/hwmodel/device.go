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

// Package hwmodel is an in-memory etha device for tests.
//
// Device implements etha.Bus over a plain register file and plays the device side of
// the ring protocol on demand: it consumes transmit chains, fills receive buffers, and
// answers transform requests, reading and writing ring memory through the addresses
// software programmed.
package hwmodel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/loopholelabs/etha"
	"github.com/loopholelabs/etha/pkg/buffer"
	"github.com/loopholelabs/etha/pkg/irq"
	"github.com/loopholelabs/etha/pkg/logging"
	"go.uber.org/zap"
)

var logger = logging.New("hwmodel")

const (
	MinFrameLen = 14
	MaxFrameLen = 9600
)

var (
	ErrNoBuffers    = errors.New("not enough receive buffers")
	ErrBadChain     = errors.New("malformed request chain")
	ErrUnmapped     = errors.New("address is not mapped")
	ErrRingDisabled = errors.New("ring is disabled")
)

type Device struct {
	mu     sync.Mutex
	regs   map[uint32]uint32
	irqs   *irq.Table
	lines  map[uint32]irq.ID
	parser *parser
}

func New() *Device {
	return &Device{
		regs:   make(map[uint32]uint32),
		irqs:   irq.NewTable(),
		lines:  make(map[uint32]irq.ID),
		parser: newParser(),
	}
}

// IRQs returns the interrupt table of the device.
func (d *Device) IRQs() *irq.Table {
	return d.irqs
}

// BindIRQ makes the ring at base raise id whenever its status matches its interrupt mask
// after the device has worked on it.
func (d *Device) BindIRQ(base uint32, id irq.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines[base] = id
}

func (d *Device) Write(addr uint32, value uint32) {
	switch addr % etha.RingRegsBlockLength {
	case etha.RingRegsConsumer, etha.RingRegsStatus:
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[addr] = value
}

func (d *Device) Read(addr uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if addr%etha.RingRegsBlockLength == etha.RingRegsStatus {
		return uint32(d.status(addr - etha.RingRegsStatus))
	}
	return d.regs[addr]
}

// Poke sets a register, including the ones software cannot write.
func (d *Device) Poke(addr uint32, value uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[addr] = value
}

// AdvanceConsumer consumes n requests of the ring at base without looking at them.
func (d *Device) AdvanceConsumer(base uint32, n uint32) {
	d.mu.Lock()
	d.advance(base, n)
	raise := d.pendingIRQ(base)
	d.mu.Unlock()
	d.raise(raise)
}

func (d *Device) reg(base uint32, offset uint32) uint32 {
	return d.regs[base+offset]
}

func (d *Device) enabled(base uint32) bool {
	return d.reg(base, etha.RingRegsCtrl)&etha.RingCtrlEnable != 0
}

func (d *Device) capacity(base uint32) uint32 {
	return d.reg(base, etha.RingRegsSize)
}

func (d *Device) consumer(base uint32) etha.Pointer {
	return etha.Pointer(d.reg(base, etha.RingRegsConsumer))
}

func (d *Device) producer(base uint32) etha.Pointer {
	return etha.Pointer(d.reg(base, etha.RingRegsProducer))
}

// valids returns the number of requests waiting in the ring at base.
func (d *Device) valids(base uint32) uint32 {
	capacity := d.capacity(base)
	if capacity == 0 || !d.enabled(base) {
		return 0
	}
	return etha.Distance(d.consumer(base), d.producer(base), capacity)
}

func (d *Device) status(base uint32) (s etha.Status) {
	capacity := d.capacity(base)
	c, p := d.consumer(base), d.producer(base)
	live := capacity != 0 && d.enabled(base)
	if live && c.Index() == p.Index() {
		if c.Round() != p.Round() {
			s |= etha.StatusFull
		} else {
			s |= etha.StatusEmpty
		}
	}

	valids := d.valids(base)
	if valids >= d.reg(base, etha.RingRegsHWaterMark) {
		s |= etha.StatusAlmostFull
	}
	if valids <= d.reg(base, etha.RingRegsLWaterMark) {
		s |= etha.StatusAlmostEmpty
	}
	return
}

func (d *Device) advance(base uint32, n uint32) {
	d.regs[base+etha.RingRegsConsumer] = uint32(d.consumer(base).Advance(d.capacity(base), n))
}

func (d *Device) pendingIRQ(base uint32) *irq.ID {
	id, ok := d.lines[base]
	if !ok || d.status(base)&etha.Status(d.reg(base, etha.RingRegsIntMask)) == 0 {
		return nil
	}
	return &id
}

func (d *Device) raise(id *irq.ID) {
	if id != nil {
		d.irqs.Raise(*id)
	}
}

func slotOf(lo uint32, hi uint32, p etha.Pointer, size uint32) []byte {
	addr := uint64(hi)<<32 | uint64(lo)
	if addr == 0 {
		return nil
	}
	return buffer.Lookup(addr+uint64(p.Index())*uint64(size), size)
}

func (d *Device) reqSlot(base uint32, p etha.Pointer, size uint32) []byte {
	return slotOf(d.reg(base, etha.RingRegsReqBaseL), d.reg(base, etha.RingRegsReqBaseH), p, size)
}

func (d *Device) respSlot(base uint32, p etha.Pointer, size uint32) []byte {
	return slotOf(d.reg(base, etha.RingRegsRespBaseL), d.reg(base, etha.RingRegsRespBaseH), p, size)
}

// serve runs fn with the lock held and raises the interrupt of base afterwards.
func (d *Device) serve(base uint32, fn func() (int, error)) (int, error) {
	d.mu.Lock()
	if !d.enabled(base) {
		d.mu.Unlock()
		return 0, fmt.Errorf("%w: %#x", ErrRingDisabled, base)
	}
	n, err := fn()
	var raise *irq.ID
	if n > 0 {
		raise = d.pendingIRQ(base)
	}
	d.mu.Unlock()

	d.raise(raise)
	if err != nil {
		logger.Debug("serve error", zap.Uint32("base", base), zap.Error(err))
	}
	return n, err
}

// Run calls step until ctx is done, yielding whenever step reports no progress. The
// returned channel is closed once Run has stopped.
func Run(ctx context.Context, step func() bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if !step() {
				runtime.Gosched()
			}
		}
	}()
	return done
}
