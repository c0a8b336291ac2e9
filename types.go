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
	"strings"
	"unsafe"
)

// Status is the status register of a ring.
type Status uint32

const (
	StatusFull Status = 1 << iota
	StatusEmpty
	StatusAlmostFull
	StatusAlmostEmpty
)

func (s Status) Full() bool {
	return s&StatusFull != 0
}

func (s Status) Empty() bool {
	return s&StatusEmpty != 0
}

func (s Status) AlmostFull() bool {
	return s&StatusAlmostFull != 0
}

func (s Status) AlmostEmpty() bool {
	return s&StatusAlmostEmpty != 0
}

func (s Status) String() string {
	var flags []string
	if s.Full() {
		flags = append(flags, "full")
	}
	if s.Empty() {
		flags = append(flags, "empty")
	}
	if s.AlmostFull() {
		flags = append(flags, "almost-full")
	}
	if s.AlmostEmpty() {
		flags = append(flags, "almost-empty")
	}
	return "[" + strings.Join(flags, ",") + "]"
}

// Field is a bit field of a descriptor word.
type Field struct {
	Shift uint32
	Width uint32
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	return 1<<f.Width - 1
}

func (f Field) Get(word uint32) uint32 {
	return word >> f.Shift & f.Max()
}

func (f Field) Set(word *uint32, value uint32) {
	mask := f.Max() << f.Shift
	*word = *word&^mask | value<<f.Shift&mask
}

func (f Field) Bool(word uint32) bool {
	return f.Get(word) != 0
}

func (f Field) SetBool(word *uint32, value bool) {
	v := uint32(0)
	if value {
		v = 1
	}
	f.Set(word, v)
}

var (
	fieldTotalSize = Field{Shift: 0, Width: 24}
	fieldNBlocks   = Field{Shift: 24, Width: 8}
	fieldSize      = Field{Shift: 0, Width: 24}
	fieldStart     = Field{Shift: 24, Width: 1}
	fieldEnd       = Field{Shift: 25, Width: 1}
	fieldRespEn    = Field{Shift: 0, Width: 1}
	fieldTooLarge  = Field{Shift: 0, Width: 1}
	fieldTooSmall  = Field{Shift: 1, Width: 1}
)

const (
	// MaxBlocks is the longest chain a single descriptor can describe.
	MaxBlocks = 1 << 8
	// MaxFrameSize is the largest size a descriptor can carry.
	MaxFrameSize = 1<<24 - 1
)

// MemBlock is one contiguous block of memory holding part of a frame.
type MemBlock struct {
	Addr     uint64
	Size     uint32
	Reserved uint32
}

// SGEntry is one entry of a scatter-gather list read by the device.
// It has the same layout as MemBlock, so a []MemBlock can be handed over in place.
type SGEntry struct {
	Addr     uint64
	Size     uint32
	Reserved uint32
}

var _ [unsafe.Sizeof(SGEntry{})]byte = [unsafe.Sizeof(MemBlock{})]byte{}

// FrameDesc describes one block of a frame chain.
//
//	word 0: addr[31:0]
//	word 1: addr[63:32]
//	word 2: total_size[23:0] n_blocks[31:24]
//	word 3: size[23:0] start[24] end[25]
type FrameDesc struct {
	AddrLo uint32
	AddrHi uint32
	Chain  uint32
	Block  uint32
}

func (d *FrameDesc) Addr() uint64 {
	return uint64(d.AddrHi)<<32 | uint64(d.AddrLo)
}

func (d *FrameDesc) SetAddr(addr uint64) {
	d.AddrLo, d.AddrHi = uint32(addr), uint32(addr>>32)
}

func (d *FrameDesc) TotalSize() uint32 {
	return fieldTotalSize.Get(d.Chain)
}

func (d *FrameDesc) SetTotalSize(size uint32) {
	fieldTotalSize.Set(&d.Chain, size)
}

// NBlocks returns the number of blocks in the chain after this one.
func (d *FrameDesc) NBlocks() uint32 {
	return fieldNBlocks.Get(d.Chain)
}

func (d *FrameDesc) SetNBlocks(n uint32) {
	fieldNBlocks.Set(&d.Chain, n)
}

func (d *FrameDesc) Size() uint32 {
	return fieldSize.Get(d.Block)
}

func (d *FrameDesc) SetSize(size uint32) {
	fieldSize.Set(&d.Block, size)
}

func (d *FrameDesc) Start() bool {
	return fieldStart.Bool(d.Block)
}

func (d *FrameDesc) SetStart(start bool) {
	fieldStart.SetBool(&d.Block, start)
}

func (d *FrameDesc) End() bool {
	return fieldEnd.Bool(d.Block)
}

func (d *FrameDesc) SetEnd(end bool) {
	fieldEnd.SetBool(&d.Block, end)
}

// SCFrameDesc describes the source or destination of a transform request. With
// NBlocks 0 it points at the data itself, otherwise it points at a list of
// NBlocks+1 SGEntry.
//
//	word 0: addr[31:0]
//	word 1: addr[63:32]
//	word 2: total_size[23:0] n_blocks[31:24]
type SCFrameDesc struct {
	AddrLo uint32
	AddrHi uint32
	Chain  uint32
}

func (d *SCFrameDesc) Addr() uint64 {
	return uint64(d.AddrHi)<<32 | uint64(d.AddrLo)
}

func (d *SCFrameDesc) SetAddr(addr uint64) {
	d.AddrLo, d.AddrHi = uint32(addr), uint32(addr>>32)
}

func (d *SCFrameDesc) TotalSize() uint32 {
	return fieldTotalSize.Get(d.Chain)
}

func (d *SCFrameDesc) SetTotalSize(size uint32) {
	fieldTotalSize.Set(&d.Chain, size)
}

func (d *SCFrameDesc) NBlocks() uint32 {
	return fieldNBlocks.Get(d.Chain)
}

func (d *SCFrameDesc) SetNBlocks(n uint32) {
	fieldNBlocks.Set(&d.Chain, n)
}

// TxCtrl is the control word of a transmit request.
type TxCtrl uint32

func (c TxCtrl) RespEn() bool {
	return fieldRespEn.Bool(uint32(c))
}

func (c *TxCtrl) SetRespEn(en bool) {
	fieldRespEn.SetBool((*uint32)(c), en)
}

// TxReqDesc is one slot of a transmit request ring.
type TxReqDesc struct {
	Frame FrameDesc
	Ctrl  TxCtrl
	_     [3]uint32
}

// TxResultDesc is one slot of a transmit response ring.
type TxResultDesc struct {
	Status uint32
	_      uint32
}

func (d *TxResultDesc) TooLarge() bool {
	return fieldTooLarge.Bool(d.Status)
}

func (d *TxResultDesc) SetTooLarge(v bool) {
	fieldTooLarge.SetBool(&d.Status, v)
}

func (d *TxResultDesc) TooSmall() bool {
	return fieldTooSmall.Bool(d.Status)
}

func (d *TxResultDesc) SetTooSmall(v bool) {
	fieldTooSmall.SetBool(&d.Status, v)
}

// RxReqDesc is one slot of a receive request ring: the address of an empty buffer.
type RxReqDesc struct {
	Addr uint64
}

// RxResultDesc is one slot of a receive response ring.
type RxResultDesc struct {
	Frame  FrameDesc
	L2     L2Desc
	L3     L3Desc
	L4     L4Desc
	Status uint32
	_      [8]uint32
}

func (d *RxResultDesc) TooLarge() bool {
	return fieldTooLarge.Bool(d.Status)
}

func (d *RxResultDesc) SetTooLarge(v bool) {
	fieldTooLarge.SetBool(&d.Status, v)
}

const (
	TxReqSize    = uint32(unsafe.Sizeof(TxReqDesc{}))
	TxResultSize = uint32(unsafe.Sizeof(TxResultDesc{}))
	RxReqSize    = uint32(unsafe.Sizeof(RxReqDesc{}))
	RxResultSize = uint32(unsafe.Sizeof(RxResultDesc{}))
)

var (
	_ [16]byte  = [unsafe.Sizeof(FrameDesc{})]byte{}
	_ [12]byte  = [unsafe.Sizeof(SCFrameDesc{})]byte{}
	_ [32]byte  = [TxReqSize]byte{}
	_ [8]byte   = [TxResultSize]byte{}
	_ [8]byte   = [RxReqSize]byte{}
	_ [128]byte = [RxResultSize]byte{}
)
