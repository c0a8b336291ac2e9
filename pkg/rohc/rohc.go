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

// Package rohc drives the request ring of the ROHC header compression engine.
package rohc

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/loopholelabs/etha"
)

const (
	QueueRegsOffset uint32 = 0x0
	MaxQueues              = 1
)

// RingBase returns the register base of the request ring of queue id.
func RingBase(id int) uint32 {
	return QueueRegsOffset + uint32(id)*etha.RingRegsBlockLength
}

var (
	fieldV2     = etha.Field{Shift: 0, Width: 1}
	fieldDecomp = etha.Field{Shift: 1, Width: 1}
	fieldRespEn = etha.Field{Shift: 31, Width: 1}

	fieldSrcErr   = etha.Field{Shift: 0, Width: 1}
	fieldDstErr   = etha.Field{Shift: 1, Width: 1}
	fieldTooSmall = etha.Field{Shift: 2, Width: 1}
	fieldBadCRC   = etha.Field{Shift: 3, Width: 1}
	fieldNoCtx    = etha.Field{Shift: 4, Width: 1}
	fieldBadFmt   = etha.Field{Shift: 5, Width: 1}
	fieldLen      = etha.Field{Shift: 16, Width: 16}
)

// CfgDesc selects what the engine does with a request.
type CfgDesc uint32

// V2 selects ROHCv2 profiles instead of ROHCv1.
func (c CfgDesc) V2() bool {
	return fieldV2.Bool(uint32(c))
}

func (c *CfgDesc) SetV2(v bool) {
	fieldV2.SetBool((*uint32)(c), v)
}

// Decomp selects decompression instead of compression.
func (c CfgDesc) Decomp() bool {
	return fieldDecomp.Bool(uint32(c))
}

func (c *CfgDesc) SetDecomp(v bool) {
	fieldDecomp.SetBool((*uint32)(c), v)
}

func (c CfgDesc) RespEn() bool {
	return fieldRespEn.Bool(uint32(c))
}

func (c *CfgDesc) SetRespEn(v bool) {
	fieldRespEn.SetBool((*uint32)(c), v)
}

// ReqDesc is one slot of the request ring.
type ReqDesc struct {
	Src etha.SCFrameDesc
	Dst etha.SCFrameDesc
	Cfg CfgDesc
	_   uint32
}

// ResultDesc is one slot of the response ring.
//
//	src_err[0] dst_err[1] too_small[2] bad_crc[3] no_ctx[4] bad_fmt[5] len[31:16]
type ResultDesc struct {
	Status uint32
}

func (d *ResultDesc) SrcErr() bool {
	return fieldSrcErr.Bool(d.Status)
}

func (d *ResultDesc) SetSrcErr(v bool) {
	fieldSrcErr.SetBool(&d.Status, v)
}

func (d *ResultDesc) DstErr() bool {
	return fieldDstErr.Bool(d.Status)
}

func (d *ResultDesc) SetDstErr(v bool) {
	fieldDstErr.SetBool(&d.Status, v)
}

// TooSmall reports that the destination could not hold the output.
func (d *ResultDesc) TooSmall() bool {
	return fieldTooSmall.Bool(d.Status)
}

func (d *ResultDesc) SetTooSmall(v bool) {
	fieldTooSmall.SetBool(&d.Status, v)
}

func (d *ResultDesc) BadCRC() bool {
	return fieldBadCRC.Bool(d.Status)
}

func (d *ResultDesc) SetBadCRC(v bool) {
	fieldBadCRC.SetBool(&d.Status, v)
}

func (d *ResultDesc) NoCtx() bool {
	return fieldNoCtx.Bool(d.Status)
}

func (d *ResultDesc) SetNoCtx(v bool) {
	fieldNoCtx.SetBool(&d.Status, v)
}

func (d *ResultDesc) BadFmt() bool {
	return fieldBadFmt.Bool(d.Status)
}

func (d *ResultDesc) SetBadFmt(v bool) {
	fieldBadFmt.SetBool(&d.Status, v)
}

// Len returns the length of the output written to the destination.
func (d *ResultDesc) Len() uint16 {
	return uint16(fieldLen.Get(d.Status))
}

func (d *ResultDesc) SetLen(n uint16) {
	fieldLen.Set(&d.Status, uint32(n))
}

// IsErr reports whether any error flag is set.
func (d *ResultDesc) IsErr() bool {
	return d.Status&(1<<6-1) != 0
}

const (
	ReqSize    = uint32(unsafe.Sizeof(ReqDesc{}))
	ResultSize = uint32(unsafe.Sizeof(ResultDesc{}))
)

var (
	_ [32]byte = [ReqSize]byte{}
	_ [4]byte  = [ResultSize]byte{}
)

// Queue is a request ring of the ROHC engine.
type Queue struct {
	*etha.OffloadQueue[ReqDesc, ResultDesc]
	id int
}

func NewQueue(bus etha.Bus, id int, cfg etha.QueueConfig) (*Queue, error) {
	if id < 0 || id >= MaxQueues {
		return nil, fmt.Errorf("invalid ROHC queue %d", id)
	}

	oq, err := etha.NewOffloadQueue[ReqDesc, ResultDesc](bus, fmt.Sprintf("rohc%d", id), RingBase(id), cfg)
	if err != nil {
		return nil, err
	}
	return &Queue{
		OffloadQueue: oq,
		id:           id,
	}, nil
}

func (q *Queue) ID() int {
	return q.id
}

// Submit queues the compression or decompression of src into dst. See SubmitContext.
func (q *Queue) Submit(src []etha.MemBlock, dst []etha.MemBlock, cfg CfgDesc) (etha.Pointer, error) {
	return q.SubmitContext(context.Background(), src, dst, cfg)
}

// SubmitContext queues the compression, or decompression if cfg says so, of src into
// dst and returns its ticket. src and dst must stay untouched until the request has been
// consumed.
func (q *Queue) SubmitContext(ctx context.Context, src []etha.MemBlock, dst []etha.MemBlock, cfg CfgDesc) (etha.Pointer, error) {
	req := ReqDesc{Cfg: cfg}
	if err := etha.BuildScatter(&req.Src, src); err != nil {
		return 0, fmt.Errorf("error while preparing source: %w", err)
	}
	if err := etha.BuildScatter(&req.Dst, dst); err != nil {
		return 0, fmt.Errorf("error while preparing destination: %w", err)
	}
	return q.OffloadQueue.SubmitContext(ctx, &req)
}
