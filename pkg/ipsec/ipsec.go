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

// Package ipsec drives the request rings of the IPsec engine.
//
// A request names a source and a destination frame, each possibly scattered over several
// blocks, and how the engine should find the AAD, payload, IV and ICV inside them. The
// session a request refers to must have been programmed beforehand.
package ipsec

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/loopholelabs/etha"
	"github.com/loopholelabs/etha/pkg/logging"
	"go.uber.org/zap"
)

var logger = logging.New("ipsec")

const (
	QueueRegsOffset uint32 = 0x800
	MaxQueues              = 4
	MaxSessions            = 64
)

// RingBase returns the register base of the request ring of queue id.
func RingBase(id int) uint32 {
	return QueueRegsOffset + uint32(id)*etha.RingRegsBlockLength
}

var (
	fieldAADLen    = etha.Field{Shift: 0, Width: 24}
	fieldSessionID = etha.Field{Shift: 24, Width: 8}
	fieldTextLen   = etha.Field{Shift: 0, Width: 24}
	fieldEncrypt   = etha.Field{Shift: 24, Width: 1}
	fieldRespEn    = etha.Field{Shift: 25, Width: 1}
	fieldAADCopy   = etha.Field{Shift: 26, Width: 1}
	fieldIVCopy    = etha.Field{Shift: 27, Width: 1}

	fieldSrcErr         = etha.Field{Shift: 0, Width: 1}
	fieldDstErr         = etha.Field{Shift: 1, Width: 1}
	fieldInvalidSession = etha.Field{Shift: 2, Width: 1}
	fieldCipherErr      = etha.Field{Shift: 3, Width: 1}
	fieldAuthFail       = etha.Field{Shift: 4, Width: 1}
)

// FmtDesc locates the parts of a frame, as byte offsets from its start.
type FmtDesc struct {
	AADOffset  uint32
	TextOffset uint32
	IVOffset   uint32
	ICVOffset  uint32
}

// FrameCfgDesc holds the per-request settings.
//
//	word 0: aad_len[23:0] session_id[31:24]
//	word 1: text_len[23:0] encrypt[24] resp_en[25] aad_copy[26] iv_copy[27]
type FrameCfgDesc struct {
	Lengths uint32
	Flags   uint32
}

func (d *FrameCfgDesc) AADLen() uint32 {
	return fieldAADLen.Get(d.Lengths)
}

func (d *FrameCfgDesc) SetAADLen(n uint32) {
	fieldAADLen.Set(&d.Lengths, n)
}

func (d *FrameCfgDesc) SessionID() uint8 {
	return uint8(fieldSessionID.Get(d.Lengths))
}

func (d *FrameCfgDesc) SetSessionID(id uint8) {
	fieldSessionID.Set(&d.Lengths, uint32(id))
}

func (d *FrameCfgDesc) TextLen() uint32 {
	return fieldTextLen.Get(d.Flags)
}

func (d *FrameCfgDesc) SetTextLen(n uint32) {
	fieldTextLen.Set(&d.Flags, n)
}

func (d *FrameCfgDesc) Encrypt() bool {
	return fieldEncrypt.Bool(d.Flags)
}

func (d *FrameCfgDesc) SetEncrypt(v bool) {
	fieldEncrypt.SetBool(&d.Flags, v)
}

func (d *FrameCfgDesc) RespEn() bool {
	return fieldRespEn.Bool(d.Flags)
}

func (d *FrameCfgDesc) SetRespEn(v bool) {
	fieldRespEn.SetBool(&d.Flags, v)
}

// AADCopy reports whether the AAD is copied to the destination.
func (d *FrameCfgDesc) AADCopy() bool {
	return fieldAADCopy.Bool(d.Flags)
}

func (d *FrameCfgDesc) SetAADCopy(v bool) {
	fieldAADCopy.SetBool(&d.Flags, v)
}

// IVCopy reports whether the IV is copied to the destination.
func (d *FrameCfgDesc) IVCopy() bool {
	return fieldIVCopy.Bool(d.Flags)
}

func (d *FrameCfgDesc) SetIVCopy(v bool) {
	fieldIVCopy.SetBool(&d.Flags, v)
}

// CfgDesc is the engine configuration part of a request.
type CfgDesc struct {
	Src   FmtDesc
	Dst   FmtDesc
	Frame FrameCfgDesc
}

// ReqDesc is one slot of a request ring.
type ReqDesc struct {
	Src etha.SCFrameDesc
	Dst etha.SCFrameDesc
	Cfg CfgDesc
}

// ResultDesc is one slot of a response ring.
type ResultDesc struct {
	Status uint32
	_      uint32
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

func (d *ResultDesc) InvalidSession() bool {
	return fieldInvalidSession.Bool(d.Status)
}

func (d *ResultDesc) SetInvalidSession(v bool) {
	fieldInvalidSession.SetBool(&d.Status, v)
}

func (d *ResultDesc) CipherErr() bool {
	return fieldCipherErr.Bool(d.Status)
}

func (d *ResultDesc) SetCipherErr(v bool) {
	fieldCipherErr.SetBool(&d.Status, v)
}

func (d *ResultDesc) AuthFail() bool {
	return fieldAuthFail.Bool(d.Status)
}

func (d *ResultDesc) SetAuthFail(v bool) {
	fieldAuthFail.SetBool(&d.Status, v)
}

// IsErr reports whether any error flag is set.
func (d *ResultDesc) IsErr() bool {
	return d.Status&(1<<5-1) != 0
}

const (
	ReqSize    = uint32(unsafe.Sizeof(ReqDesc{}))
	ResultSize = uint32(unsafe.Sizeof(ResultDesc{}))
)

var (
	_ [64]byte = [ReqSize]byte{}
	_ [8]byte  = [ResultSize]byte{}
)

// Queue is one request ring of the IPsec engine.
type Queue struct {
	*etha.OffloadQueue[ReqDesc, ResultDesc]
	id int
}

func NewQueue(bus etha.Bus, id int, cfg etha.QueueConfig) (*Queue, error) {
	if id < 0 || id >= MaxQueues {
		return nil, fmt.Errorf("invalid IPsec queue %d", id)
	}

	oq, err := etha.NewOffloadQueue[ReqDesc, ResultDesc](bus, fmt.Sprintf("ipsec%d", id), RingBase(id), cfg)
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

// Submit queues one transform of src into dst. See SubmitContext.
func (q *Queue) Submit(src []etha.MemBlock, dst []etha.MemBlock, cfg CfgDesc) (etha.Pointer, error) {
	return q.SubmitContext(context.Background(), src, dst, cfg)
}

// SubmitContext queues one transform of src into dst and returns its ticket.
//
// Chains of more than one block are handed to the engine in place, so src and dst must
// stay untouched until the request has been consumed.
func (q *Queue) SubmitContext(ctx context.Context, src []etha.MemBlock, dst []etha.MemBlock, cfg CfgDesc) (etha.Pointer, error) {
	req := ReqDesc{Cfg: cfg}
	if err := etha.BuildScatter(&req.Src, src); err != nil {
		return 0, fmt.Errorf("error while preparing source: %w", err)
	}
	if err := etha.BuildScatter(&req.Dst, dst); err != nil {
		return 0, fmt.Errorf("error while preparing destination: %w", err)
	}

	ticket, err := q.OffloadQueue.SubmitContext(ctx, &req)
	if err != nil {
		return 0, err
	}
	logger.Debug("request submitted",
		zap.Int("queue", q.id),
		zap.Stringer("ticket", ticket),
		zap.Uint8("session", cfg.Frame.SessionID()),
	)
	return ticket, nil
}
