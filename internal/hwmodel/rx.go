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

package hwmodel

import (
	"fmt"

	"github.com/loopholelabs/etha"
	"github.com/loopholelabs/etha/pkg/buffer"
)

// DeliverRx receives frame on the receive ring at base.
//
// The frame is split over as many waiting buffers as it needs. Every buffer gets a
// response describing its part, and the first response also describes the whole chain
// and the parsed headers. It fails with ErrNoBuffers, leaving the ring untouched, when
// the waiting buffers cannot hold the frame.
func (d *Device) DeliverRx(base uint32, frame []byte) error {
	_, err := d.serve(base, func() (int, error) {
		memSize := d.reg(base, etha.RingRegsMemSize)
		if memSize == 0 {
			return 0, fmt.Errorf("%w: receive ring %#x has no buffer size", ErrNoBuffers, base)
		}
		valids := d.valids(base)
		if uint64(memSize)*uint64(valids) < uint64(len(frame)) || valids == 0 {
			return 0, fmt.Errorf("%w: %d bytes, %d buffers of %d bytes", ErrNoBuffers, len(frame), valids, memSize)
		}

		n := (uint32(len(frame)) + memSize - 1) / memSize
		if n == 0 {
			n = 1
		}
		if n > etha.MaxBlocks {
			return 0, fmt.Errorf("%w: %d blocks", ErrBadChain, n)
		}

		capacity := d.capacity(base)
		c := d.consumer(base)
		rest := frame
		for i := uint32(0); i < n; i++ {
			p := c.Advance(capacity, i)
			req := etha.As[etha.RxReqDesc](d.reqSlot(base, p, etha.RxReqSize))
			resp := etha.As[etha.RxResultDesc](d.respSlot(base, p, etha.RxResultSize))
			if req == nil || resp == nil {
				return 0, fmt.Errorf("%w: receive ring %#x", ErrUnmapped, base)
			}

			chunk := rest[:min(uint32(len(rest)), memSize)]
			rest = rest[len(chunk):]
			b := buffer.Lookup(req.Addr, uint32(len(chunk)))
			if b == nil && len(chunk) != 0 {
				return 0, fmt.Errorf("%w: buffer %#x", ErrUnmapped, req.Addr)
			}
			copy(b, chunk)

			*resp = etha.RxResultDesc{}
			resp.Frame.SetAddr(req.Addr)
			resp.Frame.SetSize(uint32(len(chunk)))
			resp.Frame.SetStart(i == 0)
			resp.Frame.SetEnd(i == n-1)
		}

		head := etha.As[etha.RxResultDesc](d.respSlot(base, c, etha.RxResultSize))
		head.Frame.SetNBlocks(n - 1)
		head.Frame.SetTotalSize(uint32(len(frame)))
		head.SetTooLarge(len(frame) > MaxFrameLen)
		d.parser.parse(frame, head)

		d.advance(base, n)
		return 1, nil
	})
	return err
}
