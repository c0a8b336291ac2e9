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

// TxFunc receives every transmitted frame that is neither too small nor too large.
type TxFunc func(frame []byte)

// ServeTx consumes every complete chain waiting in the transmit ring at base and returns
// the number of chains consumed.
//
// A chain whose total size is outside [MinFrameLen, MaxFrameLen] is dropped, and its
// response says so if the sender asked for one.
func (d *Device) ServeTx(base uint32, fn TxFunc) (int, error) {
	return d.serve(base, func() (served int, err error) {
		capacity := d.capacity(base)
		for {
			valids := d.valids(base)
			if valids == 0 {
				return
			}

			c := d.consumer(base)
			head := etha.As[etha.TxReqDesc](d.reqSlot(base, c, etha.TxReqSize))
			if head == nil {
				return served, fmt.Errorf("%w: transmit ring %#x", ErrUnmapped, base)
			}
			if !head.Frame.Start() {
				return served, fmt.Errorf("%w: slot %s does not start a chain", ErrBadChain, c)
			}

			n := head.Frame.NBlocks() + 1
			if valids < n {
				return
			}

			total := head.Frame.TotalSize()
			tooLarge, tooSmall := total > MaxFrameLen, total < MinFrameLen
			if !tooLarge && !tooSmall {
				frame := make([]byte, 0, total)
				for i := uint32(0); i < n; i++ {
					req := etha.As[etha.TxReqDesc](d.reqSlot(base, c.Advance(capacity, i), etha.TxReqSize))
					if i == n-1 && !req.Frame.End() {
						return served, fmt.Errorf("%w: chain at %s does not end after %d blocks", ErrBadChain, c, n)
					}
					b := buffer.Lookup(req.Frame.Addr(), req.Frame.Size())
					if b == nil && req.Frame.Size() != 0 {
						return served, fmt.Errorf("%w: block %#x of %d bytes", ErrUnmapped, req.Frame.Addr(), req.Frame.Size())
					}
					frame = append(frame, b...)
				}
				if fn != nil {
					fn(frame)
				}
			}

			if head.Ctrl.RespEn() {
				if resp := etha.As[etha.TxResultDesc](d.respSlot(base, c, etha.TxResultSize)); resp != nil {
					*resp = etha.TxResultDesc{}
					resp.SetTooLarge(tooLarge)
					resp.SetTooSmall(tooSmall)
				}
			}

			d.advance(base, n)
			served++
		}
	})
}
