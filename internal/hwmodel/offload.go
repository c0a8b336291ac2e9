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
	"unsafe"

	"github.com/loopholelabs/etha"
	"github.com/loopholelabs/etha/pkg/buffer"
)

const sgEntrySize = int(unsafe.Sizeof(etha.SGEntry{}))

// OffloadFunc handles one transform request and writes its response.
type OffloadFunc func(req []byte, resp []byte) error

// ServeOffload answers every request waiting in the transform ring at base, one slot at
// a time, and returns the number of requests answered. An error from fn stops serving
// before the failed request is consumed.
func (d *Device) ServeOffload(base uint32, reqSize uint32, respSize uint32, fn OffloadFunc) (int, error) {
	return d.serve(base, func() (served int, err error) {
		for d.valids(base) > 0 {
			c := d.consumer(base)
			req := d.reqSlot(base, c, reqSize)
			resp := d.respSlot(base, c, respSize)
			if req == nil || resp == nil {
				return served, fmt.Errorf("%w: transform ring %#x", ErrUnmapped, base)
			}
			clear(resp)
			if err = fn(req, resp); err != nil {
				return
			}
			d.advance(base, 1)
			served++
		}
		return
	})
}

// Gather returns a copy of the data described by desc.
func Gather(desc *etha.SCFrameDesc) ([]byte, error) {
	if desc.NBlocks() == 0 {
		b := buffer.Lookup(desc.Addr(), desc.TotalSize())
		if b == nil {
			return nil, fmt.Errorf("%w: block %#x of %d bytes", ErrUnmapped, desc.Addr(), desc.TotalSize())
		}
		return append([]byte(nil), b...), nil
	}

	list, err := scatterList(desc)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, desc.TotalSize())
	for _, entry := range list {
		b := buffer.Lookup(entry.Addr, entry.Size)
		if b == nil {
			return nil, fmt.Errorf("%w: block %#x of %d bytes", ErrUnmapped, entry.Addr, entry.Size)
		}
		data = append(data, b...)
	}
	return data, nil
}

// Scatter writes data into the blocks described by desc and returns the number of bytes
// written, which is short when the blocks are too small.
func Scatter(desc *etha.SCFrameDesc, data []byte) (int, error) {
	if desc.NBlocks() == 0 {
		b := buffer.Lookup(desc.Addr(), desc.TotalSize())
		if b == nil {
			return 0, fmt.Errorf("%w: block %#x of %d bytes", ErrUnmapped, desc.Addr(), desc.TotalSize())
		}
		return copy(b, data), nil
	}

	list, err := scatterList(desc)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, entry := range list {
		b := buffer.Lookup(entry.Addr, entry.Size)
		if b == nil {
			return written, fmt.Errorf("%w: block %#x of %d bytes", ErrUnmapped, entry.Addr, entry.Size)
		}
		written += copy(b, data[written:])
	}
	return written, nil
}

func scatterList(desc *etha.SCFrameDesc) ([]etha.SGEntry, error) {
	n := desc.NBlocks() + 1
	raw := buffer.Lookup(desc.Addr(), n*uint32(sgEntrySize))
	if raw == nil {
		return nil, fmt.Errorf("%w: scatter list %#x of %d entries", ErrUnmapped, desc.Addr(), n)
	}
	list := make([]etha.SGEntry, n)
	for i := range list {
		list[i] = *etha.As[etha.SGEntry](raw[i*sgEntrySize:])
	}
	return list, nil
}
