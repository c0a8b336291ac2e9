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
)

// BlockOf returns the MemBlock covering b. b should live in device-visible memory.
func BlockOf(b []byte) MemBlock {
	return MemBlock{
		Addr: buffer.Addr(b),
		Size: uint32(len(b)),
	}
}

// ChainSize validates a chain of blocks and returns its total size.
func ChainSize(blocks []MemBlock) (uint32, error) {
	switch {
	case len(blocks) == 0:
		return 0, ErrEmptyChain
	case len(blocks) > MaxBlocks:
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyBlocks, len(blocks), MaxBlocks)
	}

	total := uint64(0)
	for _, block := range blocks {
		if block.Size > MaxFrameSize {
			return 0, fmt.Errorf("%w: block of %d bytes", ErrFrameTooLarge, block.Size)
		}
		total += uint64(block.Size)
	}
	if total > MaxFrameSize {
		return 0, fmt.Errorf("%w: chain of %d bytes", ErrFrameTooLarge, total)
	}
	return uint32(total), nil
}

// PrepareBlock resets e and fills it with block i of a chain of n blocks.
func (e *TxReqDesc) PrepareBlock(block MemBlock, i int, n int) {
	*e = TxReqDesc{}
	e.Frame.SetAddr(block.Addr)
	e.Frame.SetSize(block.Size)
	e.Frame.SetStart(i == 0)
	e.Frame.SetEnd(i == n-1)
}

// PrepareHead fills the chain fields that only the first block of a chain carries.
func (e *TxReqDesc) PrepareHead(totalSize uint32, n int, respEn bool) {
	e.Frame.SetTotalSize(totalSize)
	e.Frame.SetNBlocks(uint32(n - 1))
	e.Ctrl.SetRespEn(respEn)
}

// ScatterList views blocks as a scatter-gather list without copying.
func ScatterList(blocks []MemBlock) []SGEntry {
	if len(blocks) == 0 {
		return nil
	}
	return unsafe.Slice((*SGEntry)(unsafe.Pointer(&blocks[0])), len(blocks))
}

// PrepareScatter fills d so that it describes blocks.
//
// A single block is described directly. Longer chains are described by the address of
// blocks itself, which the device reads as a list of SGEntry: blocks must therefore live
// in device-visible memory, see NewBlockList, and must not change until the request has
// been consumed.
func (d *SCFrameDesc) PrepareScatter(blocks []MemBlock) error {
	total, err := ChainSize(blocks)
	if err != nil {
		return err
	}

	*d = SCFrameDesc{}
	if len(blocks) == 1 {
		d.SetAddr(blocks[0].Addr)
	} else {
		d.SetAddr(uint64(uintptr(unsafe.Pointer(&ScatterList(blocks)[0]))))
	}
	d.SetTotalSize(total)
	d.SetNBlocks(uint32(len(blocks) - 1))
	return nil
}

// BuildScatter fills desc so that it describes blocks. See SCFrameDesc.PrepareScatter.
func BuildScatter(desc *SCFrameDesc, blocks []MemBlock) error {
	return desc.PrepareScatter(blocks)
}

// BlockList is a []MemBlock held in device-visible memory, suitable as the scatter
// list of a transform request.
type BlockList struct {
	region *buffer.Region
	Blocks []MemBlock
}

// NewBlockList allocates room for n blocks from the shared region pool.
func NewBlockList(n int) (*BlockList, error) {
	if n <= 0 || n > MaxBlocks {
		return nil, fmt.Errorf("%w: %d", ErrTooManyBlocks, n)
	}

	region, err := buffer.GetRegion()
	if err != nil {
		return nil, fmt.Errorf("error while allocating block list: %w", err)
	}
	if uintptr(region.Len()) < uintptr(n)*unsafe.Sizeof(MemBlock{}) {
		_ = buffer.PutRegion(region)
		return nil, fmt.Errorf("%w: %d blocks do not fit in a pooled region", ErrTooManyBlocks, n)
	}

	return &BlockList{
		region: region,
		Blocks: unsafe.Slice((*MemBlock)(unsafe.Pointer(&region.Bytes()[0])), n),
	}, nil
}

// Close returns the memory of the list to the pool.
func (l *BlockList) Close() error {
	region := l.region
	l.region, l.Blocks = nil, nil
	return buffer.PutRegion(region)
}
