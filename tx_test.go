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

package etha_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/loopholelabs/etha"
	"github.com/loopholelabs/etha/internal/hwmodel"
	"github.com/loopholelabs/etha/internal/testenv"
	"github.com/loopholelabs/etha/pkg/buffer"
	"github.com/loopholelabs/etha/pkg/irq"
	"go4.org/must"
)

// makeBlocks splits a fresh device-visible region into blocks of the given sizes,
// filled with random bytes.
func makeBlocks(t testing.TB, sizes ...uint32) (blocks []etha.MemBlock, data []byte) {
	total := uint32(0)
	for _, size := range sizes {
		total += size
	}

	region, err := buffer.NewRegion(int64(total)+1, 64)
	if err != nil {
		t.Fatalf("failed to create region: %v", err)
	}
	t.Cleanup(func() { must.Close(region) })

	data = region.Bytes()[:total]
	testenv.RandBytes(data)
	offset := uint32(0)
	for _, size := range sizes {
		blocks = append(blocks, etha.BlockOf(data[offset:offset+size]))
		offset += size
	}
	return blocks, data
}

type txSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *txSink) receive(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *txSink) get() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func TestTxBlockingEndToEnd(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewTxQueue(dev, 3, etha.QueueConfig{Capacity: 2})
	require.NoError(err)
	defer must.Close(q)
	require.NoError(q.Enable())

	base := etha.TxRingBase(3)
	assert.EqualValues(0x870, base)

	var sink txSink
	ctx, cancel := context.WithCancel(context.Background())
	done := hwmodel.Run(ctx, func() bool {
		n, _ := dev.ServeTx(base, sink.receive)
		return n > 0
	})
	defer func() {
		cancel()
		<-done
	}()

	for i := 0; i < 5; i++ {
		blocks, data := makeBlocks(t, 10, 20)
		resp, err := q.Send(30, blocks, true)
		require.NoError(err)
		require.NotNil(resp)
		assert.False(resp.TooLarge())
		assert.False(resp.TooSmall())
		assert.Equal(q.Ring().Producer(), q.Ring().Consumer())
		assert.False(q.ResponseReady())

		frames := sink.get()
		require.Len(frames, i+1)
		assert.Equal(data, frames[i])
	}
}

func TestTxRequestLayout(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewTxQueue(dev, 0, etha.QueueConfig{Capacity: 4})
	require.NoError(err)
	defer must.Close(q)
	require.NoError(q.Enable())

	blocks, _ := makeBlocks(t, 10, 20, 30)
	resp, err := q.Send(60, blocks, false)
	require.NoError(err)
	assert.Nil(resp)
	assert.EqualValues(3, q.Ring().Occupancy())

	for i, block := range blocks {
		req := etha.RequestAt[etha.TxReqDesc](q.Ring(), etha.MakePointer(false, uint32(i)))
		assert.Equal(block.Addr, req.Frame.Addr())
		assert.Equal(block.Size, req.Frame.Size())
		assert.Equal(i == 0, req.Frame.Start())
		assert.Equal(i == 2, req.Frame.End())
		if i == 0 {
			assert.EqualValues(60, req.Frame.TotalSize())
			assert.EqualValues(2, req.Frame.NBlocks())
		} else {
			assert.Zero(req.Frame.Chain)
		}
		assert.False(req.Ctrl.RespEn())
	}
}

func TestTxNonBlocking(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewTxQueue(dev, 0, etha.QueueConfig{Capacity: 4, InterruptMask: etha.StatusEmpty})
	require.NoError(err)
	defer must.Close(q)
	require.NoError(q.Enable())
	base := etha.TxRingBase(0)

	irqs := 0
	dev.BindIRQ(base, etha.TxIRQ(0))
	defer must.Close(dev.IRQs().Register(16, func(irq.ID) { irqs++ }))

	blocks, data := makeBlocks(t, 60)
	resp, err := q.Send(60, blocks, false)
	require.NoError(err)
	assert.Nil(resp)
	assert.EqualValues(1, q.Ring().Occupancy())

	var sink txSink
	n, err := dev.ServeTx(base, sink.receive)
	require.NoError(err)
	assert.Equal(1, n)
	assert.Equal([][]byte{data}, sink.get())
	assert.Zero(*etha.ResponseAt[etha.TxResultDesc](q.Ring(), 0), "no response was requested")
	assert.False(q.ResponseReady(), "the cursor moved past the frame")
	assert.Equal(1, irqs, "the ring drained")

	blocks, _ = makeBlocks(t, 5)
	resp, err = q.Send(5, blocks, false)
	require.NoError(err)
	assert.Nil(resp)
	n, err = dev.ServeTx(base, sink.receive)
	require.NoError(err)
	assert.Equal(1, n)
	assert.Len(sink.get(), 1, "frames shorter than an Ethernet header are dropped")
}

func TestTxDropped(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewTxQueue(dev, 1, etha.QueueConfig{Capacity: 8})
	require.NoError(err)
	defer must.Close(q)
	require.NoError(q.Enable())
	base := etha.TxRingBase(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := hwmodel.Run(ctx, func() bool {
		n, _ := dev.ServeTx(base, nil)
		return n > 0
	})
	defer func() {
		cancel()
		<-done
	}()

	blocks, _ := makeBlocks(t, 4, 4)
	resp, err := q.Send(8, blocks, true)
	require.NoError(err)
	assert.True(resp.TooSmall())
	assert.False(resp.TooLarge())

	blocks, _ = makeBlocks(t, 5000, 5000)
	resp, err = q.Send(10000, blocks, true)
	require.NoError(err)
	assert.True(resp.TooLarge())
	assert.False(resp.TooSmall())
}

func TestTxErrors(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewTxQueue(dev, 0, etha.QueueConfig{Capacity: 2})
	require.NoError(err)
	defer must.Close(q)

	blocks, _ := makeBlocks(t, 10, 10, 10)
	_, err = q.Send(30, blocks[:1], false)
	assert.ErrorIs(err, etha.ErrNotEnabled)

	require.NoError(q.Enable())
	_, err = q.Send(0, nil, false)
	assert.ErrorIs(err, etha.ErrEmptyChain)
	_, err = q.Send(30, blocks, false)
	assert.ErrorIs(err, etha.ErrTooManyBlocks)
	_, err = q.Send(etha.MaxFrameSize+1, blocks[:1], false)
	assert.ErrorIs(err, etha.ErrFrameTooLarge)
	_, err = q.Send(30, make([]etha.MemBlock, etha.MaxBlocks+1), false)
	assert.ErrorIs(err, etha.ErrTooManyBlocks)
	assert.Zero(q.Ring().Occupancy())

	require.NoError(q.Close())
	_, err = q.Send(10, blocks[:1], false)
	assert.ErrorIs(err, etha.ErrClosed)
}

func TestTxCancel(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewTxQueue(dev, 0, etha.QueueConfig{Capacity: 2})
	require.NoError(err)
	defer must.Close(q)
	require.NoError(q.Enable())

	blocks, _ := makeBlocks(t, 30, 30)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.SendContext(ctx, 60, blocks, true)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.EqualValues(2, q.Ring().Occupancy(), "a published frame stays published")

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.SendContext(ctx, 30, blocks[:1], false)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.EqualValues(2, q.Ring().Occupancy())

	n, err := dev.ServeTx(etha.TxRingBase(0), nil)
	require.NoError(err)
	assert.Equal(1, n)
	assert.Zero(q.Ring().Occupancy())
}
