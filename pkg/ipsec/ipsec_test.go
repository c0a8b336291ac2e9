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

package ipsec_test

import (
	"context"
	"testing"

	"github.com/loopholelabs/etha"
	"github.com/loopholelabs/etha/internal/hwmodel"
	"github.com/loopholelabs/etha/internal/testenv"
	"github.com/loopholelabs/etha/pkg/buffer"
	"github.com/loopholelabs/etha/pkg/ipsec"
	"go4.org/must"
)

var makeAR = testenv.MakeAR

// xorEngine inverts every payload byte of sessions it knows about.
func xorEngine(req []byte, resp []byte) error {
	r := etha.As[ipsec.ReqDesc](req)
	result := etha.As[ipsec.ResultDesc](resp)
	if r.Cfg.Frame.SessionID() >= 8 {
		result.SetInvalidSession(true)
		return nil
	}

	data, err := hwmodel.Gather(&r.Src)
	if err != nil {
		result.SetSrcErr(true)
		return nil
	}
	for i := range data {
		data[i] ^= 0xff
	}
	if n, err := hwmodel.Scatter(&r.Dst, data); err != nil || n < len(data) {
		result.SetDstErr(true)
	}
	return nil
}

func TestRingBase(t *testing.T) {
	assert, _ := makeAR(t)
	assert.EqualValues(0x800, ipsec.RingBase(0))
	assert.EqualValues(0x830, ipsec.RingBase(3))

	var cfg ipsec.FrameCfgDesc
	cfg.SetAADLen(8)
	cfg.SetSessionID(63)
	cfg.SetTextLen(100)
	cfg.SetEncrypt(true)
	cfg.SetIVCopy(true)
	assert.EqualValues(63<<24|8, cfg.Lengths)
	assert.EqualValues(1<<27|1<<24|100, cfg.Flags)
	assert.False(cfg.AADCopy())
	assert.False(cfg.RespEn())
}

func TestQueue(t *testing.T) {
	if !buffer.IsAvailable() {
		t.Skip("device memory is not available on this platform")
	}
	assert, require := makeAR(t)

	_, err := ipsec.NewQueue(hwmodel.New(), ipsec.MaxQueues, etha.QueueConfig{})
	assert.Error(err)

	dev := hwmodel.New()
	q, err := ipsec.NewQueue(dev, 2, etha.QueueConfig{Capacity: 4})
	require.NoError(err)
	defer must.Close(q)
	assert.Equal(2, q.ID())
	assert.EqualValues(ipsec.RingBase(2), q.Ring().Base())

	_, err = q.Submit(nil, nil, ipsec.CfgDesc{})
	assert.ErrorIs(err, etha.ErrNotEnabled)
	require.NoError(q.Enable())

	mem, err := buffer.NewRegion(4096, 64)
	require.NoError(err)
	defer must.Close(mem)
	plain := mem.Bytes()[:48]
	testenv.RandBytes(plain)

	list, err := etha.NewBlockList(3)
	require.NoError(err)
	defer must.Close(list)
	list.Blocks[0] = etha.BlockOf(plain[:16])
	list.Blocks[1] = etha.BlockOf(plain[16:20])
	list.Blocks[2] = etha.BlockOf(plain[20:])
	dst := mem.Bytes()[1024 : 1024+48]

	var cfg ipsec.CfgDesc
	cfg.Frame.SetSessionID(1)
	cfg.Frame.SetTextLen(48)
	cfg.Frame.SetEncrypt(true)
	cfg.Frame.SetRespEn(true)
	ok, err := q.Submit(list.Blocks, []etha.MemBlock{etha.BlockOf(dst)}, cfg)
	require.NoError(err)

	cfg.Frame.SetSessionID(9)
	bad, err := q.Submit([]etha.MemBlock{etha.BlockOf(plain)}, []etha.MemBlock{etha.BlockOf(dst)}, cfg)
	require.NoError(err)
	assert.False(q.Completed(ok))

	n, err := dev.ServeOffload(ipsec.RingBase(2), ipsec.ReqSize, ipsec.ResultSize, xorEngine)
	require.NoError(err)
	assert.Equal(2, n)

	result, err := q.Wait(context.Background(), ok)
	require.NoError(err)
	assert.False(result.IsErr())
	assert.True(q.Completed(ok))
	assert.Same(result, q.Response(ok))
	for i := range plain {
		assert.Equal(plain[i]^0xff, dst[i])
	}

	result, err = q.Wait(context.Background(), bad)
	require.NoError(err)
	assert.True(result.IsErr())
	assert.True(result.InvalidSession())
	assert.False(result.AuthFail())

	_, err = q.Submit(nil, []etha.MemBlock{etha.BlockOf(dst)}, cfg)
	assert.ErrorIs(err, etha.ErrEmptyChain)
}
