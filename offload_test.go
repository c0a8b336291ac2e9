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
	"encoding/binary"
	"errors"
	"testing"

	"github.com/loopholelabs/etha"
	"github.com/loopholelabs/etha/internal/hwmodel"
	"go4.org/must"
)

type addReq struct {
	A, B uint32
}

type addResp struct {
	Sum uint32
}

func serveAdd(req []byte, resp []byte) error {
	a, b := binary.LittleEndian.Uint32(req), binary.LittleEndian.Uint32(req[4:])
	binary.LittleEndian.PutUint32(resp, a+b)
	return nil
}

func TestOffloadQueue(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewOffloadQueue[addReq, addResp](dev, "add", 0x100, etha.QueueConfig{Capacity: 4})
	require.NoError(err)
	defer must.Close(q)

	_, err = q.Submit(&addReq{1, 2})
	assert.ErrorIs(err, etha.ErrNotEnabled)
	require.NoError(q.Enable())
	assert.ErrorIs(q.Enable(), etha.ErrAlreadyEnabled)

	var tickets []etha.Pointer
	for i := uint32(0); i < 3; i++ {
		ticket, err := q.Submit(&addReq{A: i, B: 10})
		require.NoError(err)
		assert.Equal(etha.MakePointer(false, i), ticket)
		assert.False(q.Completed(ticket))
		tickets = append(tickets, ticket)
	}

	n, err := dev.ServeOffload(0x100, 8, 4, serveAdd)
	require.NoError(err)
	assert.Equal(3, n)
	for i, ticket := range tickets {
		assert.True(q.Completed(ticket))
		assert.EqualValues(10+i, q.Response(ticket).Sum)
	}

	for i := uint32(0); i < 10; i++ {
		ticket, err := q.Submit(&addReq{A: i, B: i})
		require.NoError(err)
		_, err = dev.ServeOffload(0x100, 8, 4, serveAdd)
		require.NoError(err)
		resp, err := q.Wait(context.Background(), ticket)
		require.NoError(err)
		assert.EqualValues(2*i, resp.Sum)
	}
}

func TestOffloadQueueBackpressure(t *testing.T) {
	skipUnavailable(t)
	assert, require := makeAR(t)

	dev := hwmodel.New()
	q, err := etha.NewOffloadQueue[addReq, addResp](dev, "add", 0x100, etha.QueueConfig{Capacity: 2})
	require.NoError(err)
	defer must.Close(q)
	require.NoError(q.Enable())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := q.SubmitContext(ctx, &addReq{1, 1})
	require.NoError(err)
	_, err = q.SubmitContext(ctx, &addReq{2, 2})
	require.NoError(err)

	cancelled, cancelNow := context.WithCancel(ctx)
	cancelNow()
	_, err = q.SubmitContext(cancelled, &addReq{3, 3})
	assert.ErrorIs(err, context.Canceled)
	_, err = q.Wait(cancelled, first)
	assert.ErrorIs(err, context.Canceled)

	errFail := errors.New("engine failure")
	n, err := dev.ServeOffload(0x100, 8, 4, func([]byte, []byte) error { return errFail })
	assert.ErrorIs(err, errFail)
	assert.Zero(n)
	assert.False(q.Completed(first))

	done := hwmodel.Run(ctx, func() bool {
		n, _ := dev.ServeOffload(0x100, 8, 4, serveAdd)
		return n > 0
	})
	third, err := q.SubmitContext(ctx, &addReq{3, 3})
	require.NoError(err)
	assert.Equal(etha.MakePointer(true, 0), third)
	resp, err := q.Wait(ctx, third)
	require.NoError(err)
	assert.EqualValues(6, resp.Sum)

	cancel()
	<-done
}
