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
	"context"
	"runtime"
)

const (
	// spinBudget is the number of failed polls before Poll starts yielding.
	spinBudget = 64
)

// Poll calls ready until it returns true.
//
// The first polls spin. After that every failed poll yields the processor and checks
// ctx, returning ctx.Err() once ctx is done. ready is always called at least once.
func Poll(ctx context.Context, ready func() bool) error {
	for spins := 0; ; spins++ {
		if ready() {
			return nil
		}
		if spins < spinBudget {
			continue
		}
		runtime.Gosched()
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// push retries Ring.Push until it succeeds or ctx is done.
func push(ctx context.Context, r *Ring, n uint32, fill func(i uint32, slot []byte, isHead bool, isTail bool)) (ticket Pointer, err error) {
	err = Poll(ctx, func() bool {
		var ok bool
		ticket, ok = r.Push(n, fill)
		return ok
	})
	return
}
