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

package buffer

import (
	"go.uber.org/multierr"
)

const (
	// PoolRegionSize is the size of the Regions of GetRegion: room for a scatter list
	// of 256 entries of 16 bytes.
	PoolRegionSize = 4096
	defaultDepth   = 64
)

var (
	pool = NewPool(PoolRegionSize, slabAlign, defaultDepth)
)

// Pool recycles Regions of one size.
//
// Regions are unmapped explicitly, so a Pool keeps at most depth idle Regions and
// closes whatever is returned beyond that.
type Pool struct {
	free  chan *Region
	size  int64
	align int64
}

func NewPool(size int64, align int64, depth int) *Pool {
	return &Pool{
		free:  make(chan *Region, depth),
		size:  size,
		align: align,
	}
}

// Size returns the size of the Regions handed out by the Pool.
func (p *Pool) Size() int64 {
	return p.size
}

func (p *Pool) Get() (*Region, error) {
	select {
	case r := <-p.free:
		return r, nil
	default:
		return NewRegion(p.size, p.align)
	}
}

func (p *Pool) Put(r *Region) error {
	if r == nil {
		return nil
	}
	r.Reset()
	select {
	case p.free <- r:
		return nil
	default:
		return r.Close()
	}
}

// Drain closes every idle Region.
func (p *Pool) Drain() (err error) {
	for {
		select {
		case r := <-p.free:
			err = multierr.Append(err, r.Close())
		default:
			return err
		}
	}
}

// GetRegion takes a zeroed Region of PoolRegionSize bytes from the shared pool.
func GetRegion() (*Region, error) {
	return pool.Get()
}

// PutRegion returns a Region obtained from GetRegion to the shared pool.
func PutRegion(r *Region) error {
	return pool.Put(r)
}
