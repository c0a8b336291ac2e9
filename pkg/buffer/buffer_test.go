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
	"crypto/rand"
	"os"
	"testing"

	"go4.org/must"
)

func TestRegion(t *testing.T) {
	if !IsAvailable() {
		t.Skip(ErrNotAvailable)
	}
	assert, require := makeAR(t)

	r, err := NewRegion(100, 64)
	require.NoError(err)
	defer must.Close(r)

	assert.Equal(100, r.Len())
	assert.Zero(r.Addr() % 64)
	assert.Equal(make([]byte, 100), r.Bytes())
	assert.Equal(r.Addr(), Addr(r.Bytes()))

	copy(r.Bytes()[10:], "hello")
	assert.Equal([]byte("hello"), Lookup(r.Addr()+10, 5))
	assert.Equal([]byte("hello"), r.Slice(r.Addr()+10, 5))
	assert.Len(Lookup(r.Addr(), 100), 100)
	assert.Nil(Lookup(r.Addr()+90, 11))
	assert.Nil(r.Slice(r.Addr()-1, 1))

	Lookup(r.Addr()+20, 1)[0] = 0xAA
	assert.Equal(byte(0xAA), r.Bytes()[20])

	r.Reset()
	assert.Equal(make([]byte, 100), r.Bytes())

	addr := r.Addr()
	require.NoError(r.Close())
	assert.Nil(Lookup(addr, 1))
	assert.Zero(r.Addr())
	assert.NoError(r.Close())
}

func TestRegionAlignment(t *testing.T) {
	if !IsAvailable() {
		t.Skip(ErrNotAvailable)
	}
	assert, _ := makeAR(t)

	_, err := NewRegion(64, 3)
	assert.ErrorIs(err, ErrBadAlignment)

	_, err = NewRegion(64, 0)
	assert.ErrorIs(err, ErrBadAlignment)

	_, err = NewRegion(64, int64(os.Getpagesize())*2)
	assert.ErrorIs(err, ErrBadAlignment)

	_, err = NewRegion(0, 64)
	assert.Error(err)
}

func TestLookupAcrossRegions(t *testing.T) {
	if !IsAvailable() {
		t.Skip(ErrNotAvailable)
	}
	assert, require := makeAR(t)

	var regions []*Region
	for i := 0; i < 8; i++ {
		r, err := NewRegion(32, 32)
		require.NoError(err)
		defer must.Close(r)
		r.Bytes()[0] = byte(i)
		regions = append(regions, r)
	}

	for i, r := range regions {
		b := Lookup(r.Addr(), 32)
		require.Len(b, 32)
		assert.Equal(byte(i), b[0])
	}
}

func TestSlab(t *testing.T) {
	if !IsAvailable() {
		t.Skip(ErrNotAvailable)
	}
	assert, require := makeAR(t)

	s, err := NewSlab(4, 128)
	require.NoError(err)
	defer must.Close(s)

	assert.Equal(4, s.Count())
	assert.Equal(128, s.Size())
	for i := 0; i < s.Count(); i++ {
		b := s.Buffer(i)
		assert.Len(b, 128)
		assert.Equal(128, cap(b))
		assert.Equal(s.Addr(i), Addr(b))
		b[0] = byte(i + 1)
	}
	assert.Nil(s.Buffer(4))
	assert.Nil(s.Buffer(-1))
	assert.Zero(s.Addr(4))

	assert.Equal([]byte{3}, s.Slice(s.Addr(2), 1))
	assert.Nil(s.Slice(s.Addr(3)+100, 100))

	_, err = NewSlab(0, 128)
	assert.Error(err)
}

func TestPool(t *testing.T) {
	if !IsAvailable() {
		t.Skip(ErrNotAvailable)
	}
	assert, require := makeAR(t)

	p := NewPool(256, 16, 1)
	defer func() { assert.NoError(p.Drain()) }()
	assert.EqualValues(256, p.Size())

	a, err := p.Get()
	require.NoError(err)
	b, err := p.Get()
	require.NoError(err)
	assert.NotEqual(a.Addr(), b.Addr())

	a.Bytes()[0] = 1
	addr := a.Addr()
	require.NoError(p.Put(a))
	require.NoError(p.Put(b))
	assert.Zero(b.Addr(), "the pool only keeps one idle region")

	c, err := p.Get()
	require.NoError(err)
	assert.Equal(addr, c.Addr())
	assert.Zero(c.Bytes()[0])
	assert.NoError(p.Put(c))
	assert.NoError(p.Put(nil))
}

func BenchmarkRegionAllocations(b *testing.B) {
	if !IsAvailable() {
		b.Skip(ErrNotAvailable)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := NewRegion(512, 64)
		if err != nil {
			b.Fatalf("failed to create region: %v", err)
		}
		err = r.Close()
		if err != nil {
			b.Fatalf("failed to close region: %v", err)
		}
	}
}

func BenchmarkRegionAllocationsPool(b *testing.B) {
	if !IsAvailable() {
		b.Skip(ErrNotAvailable)
	}

	randomBytes := make([]byte, 512)
	_, err := rand.Read(randomBytes)
	if err != nil {
		b.Fatalf("failed to read random bytes: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r, err := GetRegion()
			if err != nil {
				b.Fatalf("failed to get region: %v", err)
			}
			if n := copy(r.Bytes(), randomBytes); n != len(randomBytes) {
				b.Fatalf("number of bytes written is not correct: %d", n)
			}
			err = PutRegion(r)
			if err != nil {
				b.Fatalf("failed to put region: %v", err)
			}
		}
	})
}
