//go:build !linux

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

// IsAvailable reports whether device-visible regions can be allocated on this platform.
func IsAvailable() bool {
	return false
}

type Region struct{}

func NewRegion(int64, int64) (*Region, error) {
	return nil, ErrNotAvailable
}

func (r *Region) Bytes() []byte {
	return nil
}

func (r *Region) Len() int {
	return 0
}

func (r *Region) Addr() uint64 {
	return 0
}

func (r *Region) Slice(uint64, uint32) []byte {
	return nil
}

func (r *Region) Reset() {}

func (r *Region) Close() error {
	return nil
}
