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

// State is the lifecycle state of a ring.
type State uint8

const (
	StateDisabled State = iota
	StateEnabled
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateEnabled:
		return "enabled"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// check returns the error an operation that needs an enabled ring should report.
func (s State) check() error {
	switch s {
	case StateEnabled:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotEnabled
	}
}
