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

// Package irq delivers device interrupts to the handlers registered for them.
package irq

import (
	"io"

	"github.com/chuckpreslar/emission"
)

// ID identifies an interrupt line of a device.
type ID int

// Handler is invoked with the ID of the interrupt that was raised.
type Handler func(id ID)

// Table maps interrupt IDs to handlers.
// This is a thin wrapper of emission.Emitter keyed by ID.
type Table struct {
	emitter *emission.Emitter
}

func NewTable() *Table {
	return &Table{
		emitter: emission.NewEmitter(),
	}
}

// Register adds a handler for id.
// Returns an io.Closer that cancels the registration.
func (t *Table) Register(id ID, handler Handler) io.Closer {
	t.emitter.On(id, handler)
	return canceler{t.emitter, id, handler}
}

// Raise runs every handler of id on the calling goroutine.
func (t *Table) Raise(id ID) {
	t.emitter.EmitSync(id, id)
}

type canceler struct {
	emitter *emission.Emitter
	id      ID
	handler Handler
}

func (c canceler) Close() error {
	c.emitter.Off(c.id, c.handler)
	return nil
}
