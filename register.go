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
	"go.uber.org/zap"
)

// Bus is the register access capability of a device. Addresses are in words.
type Bus interface {
	Write(addr uint32, value uint32)
	Read(addr uint32) uint32
}

// BusFuncs adapts a pair of plain functions to Bus.
type BusFuncs struct {
	WriteFunc func(addr uint32, value uint32)
	ReadFunc  func(addr uint32) uint32
}

func (b BusFuncs) Write(addr uint32, value uint32) {
	b.WriteFunc(addr, value)
}

func (b BusFuncs) Read(addr uint32) uint32 {
	return b.ReadFunc(addr)
}

// TraceBus logs every register access of the wrapped Bus at debug level.
type TraceBus struct {
	bus    Bus
	logger *zap.Logger
}

func NewTraceBus(bus Bus, name string) *TraceBus {
	return &TraceBus{
		bus:    bus,
		logger: logger.Named("bus").With(zap.String("device", name)),
	}
}

func (b *TraceBus) Write(addr uint32, value uint32) {
	b.logger.Debug("write",
		zap.Uint32("addr", addr),
		zap.Uint32("value", value),
	)
	b.bus.Write(addr, value)
}

func (b *TraceBus) Read(addr uint32) uint32 {
	value := b.bus.Read(addr)
	b.logger.Debug("read",
		zap.Uint32("addr", addr),
		zap.Uint32("value", value),
	)
	return value
}
