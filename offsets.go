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
	"github.com/loopholelabs/etha/pkg/irq"
)

// Ring control block registers, in words relative to the base of the block.
const (
	RingRegsReqBaseL    uint32 = 0x0
	RingRegsReqBaseH    uint32 = 0x1
	RingRegsRespBaseL   uint32 = 0x2
	RingRegsRespBaseH   uint32 = 0x3
	RingRegsSize        uint32 = 0x4
	RingRegsHWaterMark  uint32 = 0x5
	RingRegsLWaterMark  uint32 = 0x6
	RingRegsConsumer    uint32 = 0x7
	RingRegsProducer    uint32 = 0x8
	RingRegsStatus      uint32 = 0x9
	RingRegsIntMask     uint32 = 0xa
	RingRegsCtrl        uint32 = 0xc
	RingRegsMemSize     uint32 = 0xd
	RingRegsBlockLength uint32 = 0x10
)

const (
	RingCtrlEnable uint32 = 1 << 0
)

// Ethernet engine queue blocks. Queue i holds its receive ring first and its transmit
// ring right after it.
const (
	QueueRegsOffset uint32 = 0x800
	QueueRegsLength uint32 = 2 * RingRegsBlockLength
	RxRingOffset    uint32 = 0
	TxRingOffset    uint32 = RingRegsBlockLength

	MaxQueues = 16
)

// RxRingBase returns the register base of the receive ring of queue id.
func RxRingBase(id int) uint32 {
	return QueueRegsOffset + uint32(id)*QueueRegsLength + RxRingOffset
}

// TxRingBase returns the register base of the transmit ring of queue id.
func TxRingBase(id int) uint32 {
	return QueueRegsOffset + uint32(id)*QueueRegsLength + TxRingOffset
}

// RxIRQ returns the interrupt raised by the receive ring of queue id.
func RxIRQ(id int) irq.ID {
	return irq.ID(id)
}

// TxIRQ returns the interrupt raised by the transmit ring of queue id.
func TxIRQ(id int) irq.ID {
	return irq.ID(MaxQueues + id)
}
