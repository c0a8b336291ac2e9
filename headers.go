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
	"encoding/binary"
	"net"
)

var (
	fieldAddrHi     = Field{Shift: 0, Width: 16}
	fieldVLANFlags  = Field{Shift: 16, Width: 4}
	fieldVLANID     = Field{Shift: 20, Width: 12}
	fieldEtherType  = Field{Shift: 16, Width: 16}
	fieldL2HdrLen   = Field{Shift: 0, Width: 8}
	fieldIsVLAN     = Field{Shift: 8, Width: 1}
	fieldPayloadLen = Field{Shift: 0, Width: 24}
	fieldProtocol   = Field{Shift: 0, Width: 8}
	fieldIPVersion  = Field{Shift: 8, Width: 8}
	fieldL3HdrLen   = Field{Shift: 16, Width: 16}
	fieldSrcPort    = Field{Shift: 0, Width: 16}
	fieldDstPort    = Field{Shift: 16, Width: 16}
	fieldL4HdrLen   = Field{Shift: 0, Width: 16}
)

// Addresses are stored in wire order: the first byte on the wire is the lowest byte of
// the first word.

func getMAC(lo uint32, hi uint32) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	binary.LittleEndian.PutUint32(mac, lo)
	binary.LittleEndian.PutUint16(mac[4:], uint16(fieldAddrHi.Get(hi)))
	return mac
}

func setMAC(lo *uint32, hi *uint32, mac net.HardwareAddr) {
	if len(mac) != 6 {
		*lo = 0
		fieldAddrHi.Set(hi, 0)
		return
	}
	*lo = binary.LittleEndian.Uint32(mac)
	fieldAddrHi.Set(hi, uint32(binary.LittleEndian.Uint16(mac[4:])))
}

// L2Desc is the Ethernet header of a received frame, as parsed by the device.
//
//	word 0: src[31:0]
//	word 1: src[47:32] vlan_flags[19:16] vid[31:20]
//	word 2: dst[31:0]
//	word 3: dst[47:32] ethertype[31:16]
//	word 4: header_len[7:0] is_vlan[8]
//	word 5: payload_len[23:0]
type L2Desc [6]uint32

func (d *L2Desc) Src() net.HardwareAddr {
	return getMAC(d[0], d[1])
}

func (d *L2Desc) SetSrc(mac net.HardwareAddr) {
	setMAC(&d[0], &d[1], mac)
}

func (d *L2Desc) Dst() net.HardwareAddr {
	return getMAC(d[2], d[3])
}

func (d *L2Desc) SetDst(mac net.HardwareAddr) {
	setMAC(&d[2], &d[3], mac)
}

func (d *L2Desc) EtherType() uint16 {
	return uint16(fieldEtherType.Get(d[3]))
}

func (d *L2Desc) SetEtherType(etherType uint16) {
	fieldEtherType.Set(&d[3], uint32(etherType))
}

// VLAN returns the 802.1Q tag of the frame. ok is false for untagged frames.
func (d *L2Desc) VLAN() (flags uint8, id uint16, ok bool) {
	if !fieldIsVLAN.Bool(d[4]) {
		return 0, 0, false
	}
	return uint8(fieldVLANFlags.Get(d[1])), uint16(fieldVLANID.Get(d[1])), true
}

func (d *L2Desc) SetVLAN(flags uint8, id uint16) {
	fieldIsVLAN.SetBool(&d[4], true)
	fieldVLANFlags.Set(&d[1], uint32(flags))
	fieldVLANID.Set(&d[1], uint32(id))
}

func (d *L2Desc) HeaderLen() uint32 {
	return fieldL2HdrLen.Get(d[4])
}

func (d *L2Desc) SetHeaderLen(n uint32) {
	fieldL2HdrLen.Set(&d[4], n)
}

func (d *L2Desc) PayloadLen() uint32 {
	return fieldPayloadLen.Get(d[5])
}

func (d *L2Desc) SetPayloadLen(n uint32) {
	fieldPayloadLen.Set(&d[5], n)
}

// L3Desc is the IP header of a received frame, as parsed by the device.
//
//	words 0-3: src
//	words 4-7: dst
//	word 8:    protocol[7:0] version[15:8] header_len[31:16]
//	word 9:    payload_len[23:0]
type L3Desc [10]uint32

func (d *L3Desc) Version() uint8 {
	return uint8(fieldIPVersion.Get(d[8]))
}

func (d *L3Desc) Protocol() uint8 {
	return uint8(fieldProtocol.Get(d[8]))
}

func (d *L3Desc) SetProtocol(protocol uint8) {
	fieldProtocol.Set(&d[8], uint32(protocol))
}

func (d *L3Desc) ip(words []uint32) net.IP {
	n := 0
	switch d.Version() {
	case 4:
		n = net.IPv4len
	case 6:
		n = net.IPv6len
	default:
		return nil
	}
	ip := make(net.IP, net.IPv6len)
	for i, w := range words {
		binary.LittleEndian.PutUint32(ip[4*i:], w)
	}
	return ip[:n]
}

// Src returns the source address, or nil if the frame carries neither IPv4 nor IPv6.
func (d *L3Desc) Src() net.IP {
	return d.ip(d[0:4])
}

// Dst returns the destination address, or nil if the frame carries neither IPv4 nor IPv6.
func (d *L3Desc) Dst() net.IP {
	return d.ip(d[4:8])
}

// SetAddrs stores src and dst and sets the version to match src.
func (d *L3Desc) SetAddrs(src net.IP, dst net.IP) {
	version := uint32(6)
	if src4 := src.To4(); src4 != nil {
		version, src, dst = 4, src4, dst.To4()
	} else {
		src, dst = src.To16(), dst.To16()
	}
	fieldIPVersion.Set(&d[8], version)
	for i := 0; i < 4; i++ {
		d[i], d[4+i] = 0, 0
		if 4*i < len(src) {
			d[i] = binary.LittleEndian.Uint32(src[4*i:])
		}
		if 4*i < len(dst) {
			d[4+i] = binary.LittleEndian.Uint32(dst[4*i:])
		}
	}
}

func (d *L3Desc) HeaderLen() uint32 {
	return fieldL3HdrLen.Get(d[8])
}

func (d *L3Desc) SetHeaderLen(n uint32) {
	fieldL3HdrLen.Set(&d[8], n)
}

func (d *L3Desc) PayloadLen() uint32 {
	return fieldPayloadLen.Get(d[9])
}

func (d *L3Desc) SetPayloadLen(n uint32) {
	fieldPayloadLen.Set(&d[9], n)
}

// L4Desc is the TCP or UDP header of a received frame, as parsed by the device.
//
//	word 0: src_port[15:0] dst_port[31:16]
//	word 1: header_len[15:0]
//	word 2: payload_len[23:0]
type L4Desc [3]uint32

func (d *L4Desc) SrcPort() uint16 {
	return uint16(fieldSrcPort.Get(d[0]))
}

func (d *L4Desc) DstPort() uint16 {
	return uint16(fieldDstPort.Get(d[0]))
}

func (d *L4Desc) SetPorts(src uint16, dst uint16) {
	fieldSrcPort.Set(&d[0], uint32(src))
	fieldDstPort.Set(&d[0], uint32(dst))
}

func (d *L4Desc) HeaderLen() uint32 {
	return fieldL4HdrLen.Get(d[1])
}

func (d *L4Desc) SetHeaderLen(n uint32) {
	fieldL4HdrLen.Set(&d[1], n)
}

func (d *L4Desc) PayloadLen() uint32 {
	return fieldPayloadLen.Get(d[2])
}

func (d *L4Desc) SetPayloadLen(n uint32) {
	fieldPayloadLen.Set(&d[2], n)
}
