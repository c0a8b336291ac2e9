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

package hwmodel

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/loopholelabs/etha"
)

// parser fills the header descriptors of a received frame.
type parser struct {
	dlp     *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	payload gopacket.Payload
}

func newParser() *parser {
	p := &parser{}
	p.dlp = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet,
		&p.eth, &p.dot1q, &p.ip4, &p.ip6, &p.tcp, &p.udp, &p.payload)
	p.dlp.IgnoreUnsupported = true
	return p
}

// parse decodes as many headers of frame as it can and records them in desc.
// Undecodable frames leave the header descriptors zero.
func (p *parser) parse(frame []byte, desc *etha.RxResultDesc) {
	_ = p.dlp.DecodeLayers(frame, &p.decoded)

	l2Len := uint32(0)
	for _, layerType := range p.decoded {
		switch layerType {
		case layers.LayerTypeEthernet:
			l2Len = uint32(len(p.eth.Contents))
			desc.L2.SetSrc(p.eth.SrcMAC)
			desc.L2.SetDst(p.eth.DstMAC)
			desc.L2.SetEtherType(uint16(p.eth.EthernetType))
		case layers.LayerTypeDot1Q:
			l2Len += uint32(len(p.dot1q.Contents))
			flags := p.dot1q.Priority << 1
			if p.dot1q.DropEligible {
				flags |= 1
			}
			desc.L2.SetVLAN(flags, p.dot1q.VLANIdentifier)
			desc.L2.SetEtherType(uint16(p.dot1q.Type))
		case layers.LayerTypeIPv4:
			desc.L3.SetAddrs(p.ip4.SrcIP, p.ip4.DstIP)
			desc.L3.SetProtocol(uint8(p.ip4.Protocol))
			desc.L3.SetHeaderLen(uint32(len(p.ip4.Contents)))
			desc.L3.SetPayloadLen(uint32(len(p.ip4.Payload)))
		case layers.LayerTypeIPv6:
			desc.L3.SetAddrs(p.ip6.SrcIP, p.ip6.DstIP)
			desc.L3.SetProtocol(uint8(p.ip6.NextHeader))
			desc.L3.SetHeaderLen(uint32(len(p.ip6.Contents)))
			desc.L3.SetPayloadLen(uint32(len(p.ip6.Payload)))
		case layers.LayerTypeTCP:
			desc.L4.SetPorts(uint16(p.tcp.SrcPort), uint16(p.tcp.DstPort))
			desc.L4.SetHeaderLen(uint32(len(p.tcp.Contents)))
			desc.L4.SetPayloadLen(uint32(len(p.tcp.Payload)))
		case layers.LayerTypeUDP:
			desc.L4.SetPorts(uint16(p.udp.SrcPort), uint16(p.udp.DstPort))
			desc.L4.SetHeaderLen(uint32(len(p.udp.Contents)))
			desc.L4.SetPayloadLen(uint32(len(p.udp.Payload)))
		}
	}

	if l2Len != 0 {
		desc.L2.SetHeaderLen(l2Len)
		desc.L2.SetPayloadLen(uint32(len(frame)) - l2Len)
	}
}
