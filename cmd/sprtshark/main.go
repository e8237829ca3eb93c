/*
Copyright (c) Facebook, Inc. and its affiliates.

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

// sprtshark is a poor man's tshark for modem-over-IP captures: it decodes
// SPRT headers and, on the reliable/expedited channels, the V.150.1 message
// they carry, dumping each to stdout.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"

	"github.com/facebookincubator/v150gw/sprt"
	"github.com/facebookincubator/v150gw/sse"
	"github.com/facebookincubator/v150gw/v150"
)

// demux byte values the v150gwd harness stamps ahead of each UDP payload,
// tagging which engine it belongs to. See cmd/v150gwd/cmd/run.go.
const (
	demuxSPRT byte = 0x00
	demuxSSE  byte = 0x01
)

func decodeSPRT(payload []byte) {
	h, err := sprt.DecodeHeader(payload)
	if err != nil {
		fmt.Printf("  sprt: %v\n", err)
		return
	}
	fmt.Printf("  sprt subsession=%d payload_type=%d channel=%s seq=%d base_seq=%d acks=%d\n",
		h.SubsessionID, h.PayloadType, h.Channel, h.SeqNo, h.BaseSeqNo, len(h.Acks))
	body := payload[h.HeaderLen:]
	if len(body) == 0 {
		return
	}
	if h.Channel == sprt.ChannelReliableSequenced || h.Channel == sprt.ChannelExpeditedReliableSequenced {
		id := v150.MsgID(body[0] &^ 0x80)
		fmt.Printf("  v150 message=%s (%d bytes)\n", id, len(body))
	}
	spew.Dump(body)
}

func decodeSSE(payload []byte) {
	if len(payload) < 6 {
		fmt.Println("  sse: frame too short")
		return
	}
	seqNo := binary.BigEndian.Uint16(payload[0:2])
	timestamp := binary.BigEndian.Uint32(payload[2:6])
	pkt, err := sse.DecodePacket(payload[6:])
	if err != nil {
		fmt.Printf("  sse: %v\n", err)
		return
	}
	fmt.Printf("  sse seq=%d ts=%d event=%s ric=%d ricinfo=%d\n", seqNo, timestamp, pkt.Event, pkt.RIC, pkt.RICInfo)
}

// packetHandle abstracts the handles pcapgo.Reader and pcapgo.NGReader share.
type packetHandle interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

func run(input string, udpPort int) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	var handle packetHandle
	handle, err = pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		if _, serr := f.Seek(0, 0); serr != nil {
			return fmt.Errorf("seeking in %s: %w", input, serr)
		}
		handle, err = pcapgo.NewReader(f)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", input, err)
		}
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range packetSource.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, _ := udpLayer.(*layers.UDP)
		if int(udp.DstPort) != udpPort && int(udp.SrcPort) != udpPort {
			continue
		}

		var srcIP, dstIP net.IP
		if ip6 := packet.Layer(layers.LayerTypeIPv6); ip6 != nil {
			ip, _ := ip6.(*layers.IPv6)
			srcIP, dstIP = ip.SrcIP, ip.DstIP
		} else if ip4 := packet.Layer(layers.LayerTypeIPv4); ip4 != nil {
			ip, _ := ip4.(*layers.IPv4)
			srcIP, dstIP = ip.SrcIP, ip.DstIP
		}
		fmt.Printf("%s -> %s\n",
			net.JoinHostPort(srcIP.String(), strconv.Itoa(int(udp.SrcPort))),
			net.JoinHostPort(dstIP.String(), strconv.Itoa(int(udp.DstPort))))

		payload := udp.Payload
		if len(payload) == 0 {
			continue
		}
		switch payload[0] {
		case demuxSPRT:
			decodeSPRT(payload[1:])
		case demuxSSE:
			decodeSSE(payload[1:])
		default:
			fmt.Printf("  unknown demux byte 0x%02x\n", payload[0])
		}

		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return fmt.Errorf("failed to decode: %w", errLayer.Error())
		}
	}
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "sprtshark: modem-over-IP poor man's tshark. Dumps SPRT/SSE/V.150.1 traffic from a capture file.\nUsage:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "%s -port PORT [file]\n", os.Args[0])
	}
	port := flag.Int("port", 0, "UDP port the gateway traffic was captured on")
	flag.Parse()
	if *port == 0 || len(flag.Args()) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0), *port); err != nil {
		log.Fatal(err)
	}
}
