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

package sse

import (
	"encoding/binary"
	"errors"
)

// ErrPacketTooShort is returned by DecodePacket for anything under the
// four-byte minimum SSE packet size.
var ErrPacketTooShort = errors.New("sse: packet too short")

// MinPacketBytes is the size of an SSE packet with no extension.
const MinPacketBytes = 4

// remoteAckMask is the width of the remote_ack field packed into the
// extension: six bits, the same width as the event field it echoes.
const remoteAckMask = 0x3F

// Packet is a decoded SSE message: the media-state event plus its
// reason-for-change code, and, when the explicit-acknowledgement scheme is
// in use, the sender's view of the far end's state.
type Packet struct {
	Event         MediaState
	ForceResponse bool
	RIC           int
	RICInfo       uint16
	HasRemoteAck  bool
	RemoteAck     MediaState
}

// EncodePacket writes pkt's wire form into buf, which must be at least 4
// bytes, or 7 if HasRemoteAck is set, and returns the number of bytes
// written.
func EncodePacket(buf []byte, pkt Packet) int {
	var x byte
	if pkt.HasRemoteAck {
		x = 1
	}
	var f byte
	if pkt.ForceResponse {
		f = 1
	}
	buf[0] = byte(pkt.Event)<<2 | f<<1 | x
	buf[1] = byte(pkt.RIC)
	binary.BigEndian.PutUint16(buf[2:4], pkt.RICInfo)
	if !pkt.HasRemoteAck {
		return 4
	}
	// Extension: a length field (11 bits used, packed into 16) followed by
	// that many bytes. A single byte carries the remote_ack value.
	binary.BigEndian.PutUint16(buf[4:6], 1)
	buf[6] = byte(pkt.RemoteAck) & remoteAckMask
	return 7
}

// DecodePacket parses an SSE message.
func DecodePacket(raw []byte) (Packet, error) {
	if len(raw) < MinPacketBytes {
		return Packet{}, ErrPacketTooShort
	}
	pkt := Packet{
		Event:         MediaState(raw[0] >> 2 & 0x3F),
		ForceResponse: raw[0]&0x02 != 0,
		RIC:           int(raw[1]),
		RICInfo:       binary.BigEndian.Uint16(raw[2:4]),
	}
	if raw[0]&0x01 == 0 {
		return pkt, nil
	}
	if len(raw) < 6 {
		return pkt, nil
	}
	extLen := binary.BigEndian.Uint16(raw[4:6]) & 0x7FF
	if extLen >= 1 && len(raw) >= 7 {
		pkt.HasRemoteAck = true
		pkt.RemoteAck = MediaState(raw[6] & remoteAckMask)
	}
	return pkt, nil
}
