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

package sprt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaderRejectsShortPacket(t *testing.T) {
	_, err := parseHeader([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrPacketTooShort)
}

func TestParseHeaderRejectsNonSPRT(t *testing.T) {
	pkt := make([]byte, 6)
	pkt[0] = 0x80 // header extension bit set
	_, err := parseHeader(pkt)
	require.ErrorIs(t, err, ErrNotSPRT)
}

func TestParseHeaderRoundTripsAcks(t *testing.T) {
	buf := make([]byte, MaxPacketBytes)
	acks := []uint16{(uint16(ChannelReliableSequenced) << 14) | 7, (uint16(ChannelExpeditedReliableSequenced) << 14) | 3}
	n := buildPacket(buf, 5, 100, ChannelUnreliableUnsequenced, 0, acks, 42, []byte("payload"))

	h, err := parseHeader(buf[:n])
	require.NoError(t, err)
	require.Equal(t, byte(5), h.subsessionID)
	require.Equal(t, byte(100), h.payloadType)
	require.Equal(t, uint16(42), h.baseSeqNo)
	require.Equal(t, 2, h.noa)
	require.Equal(t, ChannelReliableSequenced, h.acks[0].channel)
	require.Equal(t, uint16(7), h.acks[0].seqNo)
	require.Equal(t, ChannelExpeditedReliableSequenced, h.acks[1].channel)
	require.Equal(t, uint16(3), h.acks[1].seqNo)
	require.Equal(t, "payload", string(buf[h.headerLen:n]))
}

func TestDecodeHeaderMatchesParseHeader(t *testing.T) {
	buf := make([]byte, MaxPacketBytes)
	acks := []uint16{(uint16(ChannelReliableSequenced) << 14) | 7}
	n := buildPacket(buf, 5, 100, ChannelExpeditedReliableSequenced, 12, acks, 42, []byte("payload"))

	h, err := DecodeHeader(buf[:n])
	require.NoError(t, err)
	require.Equal(t, byte(5), h.SubsessionID)
	require.Equal(t, byte(100), h.PayloadType)
	require.Equal(t, ChannelExpeditedReliableSequenced, h.Channel)
	require.Equal(t, uint16(12), h.SeqNo)
	require.Equal(t, uint16(42), h.BaseSeqNo)
	require.Len(t, h.Acks, 1)
	require.Equal(t, ChannelReliableSequenced, h.Acks[0].Channel)
	require.Equal(t, uint16(7), h.Acks[0].SeqNo)
	require.Equal(t, "payload", string(buf[h.HeaderLen:n]))
}

func TestDecodeHeaderRejectsShortPacket(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrPacketTooShort)
}
