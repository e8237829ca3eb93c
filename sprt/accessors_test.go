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

// TestSetLocalWindowSizeGrowsPastConstructionDefault pins the fix for a
// runtime retune toward a larger negotiated window indexing past the ring
// buffer's original capacity: newRxChannel now allocates at each channel's
// structural maximum (Table B.2), so widening windowSize at runtime never
// needs a reallocation.
func TestSetLocalWindowSizeGrowsPastConstructionDefault(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)
	require.Equal(t, DefaultTC1WindowSize, int(e.rx.channels[ChannelReliableSequenced].windowSize))

	require.NoError(t, e.SetLocalWindowSize(ChannelReliableSequenced, MaxTC1WindowSize))

	rc := &e.rx.channels[ChannelReliableSequenced]
	base := rc.baseSequenceNo
	for i := 0; i < MaxTC1WindowSize-1; i++ {
		seqNo := (base + uint16(i) + 1) & seqNoMask
		require.NoError(t, e.RxPacket(sprtPacket(0, 100, ChannelReliableSequenced, seqNo, 0, nil, []byte("x"))))
	}
	require.Empty(t, host.delivered, "all of these are out of order until seqNo base arrives")

	require.NoError(t, e.RxPacket(sprtPacket(0, 100, ChannelReliableSequenced, base, 0, nil, []byte("first"))))
	require.Len(t, host.delivered, MaxTC1WindowSize, "the whole buffered run flushes out once the gap fills, indexing the full grown ring")
}

// TestSetLocalPayloadBytesGrowsPastConstructionDefault pins the same class
// of fix for payload size: widening maxPayloadBytes at runtime must not
// outrun each ring slot's originally-allocated byte capacity.
func TestSetLocalPayloadBytesGrowsPastConstructionDefault(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)

	require.NoError(t, e.SetLocalPayloadBytes(ChannelReliableSequenced, MaxTC1PayloadBytes))

	big := make([]byte, MaxTC1PayloadBytes)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, e.RxPacket(sprtPacket(0, 100, ChannelReliableSequenced, 0, 0, nil, big)))
	require.Len(t, host.delivered, 1)
	require.Equal(t, big, host.delivered[0].payload)
}

// TestSetFarWindowSizeAndPayloadBytesGrowPastConstructionDefault pins the
// tx-side half of the same fix: retransmitUnacknowledged slices
// tc.buff[first][:tc.buffLen[first]] on every TR03 expiry, and that must
// stay in bounds after the far end's advertised window/payload grow.
func TestSetFarWindowSizeAndPayloadBytesGrowPastConstructionDefault(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)
	require.NoError(t, e.SetFarWindowSize(ChannelReliableSequenced, MaxTC1WindowSize))
	require.NoError(t, e.SetFarPayloadBytes(ChannelReliableSequenced, MaxTC1PayloadBytes))

	tc := &e.tx.channels[ChannelReliableSequenced]
	tc.tr03Timeout = 1000

	big := make([]byte, MaxTC1PayloadBytes)
	require.NoError(t, e.Tx(ChannelReliableSequenced, big))
	require.Len(t, host.sent, 1)

	host.now += 1000
	e.TimerExpired(host.now)
	require.Len(t, host.sent, 2, "retransmit must not panic slicing the grown payload out of its ring slot")
	require.Equal(t, host.sent[0], host.sent[1])
}
