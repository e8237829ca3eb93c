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

// testHost is a minimal host collaborator: a manually-advanced clock, a
// packet sink and delivery/status recorders, enough to drive an Engine
// without a real socket or timer.
type testHost struct {
	now      Timestamp
	deadline Timestamp
	sent     [][]byte
	delivered []deliveredMsg
	statuses []Status
}

type deliveredMsg struct {
	channel Channel
	seqNo   uint16
	payload []byte
}

func newTestHost() *testHost {
	return &testHost{now: 1}
}

func (h *testHost) tx(pkt []byte) error {
	cp := append([]byte(nil), pkt...)
	h.sent = append(h.sent, cp)
	return nil
}

func (h *testHost) rxDeliver(channel Channel, seqNo uint16, payload []byte) error {
	cp := append([]byte(nil), payload...)
	h.delivered = append(h.delivered, deliveredMsg{channel, seqNo, cp})
	return nil
}

func (h *testHost) timer(deadline Timestamp) Timestamp {
	if deadline != timestampForever {
		h.deadline = deadline
	}
	return h.now
}

func (h *testHost) status(s Status) {
	h.statuses = append(h.statuses, s)
}

func newTestEngine(t *testing.T, host *testHost, subsessionID byte) *Engine {
	e, err := New(Config{
		SubsessionID:   subsessionID,
		RxPayloadType:  100,
		TxPayloadType:  100,
		TxFunc:         host.tx,
		RxDeliveryFunc: host.rxDeliver,
		TimerFunc:      host.timer,
		StatusFunc:     host.status,
	})
	require.NoError(t, err)
	return e
}

func TestTxReliableRoundTrip(t *testing.T) {
	alice := newTestHost()
	bob := newTestHost()
	a := newTestEngine(t, alice, 0)
	b := newTestEngine(t, bob, 0)

	require.NoError(t, a.Tx(ChannelReliableSequenced, []byte("hello")))
	require.Len(t, alice.sent, 1)

	require.NoError(t, b.RxPacket(alice.sent[0]))
	require.Len(t, bob.delivered, 1)
	require.Equal(t, "hello", string(bob.delivered[0].payload))
	require.Equal(t, uint16(0), bob.delivered[0].seqNo)
}

func TestRxOutOfOrderBuffersThenDeliversContiguously(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)

	// Sequence numbers 1 then 0 arrive; nothing should be delivered until
	// the missing packet 0 shows up, at which point both flush out in order.
	require.NoError(t, e.RxPacket(sprtPacket(0, 100, ChannelReliableSequenced, 1, 0, nil, []byte("second"))))
	require.Empty(t, host.delivered)

	require.NoError(t, e.RxPacket(sprtPacket(0, 100, ChannelReliableSequenced, 0, 0, nil, []byte("first"))))
	require.Len(t, host.delivered, 2)
	require.Equal(t, "first", string(host.delivered[0].payload))
	require.Equal(t, "second", string(host.delivered[1].payload))
}

func TestTxWindowFull(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)
	tc := &e.tx.channels[ChannelExpeditedReliableSequenced]
	tc.windowSize = 2

	require.NoError(t, e.Tx(ChannelExpeditedReliableSequenced, []byte("a")))
	require.ErrorIs(t, e.Tx(ChannelExpeditedReliableSequenced, []byte("b")), ErrWindowFull)
}

func TestRetransmitOnTimerExpiry(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)
	tc := &e.tx.channels[ChannelReliableSequenced]
	tc.tr03Timeout = 1000

	require.NoError(t, e.Tx(ChannelReliableSequenced, []byte("payload")))
	require.Len(t, host.sent, 1)

	host.now += 1000
	e.TimerExpired(host.now)
	require.Len(t, host.sent, 2)
	require.Equal(t, host.sent[0][2:4], host.sent[1][2:4]) // channel/seq word matches on retransmit
}

func TestExcessRetriesReportsStatus(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)
	require.NoError(t, e.SetLocalMaxTries(ChannelReliableSequenced, MinMaxTries))
	tc := &e.tx.channels[ChannelReliableSequenced]
	tc.tr03Timeout = 10
	tc.maxTries = 1

	require.NoError(t, e.Tx(ChannelReliableSequenced, []byte("x")))
	host.now += 10
	e.TimerExpired(host.now)

	require.Contains(t, host.statuses, StatusExcessRetries)
}

func TestSubsessionChangeReportsStatus(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)

	require.NoError(t, e.RxPacket(sprtPacket(5, 100, ChannelUnreliableUnsequenced, 0, 0, nil, nil)))
	require.NoError(t, e.RxPacket(sprtPacket(6, 100, ChannelUnreliableUnsequenced, 0, 0, nil, nil)))
	require.Contains(t, host.statuses, StatusSubsessionChanged)
}

func TestUnreliableSequencedDedup(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)

	pkt := sprtPacket(0, 100, ChannelUnreliableSequenced, 7, 0, nil, []byte("data"))
	require.NoError(t, e.RxPacket(pkt))
	require.NoError(t, e.RxPacket(pkt))
	require.Len(t, host.delivered, 1)
}

func TestLocalBusyBuffersInsteadOfDelivering(t *testing.T) {
	host := newTestHost()
	e := newTestEngine(t, host, 0)

	prev, err := e.SetLocalBusy(ChannelReliableSequenced, true)
	require.NoError(t, err)
	require.False(t, prev)

	require.NoError(t, e.RxPacket(sprtPacket(0, 100, ChannelReliableSequenced, 0, 0, nil, []byte("queued"))))
	require.Empty(t, host.delivered)

	_, err = e.SetLocalBusy(ChannelReliableSequenced, false)
	require.NoError(t, err)
	e.deliver()
	require.Len(t, host.delivered, 1)
}

// sprtPacket builds a raw SPRT packet for feeding to RxPacket in tests.
func sprtPacket(subsessionID, payloadType byte, channel Channel, seqNo, baseSeqNo uint16, acks []uint16, payload []byte) []byte {
	buf := make([]byte, MaxPacketBytes)
	n := buildPacket(buf, subsessionID, payloadType, channel, seqNo, acks, baseSeqNo, payload)
	return buf[:n]
}
