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

package v150

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/v150gw/sprt"
	"github.com/facebookincubator/v150gw/sse"
)

// pair is two Engines wired directly to each other's SPRT instances,
// bypassing any real network transport, the way sprt/engine_test.go's
// loopback harness does for its own layer.
type pair struct {
	a, b *Engine
}

func newPair(t *testing.T) *pair {
	p := &pair{}

	var sprtA, sprtB *sprt.Engine
	var err error

	sprtA, err = sprt.New(sprt.Config{
		TxFunc: func(pkt []byte) error { return sprtB.RxPacket(pkt) },
		RxDeliveryFunc: func(channel sprt.Channel, seqNo uint16, payload []byte) error {
			return p.a.ProcessRxMsg(channel, payload)
		},
		TimerFunc: func(deadline sprt.Timestamp) sprt.Timestamp { return 1 },
	})
	require.NoError(t, err)

	sprtB, err = sprt.New(sprt.Config{
		TxFunc: func(pkt []byte) error { return sprtA.RxPacket(pkt) },
		RxDeliveryFunc: func(channel sprt.Channel, seqNo uint16, payload []byte) error {
			return p.b.ProcessRxMsg(channel, payload)
		},
		TimerFunc: func(deadline sprt.Timestamp) sprt.Timestamp { return 1 },
	})
	require.NoError(t, err)

	sseA, err := sse.New(sse.Config{
		TxFunc:       func(repeat bool, pkt []byte) error { return nil },
		DeliveryFunc: func(pkt sse.Packet) {},
		TimerFunc:    func(deadline sse.Timestamp) sse.Timestamp { return 1 },
	})
	require.NoError(t, err)
	sseB, err := sse.New(sse.Config{
		TxFunc:       func(repeat bool, pkt []byte) error { return nil },
		DeliveryFunc: func(pkt sse.Packet) {},
		TimerFunc:    func(deadline sse.Timestamp) sse.Timestamp { return 1 },
	})
	require.NoError(t, err)

	p.a, err = New(Config{SPRT: sprtA, SSE: sseA})
	require.NoError(t, err)
	p.b, err = New(Config{SPRT: sprtB, SSE: sseB})
	require.NoError(t, err)
	return p
}

func TestInitExchangeReachesJointInited(t *testing.T) {
	p := newPair(t)

	require.NoError(t, p.a.TxInit())
	require.Equal(t, StateIdle, p.b.JointConnectionState(), "b's joint state stays idle after a's INIT arrives, since b hasn't sent its own yet")
	require.Equal(t, StateIdle, p.a.JointConnectionState(), "a's own joint state hasn't moved until b replies")

	require.NoError(t, p.b.TxInit())
	require.Equal(t, StateInited, p.a.JointConnectionState())
}

func TestConnectExchangeReachesJointConnected(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.a.TxInit())
	require.NoError(t, p.b.TxInit())

	require.NoError(t, p.a.TxConnect())
	require.Equal(t, StateInited, p.a.JointConnectionState(), "a's joint state waits for b's CONNECT")
	require.Equal(t, StateConnected, p.b.Far().ConnectionState)

	require.NoError(t, p.b.TxConnect())
	require.Equal(t, StateConnected, p.b.JointConnectionState())
}

func TestBreakRequiresConnectedState(t *testing.T) {
	p := newPair(t)
	err := p.a.TxBreak(BreakSourceDTE, BreakTypeExpedited, 100)
	require.ErrorIs(t, err, ErrWrongState)
}

func TestCleardownResetsNearStateButNotJoint(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.a.TxInit())
	require.NoError(t, p.b.TxInit())
	require.NoError(t, p.a.TxConnect())
	require.NoError(t, p.b.TxConnect())

	require.NoError(t, p.a.TxCleardown(5))
	require.Equal(t, StateIdle, p.a.near.ConnectionState)

	// The far end's CLEARDOWN resets far's state but the reference never
	// touches joint_connection_state on receipt either.
	require.Equal(t, StateIdle, p.b.far.ConnectionState)
}

func TestProcessRxMsgRejectsReservedBit(t *testing.T) {
	p := newPair(t)
	err := p.a.ProcessRxMsg(sprt.ChannelExpeditedReliableSequenced, []byte{0x80})
	require.Error(t, err)
}

func TestProcessRxMsgIOctetCSReportsFillGap(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.a.TxInit())
	require.NoError(t, p.b.TxInit())
	require.NoError(t, p.a.TxConnect())
	require.NoError(t, p.b.TxConnect())

	var gotPayload []byte
	var gotFill int
	p.a.rxOctet = func(payload []byte, dlci int, fill int) {
		gotPayload = payload
		gotFill = fill
	}
	p.a.far.OctetCSNextSeqNo = 10

	senderNear := NewNearCapabilities()
	senderNear.OctetCSNextSeqNo = 20 // 10 characters ahead of what p.a expects
	senderFar := NewFarCapabilities()
	senderFar.IOctetCSAvailable = true
	pkt, err := buildInfoStream(MsgIDIOctetCS, senderNear, senderFar, []byte("abc"))
	require.NoError(t, err)

	require.NoError(t, p.a.ProcessRxMsg(sprt.ChannelReliableSequenced, pkt))
	require.Equal(t, []byte("abc"), gotPayload)
	require.Equal(t, 10, gotFill)
	require.EqualValues(t, 23, p.a.far.OctetCSNextSeqNo)
}

func TestProcessRxMsgIOctetPassesNoFill(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.a.TxInit())
	require.NoError(t, p.b.TxInit())
	require.NoError(t, p.a.TxConnect())
	require.NoError(t, p.b.TxConnect())

	var gotFill int
	called := false
	p.a.rxOctet = func(payload []byte, dlci int, fill int) {
		called = true
		gotFill = fill
	}

	senderNear := NewNearCapabilities()
	senderFar := NewFarCapabilities()
	senderFar.IOctetWithoutDLCIAvailable = true
	pkt, err := buildInfoStream(MsgIDIOctet, senderNear, senderFar, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, p.a.ProcessRxMsg(sprt.ChannelReliableSequenced, pkt))
	require.True(t, called)
	require.Equal(t, -1, gotFill)
}

func TestProcessRxMsgRejectsWrongChannel(t *testing.T) {
	p := newPair(t)
	err := p.a.ProcessRxMsg(sprt.ChannelReliableSequenced, encodeInit(NewNearCapabilities()))
	require.Error(t, err)
}
