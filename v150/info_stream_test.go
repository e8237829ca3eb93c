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
)

func TestSelectInfoMsgTypePrefersFirstAvailable(t *testing.T) {
	near := NewNearCapabilities()
	near.InfoMsgPreferences = [10]MsgID{MsgIDICharStatCS, MsgIDIOctet, -1}
	near.ICharStatCSAvailable = false

	id, err := selectInfoMsgType(near)
	require.NoError(t, err)
	require.Equal(t, MsgIDIOctet, id, "falls through to I_OCTET, which is always available")
}

func TestSelectInfoMsgTypeNoneAvailable(t *testing.T) {
	near := NewNearCapabilities()
	near.InfoMsgPreferences = [10]MsgID{MsgIDICharStat, -1}
	near.ICharStatAvailable = false

	_, err := selectInfoMsgType(near)
	require.ErrorIs(t, err, ErrInfoStreamUnavailable)
}

func TestBuildAndDecodeIOctetWithoutDLCI(t *testing.T) {
	near := NewNearCapabilities()
	far := NewFarCapabilities()
	far.IOctetWithoutDLCIAvailable = true

	pkt, err := buildInfoStream(MsgIDIOctet, near, far, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, byte(MsgIDIOctet), pkt[0])

	farRx := NewFarCapabilities()
	payload, err := decodeIOctet(farRx, pkt)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), payload)
}

func TestBuildAndDecodeIOctetWithOneByteDLCI(t *testing.T) {
	near := NewNearCapabilities()
	near.DLCI = 4 // fits in 7 bits, so it takes the one-byte DLCI form
	far := NewFarCapabilities()
	far.IOctetWithDLCIAvailable = true

	pkt, err := buildInfoStream(MsgIDIOctet, near, far, []byte("x"))
	require.NoError(t, err)
	require.Len(t, pkt, 1+1+1)

	farRx := NewFarCapabilities()
	farRx.IOctetWithDLCIAvailable = true
	payload, err := decodeIOctet(farRx, pkt)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), payload)
	require.EqualValues(t, 4, farRx.DLCI)
}

func TestBuildAndDecodeIOctetWithTwoByteDLCI(t *testing.T) {
	near := NewNearCapabilities()
	near.DLCI = 300 // exceeds 0x7F, so it takes the two-byte DLCI form
	far := NewFarCapabilities()
	far.IOctetWithDLCIAvailable = true

	pkt, err := buildInfoStream(MsgIDIOctet, near, far, []byte("x"))
	require.NoError(t, err)
	require.Len(t, pkt, 1+2+1)

	farRx := NewFarCapabilities()
	farRx.IOctetWithDLCIAvailable = true
	payload, err := decodeIOctet(farRx, pkt)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), payload)
	require.EqualValues(t, 300, farRx.DLCI)
}

func TestBuildInfoStreamRejectsUnavailableType(t *testing.T) {
	near := NewNearCapabilities()
	far := NewFarCapabilities()
	_, err := buildInfoStream(MsgIDICharDyn, near, far, []byte("x"))
	require.ErrorIs(t, err, ErrInfoStreamUnavailable)
}

func TestBuildIOctetCSAdvancesSequenceNumber(t *testing.T) {
	near := NewNearCapabilities()
	near.OctetCSNextSeqNo = 10
	far := NewFarCapabilities()
	far.IOctetCSAvailable = true

	pkt, err := buildInfoStream(MsgIDIOctetCS, near, far, []byte("abc"))
	require.NoError(t, err)
	require.EqualValues(t, 13, near.OctetCSNextSeqNo)

	seqNo, payload, err := decodeIOctetCS(pkt)
	require.NoError(t, err)
	require.EqualValues(t, 10, seqNo)
	require.Equal(t, []byte("abc"), payload)
}

func TestOctetCSFillZeroWhenContiguous(t *testing.T) {
	far := NewFarCapabilities()
	far.OctetCSNextSeqNo = 10

	fill := octetCSFill(far, 10, 3)
	require.Equal(t, 0, fill)
	require.EqualValues(t, 13, far.OctetCSNextSeqNo)
}

func TestOctetCSFillReportsDroppedCharacters(t *testing.T) {
	far := NewFarCapabilities()
	far.OctetCSNextSeqNo = 10

	// far advanced its sequence number to 20 instead of the expected 10,
	// implying 10 characters were lost since the last _CS message.
	fill := octetCSFill(far, 20, 5)
	require.Equal(t, 10, fill)
	require.EqualValues(t, 25, far.OctetCSNextSeqNo)
}

func TestOctetCSFillWrapsAtSequenceRollover(t *testing.T) {
	far := NewFarCapabilities()
	far.OctetCSNextSeqNo = 0xFFFE

	fill := octetCSFill(far, 1, 2)
	require.Equal(t, 3, fill)
	require.EqualValues(t, 3, far.OctetCSNextSeqNo)
}
