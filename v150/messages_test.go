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

func TestInitRoundTrips(t *testing.T) {
	near := NewNearCapabilities()
	near.IRawBitSupported = true
	near.AsymmetricDataTypesSupported = true

	pkt := encodeInit(near)
	require.Len(t, pkt, 3)

	far := NewFarCapabilities()
	require.NoError(t, decodeInit(far, pkt))
	require.True(t, far.IRawBitSupported)
	require.True(t, far.AsymmetricDataTypesSupported)
	require.True(t, far.IOctetCSSupported, "near's default declares I_OCTET_CS support")
}

func TestInitRejectsBadLength(t *testing.T) {
	far := NewFarCapabilities()
	require.ErrorIs(t, decodeInit(far, []byte{0, 1}), ErrBadLength)
}

func TestXIDXchgRoundTripsWithV42bisParameters(t *testing.T) {
	near := NewNearCapabilities()
	near.V42bisSupported = true
	near.V42bisP0 = 3
	near.V42bisP1 = 1024
	near.V42bisP2 = 6

	pkt := encodeXIDXchg(near)
	require.Len(t, pkt, 19)

	far := NewFarCapabilities()
	require.NoError(t, decodeXIDXchg(far, pkt))
	require.True(t, far.V42bisSupported)
	require.EqualValues(t, 1024, far.V42bisP1)
	require.Zero(t, far.V44C0, "V.44 block is zeroed when V.44 isn't declared")
}

func TestProfXchgThreeWayEncoding(t *testing.T) {
	near := NewNearCapabilities()
	near.V42LapmSupported = true
	near.V42bisSupported = true

	pkt := encodeProfXchg(near)
	far := NewFarCapabilities()
	require.NoError(t, decodeProfXchg(far, pkt))
	require.True(t, far.V42LapmSupported)
	require.True(t, far.V42bisSupported)
	require.False(t, far.V42AnnexASupported)
	require.False(t, far.Mnp5Supported)
}

func TestJMInfoRoundTrips(t *testing.T) {
	near := NewNearCapabilities()
	pkt := encodeJMInfo(near)

	far := NewFarCapabilities()
	require.NoError(t, decodeJMInfo(far, pkt))
	require.True(t, far.JMCategoryIDSeen[JMCategoryModulationModes])
	require.EqualValues(t, near.JMCategoryInfo[JMCategoryModulationModes], far.JMCategoryInfo[JMCategoryModulationModes])
}

func TestConnectRoundTripsWithoutCompression(t *testing.T) {
	near := NewNearCapabilities()
	near.Tdsr = 33600
	near.Rdsr = 33600
	near.IOctetCSAvailable = true

	pkt := encodeConnect(near)
	require.Len(t, pkt, 9, "no compression block when SelectedCompression is none")

	far := NewFarCapabilities()
	require.NoError(t, decodeConnect(far, pkt))
	require.EqualValues(t, 33600, far.Tdsr)
	require.True(t, far.IOctetCSAvailable)
	require.Zero(t, far.CompressionTxDictionarySize)
}

func TestConnectRoundTripsWithV44Compression(t *testing.T) {
	near := NewNearCapabilities()
	near.SelectedCompression = CompressionV44
	near.CompressionTxDictionarySize = 2048
	near.CompressionRxDictionarySize = 2048
	near.CompressionTxStringLength = 8
	near.CompressionRxStringLength = 8
	near.CompressionTxHistorySize = 3
	near.CompressionRxHistorySize = 5

	pkt := encodeConnect(near)
	require.Len(t, pkt, 19)

	far := NewFarCapabilities()
	require.NoError(t, decodeConnect(far, pkt))
	require.EqualValues(t, 2048, far.CompressionTxDictionarySize)
	require.EqualValues(t, 3, far.CompressionTxHistorySize)
	require.EqualValues(t, 5, far.CompressionRxHistorySize, "tx and rx history sizes must land in distinct fields")
}

func TestBreakRoundTrips(t *testing.T) {
	pkt := encodeBreak(BreakSourceDTE, BreakTypeExpedited, 150)
	far := NewFarCapabilities()
	require.NoError(t, decodeBreak(far, pkt))
	require.EqualValues(t, BreakSourceDTE, far.BreakSource)
	require.EqualValues(t, BreakTypeExpedited, far.BreakType)
	require.EqualValues(t, 15, far.BreakDuration, "duration is packed in 10ms units")
}

func TestMrEventPhysUpRoundTripsTdsrAndRdsrSeparately(t *testing.T) {
	near := NewNearCapabilities()
	near.Tdsr = 31200
	near.Rdsr = 33600
	near.Txsen = true
	near.Txsr = SymbolRate(5)

	pkt, state := encodeMrEvent(near, NewFarCapabilities(), MrEventIDPhysUp)
	require.Equal(t, StatePhysUp, state)
	require.Len(t, pkt, 10)

	far := NewFarCapabilities()
	id, err := decodeMrEvent(far, pkt)
	require.NoError(t, err)
	require.Equal(t, MrEventIDPhysUp, id)
	require.EqualValues(t, 31200, far.Tdsr)
	require.EqualValues(t, 33600, far.Rdsr, "tx and rx data signalling rates must not alias the same offset")
}

func TestCleardownRoundTrips(t *testing.T) {
	pkt := encodeCleardown(5)
	far := NewFarCapabilities()
	require.NoError(t, decodeCleardown(far, pkt))
	require.EqualValues(t, 5, far.CleardownReason)
}
