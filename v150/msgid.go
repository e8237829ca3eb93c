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

import "github.com/facebookincubator/v150gw/sprt"

// MsgID identifies a V.150.1 modem relay message, carried as the low seven
// bits of the first payload byte of every message (the high bit is reserved
// and must be zero).
type MsgID int

const (
	MsgIDNull          MsgID = 0
	MsgIDInit          MsgID = 1
	MsgIDXIDXchg       MsgID = 2
	MsgIDJMInfo        MsgID = 3
	MsgIDStartJM       MsgID = 4
	MsgIDConnect       MsgID = 5
	MsgIDBreak         MsgID = 6
	MsgIDBreakAck      MsgID = 7
	MsgIDMrEvent       MsgID = 8
	MsgIDCleardown     MsgID = 9
	MsgIDProfXchg      MsgID = 10
	MsgIDIRawOctet     MsgID = 16
	MsgIDIRawBit       MsgID = 17
	MsgIDIOctet        MsgID = 18
	MsgIDICharStat     MsgID = 19
	MsgIDICharDyn      MsgID = 20
	MsgIDIFrame        MsgID = 21
	MsgIDIOctetCS      MsgID = 22
	MsgIDICharStatCS   MsgID = 23
	MsgIDICharDynCS    MsgID = 24
	MsgIDVendorMin     MsgID = 100
	MsgIDVendorMax     MsgID = 127
)

func (id MsgID) String() string {
	switch id {
	case MsgIDNull:
		return "NULL"
	case MsgIDInit:
		return "INIT"
	case MsgIDXIDXchg:
		return "XID_XCHG"
	case MsgIDJMInfo:
		return "JM_INFO"
	case MsgIDStartJM:
		return "START_JM"
	case MsgIDConnect:
		return "CONNECT"
	case MsgIDBreak:
		return "BREAK"
	case MsgIDBreakAck:
		return "BREAKACK"
	case MsgIDMrEvent:
		return "MR_EVENT"
	case MsgIDCleardown:
		return "CLEARDOWN"
	case MsgIDProfXchg:
		return "PROF_XCHG"
	case MsgIDIRawOctet:
		return "I_RAW_OCTET"
	case MsgIDIRawBit:
		return "I_RAW_BIT"
	case MsgIDIOctet:
		return "I_OCTET"
	case MsgIDICharStat:
		return "I_CHAR_STAT"
	case MsgIDICharDyn:
		return "I_CHAR_DYN"
	case MsgIDIFrame:
		return "I_FRAME"
	case MsgIDIOctetCS:
		return "I_OCTET_CS"
	case MsgIDICharStatCS:
		return "I_CHAR_STAT_CS"
	case MsgIDICharDynCS:
		return "I_CHAR_DYN_CS"
	default:
		if id >= MsgIDVendorMin && id <= MsgIDVendorMax {
			return "vendor-specific"
		}
		return "unknown"
	}
}

// channelCheck is Table B.3's per-message allowed-channel bitmask: bit N set
// means the message may travel on SPRT transmission channel N. Control
// messages (capability exchange, JM negotiation, events, cleardown) use
// channel 2 only; NULL/BREAK/BREAKACK may use any channel; the nine
// information-stream messages use channel 1 or 3.
var channelCheck = map[MsgID]uint8{
	MsgIDNull:        0x0F,
	MsgIDInit:        0x04,
	MsgIDXIDXchg:     0x04,
	MsgIDJMInfo:      0x04,
	MsgIDStartJM:     0x04,
	MsgIDConnect:     0x04,
	MsgIDBreak:       0x0F,
	MsgIDBreakAck:    0x0F,
	MsgIDMrEvent:     0x04,
	MsgIDCleardown:   0x04,
	MsgIDProfXchg:    0x04,
	MsgIDIRawOctet:   0x0A,
	MsgIDIRawBit:     0x0A,
	MsgIDIOctet:      0x0A,
	MsgIDICharStat:   0x0A,
	MsgIDICharDyn:    0x0A,
	MsgIDIFrame:      0x0A,
	MsgIDIOctetCS:    0x0A,
	MsgIDICharStatCS: 0x0A,
	MsgIDICharDynCS:  0x0A,
}

// channelAllowed reports whether id may legally travel on channel, per
// Table B.3. Message IDs with no channelCheck entry (vendor-specific and
// anything outside the defined table) are allowed on any channel.
func channelAllowed(id MsgID, channel sprt.Channel) bool {
	mask, ok := channelCheck[id]
	if !ok {
		return true
	}
	return mask&(1<<uint(channel)) != 0
}
