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
	"encoding/binary"
	"errors"
)

// ErrBadLength is returned by the decode* functions when a message arrives
// with a length the wire format doesn't allow.
var ErrBadLength = errors.New("v150: invalid message length")

// encodeInit writes the 3-byte INIT message advertising near's capabilities.
func encodeInit(near *NearFar) []byte {
	pkt := make([]byte, 3)
	pkt[0] = byte(MsgIDInit)
	var i byte
	if near.NecrxchOption {
		i |= 0x80
	}
	if near.EcrxchOption {
		i |= 0x40
	}
	if near.XIDProfileExchangeSupported {
		i |= 0x20
	}
	if near.AsymmetricDataTypesSupported {
		i |= 0x10
	}
	if near.IRawBitSupported {
		i |= 0x08
	}
	if near.IFrameSupported {
		i |= 0x04
	}
	if near.ICharStatSupported {
		i |= 0x02
	}
	if near.ICharDynSupported {
		i |= 0x01
	}
	pkt[1] = i
	i = 0
	if near.IOctetCSSupported {
		i |= 0x80
	}
	if near.ICharStatCSSupported {
		i |= 0x40
	}
	if near.ICharDynCSSupported {
		i |= 0x20
	}
	pkt[2] = i
	return pkt
}

// decodeInit parses an INIT message into far, capturing only what the far
// end declares support for; availability is computed separately with
// NearFar.UpdateAvailability.
func decodeInit(far *NearFar, buf []byte) error {
	if len(buf) != 3 {
		return ErrBadLength
	}
	far.NecrxchOption = buf[1]&0x80 != 0
	far.EcrxchOption = buf[1]&0x40 != 0
	far.XIDProfileExchangeSupported = buf[1]&0x20 != 0
	far.AsymmetricDataTypesSupported = buf[1]&0x10 != 0
	far.IRawBitSupported = buf[1]&0x08 != 0
	far.IFrameSupported = buf[1]&0x04 != 0
	far.ICharStatSupported = buf[1]&0x02 != 0
	far.ICharDynSupported = buf[1]&0x01 != 0
	far.IOctetCSSupported = buf[2]&0x80 != 0
	far.ICharStatCSSupported = buf[2]&0x40 != 0
	far.ICharDynCSSupported = buf[2]&0x20 != 0
	return nil
}

// encodeXIDXchg writes the 19-byte XID_XCHG message carrying near's error
// correction and compression parameters. The compression-specific blocks
// are zeroed when the corresponding scheme isn't declared supported.
func encodeXIDXchg(near *NearFar) []byte {
	pkt := make([]byte, 19)
	pkt[0] = byte(MsgIDXIDXchg)
	pkt[1] = byte(near.ECP)
	var i byte
	if near.V42bisSupported {
		i |= 0x80
	}
	if near.V44Supported {
		i |= 0x40
	}
	if near.Mnp5Supported {
		i |= 0x20
	}
	pkt[2] = i
	if near.V42bisSupported {
		pkt[3] = near.V42bisP0
		binary.BigEndian.PutUint16(pkt[4:6], near.V42bisP1)
		pkt[6] = near.V42bisP2
	}
	if near.V44Supported {
		pkt[7] = near.V44C0
		pkt[8] = near.V44P0
		binary.BigEndian.PutUint16(pkt[9:11], near.V44P1T)
		binary.BigEndian.PutUint16(pkt[11:13], near.V44P1R)
		pkt[13] = near.V44P2T
		pkt[14] = near.V44P2R
		binary.BigEndian.PutUint16(pkt[15:17], near.V44P3T)
		binary.BigEndian.PutUint16(pkt[17:19], near.V44P3R)
	}
	return pkt
}

// decodeXIDXchg parses a 19-byte XID_XCHG message into far. Like the
// reference, it captures the declared parameters without acting on them
// immediately - actually selecting a compression scheme happens at CONNECT.
func decodeXIDXchg(far *NearFar, buf []byte) error {
	if len(buf) != 19 {
		return ErrBadLength
	}
	far.ECP = ErrorCorrection(buf[1])
	far.V42bisSupported = buf[2]&0x80 != 0
	far.V44Supported = buf[2]&0x40 != 0
	far.Mnp5Supported = buf[2]&0x20 != 0
	far.V42bisP0 = buf[3]
	far.V42bisP1 = binary.BigEndian.Uint16(buf[4:6])
	far.V42bisP2 = buf[6]
	far.V44C0 = buf[7]
	far.V44P0 = buf[8]
	far.V44P1T = binary.BigEndian.Uint16(buf[9:11])
	far.V44P1R = binary.BigEndian.Uint16(buf[11:13])
	far.V44P2T = buf[13]
	far.V44P2R = buf[14]
	far.V44P3T = binary.BigEndian.Uint16(buf[15:17])
	far.V44P3R = binary.BigEndian.Uint16(buf[17:19])
	return nil
}

// encodeProfXchg writes the 19-byte PROF_XCHG message: the same shape as
// XID_XCHG but a support flag of its own (V42 LAPM/Annex A included, each
// as a plain declared-supported bit - PROF_XCHG's three-way yes/no/unknown
// encoding only matters on decode).
func encodeProfXchg(near *NearFar) []byte {
	pkt := make([]byte, 19)
	pkt[0] = byte(MsgIDProfXchg)
	var i byte
	if near.V42LapmSupported {
		i |= 0x40
	}
	if near.V42AnnexASupported {
		i |= 0x10
	}
	if near.V44Supported {
		i |= 0x04
	}
	if near.V42bisSupported {
		i |= 0x01
	}
	pkt[1] = i
	i = 0
	if near.Mnp5Supported {
		i |= 0x40
	}
	pkt[2] = i
	if near.V42bisSupported {
		pkt[3] = near.V42bisP0
		binary.BigEndian.PutUint16(pkt[4:6], near.V42bisP1)
		pkt[6] = near.V42bisP2
	}
	if near.V44Supported {
		pkt[7] = near.V44C0
		pkt[8] = near.V44P0
		binary.BigEndian.PutUint16(pkt[9:11], near.V44P1T)
		binary.BigEndian.PutUint16(pkt[11:13], near.V44P1R)
		pkt[13] = near.V44P2T
		pkt[14] = near.V44P2R
		binary.BigEndian.PutUint16(pkt[15:17], near.V44P3T)
		binary.BigEndian.PutUint16(pkt[17:19], near.V44P3R)
	}
	return pkt
}

// decodeProfXchg parses a 19-byte PROF_XCHG message. Each capability field
// is a two-bit yes/no/unknown code; only the "yes" pattern sets the
// corresponding far.*Supported flag, the rest (no, and the two reserved
// "unknown" patterns) all read as unsupported.
func decodeProfXchg(far *NearFar, buf []byte) error {
	if len(buf) != 19 {
		return ErrBadLength
	}
	far.V42LapmSupported = buf[1]&0xC0 == 0x40
	far.V42AnnexASupported = buf[1]&0x30 == 0x10
	far.V44Supported = buf[1]&0x0C == 0x04
	far.V42bisSupported = buf[1]&0x03 == 0x01
	far.Mnp5Supported = buf[2]&0xC0 == 0x40
	far.V42bisP0 = buf[3]
	far.V42bisP1 = binary.BigEndian.Uint16(buf[4:6])
	far.V42bisP2 = buf[6]
	far.V44C0 = buf[7]
	far.V44P0 = buf[8]
	far.V44P1T = binary.BigEndian.Uint16(buf[9:11])
	far.V44P1R = binary.BigEndian.Uint16(buf[11:13])
	far.V44P2T = buf[13]
	far.V44P2R = buf[14]
	far.V44P3T = binary.BigEndian.Uint16(buf[15:17])
	far.V44P3R = binary.BigEndian.Uint16(buf[17:19])
	return nil
}

// encodeJMInfo writes a JM_INFO message from near's seen JM categories.
func encodeJMInfo(near *NearFar) []byte {
	pkt := make([]byte, 1, 33)
	pkt[0] = byte(MsgIDJMInfo)
	for i := 0; i < 16; i++ {
		if !near.JMCategoryIDSeen[i] {
			continue
		}
		var word [2]byte
		binary.BigEndian.PutUint16(word[:], uint16(i)<<12|near.JMCategoryInfo[i]&0x0FFF)
		pkt = append(pkt, word[:]...)
	}
	return pkt
}

// decodeJMInfo parses a JM_INFO message into far's category tables.
func decodeJMInfo(far *NearFar, buf []byte) error {
	if len(buf)%2 != 1 {
		return ErrBadLength
	}
	for i := 1; i+1 < len(buf); i += 2 {
		word := binary.BigEndian.Uint16(buf[i : i+2])
		id := (buf[i] >> 4) & 0x0F
		far.JMCategoryIDSeen[id] = true
		far.JMCategoryInfo[id] = word & 0x0FFF
	}
	return nil
}

// encodeStartJM writes the 1-byte START_JM message.
func encodeStartJM() []byte { return []byte{byte(MsgIDStartJM)} }

// decodeStartJM validates a START_JM message; it carries no payload.
func decodeStartJM(buf []byte) error {
	if len(buf) > 1 {
		return ErrBadLength
	}
	return nil
}

// encodeConnect writes the CONNECT message (9, 15 or 19 bytes depending on
// the selected compression scheme) announcing near's final modem/compression
// selection and the information streams it can accept.
func encodeConnect(near *NearFar) []byte {
	pkt := make([]byte, 19)
	pkt[0] = byte(MsgIDConnect)
	pkt[1] = near.Selmod<<2 | byte(near.SelectedCompressionDirection)
	pkt[2] = byte(near.SelectedCompression)<<4 | byte(near.SelectedErrorCorrection)
	binary.BigEndian.PutUint16(pkt[3:5], near.Tdsr)
	binary.BigEndian.PutUint16(pkt[5:7], near.Rdsr)

	var available uint16
	if near.IOctetWithDLCIAvailable {
		available |= 0x8000
	}
	if near.IOctetWithoutDLCIAvailable {
		available |= 0x4000
	}
	if near.IRawBitAvailable {
		available |= 0x2000
	}
	if near.IFrameAvailable {
		available |= 0x1000
	}
	if near.ICharStatAvailable {
		available |= 0x0800
	}
	if near.ICharDynAvailable {
		available |= 0x0400
	}
	if near.IOctetCSAvailable {
		available |= 0x0200
	}
	if near.ICharStatCSAvailable {
		available |= 0x0100
	}
	if near.ICharDynCSAvailable {
		available |= 0x0080
	}
	binary.BigEndian.PutUint16(pkt[7:9], available)

	n := 9
	if near.SelectedCompression == CompressionV42bis || near.SelectedCompression == CompressionV44 {
		binary.BigEndian.PutUint16(pkt[9:11], near.CompressionTxDictionarySize)
		binary.BigEndian.PutUint16(pkt[11:13], near.CompressionRxDictionarySize)
		pkt[13] = near.CompressionTxStringLength
		pkt[14] = near.CompressionRxStringLength
		n = 15
	}
	if near.SelectedCompression == CompressionV44 {
		binary.BigEndian.PutUint16(pkt[15:17], near.CompressionTxHistorySize)
		binary.BigEndian.PutUint16(pkt[17:19], near.CompressionRxHistorySize)
		n = 19
	}
	return pkt[:n]
}

// decodeConnect parses a CONNECT message into far.
func decodeConnect(far *NearFar, buf []byte) error {
	if len(buf) < 9 || len(buf) > 19 {
		return ErrBadLength
	}
	far.Selmod = buf[1] >> 2 & 0x3F
	far.SelectedCompressionDirection = CompressionDirection(buf[1] & 0x03)
	far.SelectedCompression = Compression(buf[2] >> 4 & 0x0F)
	far.SelectedErrorCorrection = ErrorCorrection(buf[2] & 0x0F)
	far.Tdsr = binary.BigEndian.Uint16(buf[3:5])
	far.Rdsr = binary.BigEndian.Uint16(buf[5:7])

	available := binary.BigEndian.Uint16(buf[7:9])
	far.IOctetWithDLCIAvailable = available&0x8000 != 0
	far.IOctetWithoutDLCIAvailable = available&0x4000 != 0
	far.IRawBitAvailable = available&0x2000 != 0
	far.IFrameAvailable = available&0x1000 != 0
	far.ICharStatAvailable = available&0x0800 != 0
	far.ICharDynAvailable = available&0x0400 != 0
	far.IOctetCSAvailable = available&0x0200 != 0
	far.ICharStatCSAvailable = available&0x0100 != 0
	far.ICharDynCSAvailable = available&0x0080 != 0

	if len(buf) >= 15 && (far.SelectedCompression == CompressionV42bis || far.SelectedCompression == CompressionV44) {
		far.CompressionTxDictionarySize = binary.BigEndian.Uint16(buf[9:11])
		far.CompressionRxDictionarySize = binary.BigEndian.Uint16(buf[11:13])
		far.CompressionTxStringLength = buf[13]
		far.CompressionRxStringLength = buf[14]
	} else {
		far.CompressionTxDictionarySize = 0
		far.CompressionRxDictionarySize = 0
		far.CompressionTxStringLength = 0
		far.CompressionRxStringLength = 0
	}

	if len(buf) >= 19 && far.SelectedCompression == CompressionV44 {
		far.CompressionTxHistorySize = binary.BigEndian.Uint16(buf[15:17])
		far.CompressionRxHistorySize = binary.BigEndian.Uint16(buf[17:19])
	} else {
		far.CompressionTxHistorySize = 0
		far.CompressionRxHistorySize = 0
	}
	return nil
}

// encodeBreak writes the 3-byte BREAK message. duration is in milliseconds
// and is packed in 10ms units, per Table 21.
func encodeBreak(source BreakSource, typ BreakType, duration int) []byte {
	return []byte{byte(MsgIDBreak), byte(source)<<4 | byte(typ), byte(duration / 10)}
}

// decodeBreak parses a 3-byte BREAK message into far.
func decodeBreak(far *NearFar, buf []byte) error {
	if len(buf) != 3 {
		return ErrBadLength
	}
	far.BreakSource = buf[1] >> 4 & 0x0F
	far.BreakType = buf[1] & 0x0F
	far.BreakDuration = buf[2]
	return nil
}

// encodeBreakAck writes the 1-byte BREAKACK message.
func encodeBreakAck() []byte { return []byte{byte(MsgIDBreakAck)} }

// decodeBreakAck validates a 1-byte BREAKACK message.
func decodeBreakAck(buf []byte) error {
	if len(buf) != 1 {
		return ErrBadLength
	}
	return nil
}

// encodeMrEvent writes an MR_EVENT message and returns it along with the
// connection state near moves to once it is sent. For MrEventIDPhysUp,
// unlike the reference (which writes Tdsr and Rdsr to the same offset twice -
// a transcription slip, since v150_1_process_mr_event's PHYSUP branch plainly
// reads them from two different two-byte fields), it places Rdsr at its own
// two bytes.
func encodeMrEvent(near *NearFar, far *NearFar, id MrEventID) ([]byte, ConnectionState) {
	switch id {
	case MrEventIDRetrain:
		return []byte{byte(MsgIDMrEvent), byte(id), 0}, StateRetrain
	case MrEventIDRateRenegotiation:
		return []byte{byte(MsgIDMrEvent), byte(id), 0}, StateRateRenegotiation
	case MrEventIDPhysUp:
		pkt := make([]byte, 10)
		pkt[0] = byte(MsgIDMrEvent)
		pkt[1] = byte(id)
		var i byte
		i = near.Selmod << 2
		if near.Txsen {
			i |= 0x02
		}
		if near.Rxsen {
			i |= 0x01
		}
		pkt[3] = i
		binary.BigEndian.PutUint16(pkt[4:6], near.Tdsr)
		binary.BigEndian.PutUint16(pkt[6:8], near.Rdsr)
		if near.Txsen {
			pkt[8] = byte(near.Txsr)
		} else {
			pkt[8] = byte(SymbolRateNull)
		}
		if near.Rxsen {
			pkt[9] = byte(near.Rxsr)
		} else {
			pkt[9] = byte(SymbolRateNull)
		}
		return pkt, StatePhysUp
	default:
		return []byte{byte(MsgIDMrEvent), byte(MrEventIDNull), 0}, near.ConnectionState
	}
}

// decodeMrEvent parses an MR_EVENT message into far, returning the event ID
// so the caller can drive the joint state machine and status reporting.
func decodeMrEvent(far *NearFar, buf []byte) (MrEventID, error) {
	if len(buf) < 3 {
		return 0, ErrBadLength
	}
	id := MrEventID(buf[1])
	switch id {
	case MrEventIDNull, MrEventIDRetrain, MrEventIDRateRenegotiation:
		if len(buf) != 3 {
			return 0, ErrBadLength
		}
	case MrEventIDPhysUp:
		if len(buf) != 10 {
			return 0, ErrBadLength
		}
		far.Selmod = buf[3] >> 2 & 0x3F
		far.Txsen = buf[3]&0x02 != 0
		far.Rxsen = buf[3]&0x01 != 0
		far.Tdsr = binary.BigEndian.Uint16(buf[4:6])
		far.Rdsr = binary.BigEndian.Uint16(buf[6:8])
		far.Txsr = SymbolRate(buf[8])
		far.Rxsr = SymbolRate(buf[9])
	}
	return id, nil
}

// encodeCleardown writes the 4-byte CLEARDOWN message. The vendor/vendor-info
// bytes are unused by this implementation, matching the reference (which
// reads them into local variables it never acts on).
func encodeCleardown(reason byte) []byte {
	return []byte{byte(MsgIDCleardown), reason, 0, 0}
}

// decodeCleardown parses a 4-byte CLEARDOWN message into far.
func decodeCleardown(far *NearFar, buf []byte) error {
	if len(buf) != 4 {
		return ErrBadLength
	}
	far.CleardownReason = buf[1]
	return nil
}
