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

// ErrInfoStreamUnavailable is returned by buildInfoStream when the near
// endpoint's selected information-stream message type isn't one the far
// end declared available.
var ErrInfoStreamUnavailable = errors.New("v150: information stream message not available")

// selectInfoMsgType walks near's InfoMsgPreferences in order and returns the
// first one that's available; the choice is not stored anywhere. I_RAW_OCTET
// and I_OCTET are always considered available; every other type must have
// had near's *Available flag set by UpdateAvailability on INIT receipt.
func selectInfoMsgType(near *NearFar) (MsgID, error) {
	for _, id := range near.InfoMsgPreferences {
		if id < 0 {
			break
		}
		switch id {
		case MsgIDIRawOctet, MsgIDIOctet:
			return id, nil
		case MsgIDIRawBit:
			if near.IRawBitAvailable {
				return id, nil
			}
		case MsgIDICharStat:
			if near.ICharStatAvailable {
				return id, nil
			}
		case MsgIDICharDyn:
			if near.ICharDynAvailable {
				return id, nil
			}
		case MsgIDIFrame:
			if near.IFrameAvailable {
				return id, nil
			}
		case MsgIDIOctetCS:
			if near.IOctetCSAvailable {
				return id, nil
			}
		case MsgIDICharStatCS:
			if near.ICharStatCSAvailable {
				return id, nil
			}
		case MsgIDICharDynCS:
			if near.ICharDynCSAvailable {
				return id, nil
			}
		default:
			return 0, ErrInfoStreamUnavailable
		}
	}
	return 0, ErrInfoStreamUnavailable
}

// buildInfoStream packs payload into the information-stream message id
// names, using near/far's negotiated parameters the same way the nine
// v150_1_build_i_* functions do.
func buildInfoStream(id MsgID, near, far *NearFar, payload []byte) ([]byte, error) {
	switch id {
	case MsgIDIRawOctet:
		pkt := make([]byte, 3+len(payload))
		pkt[0], pkt[1], pkt[2] = byte(MsgIDIRawOctet), 0x82, 0x02
		copy(pkt[3:], payload)
		return pkt, nil
	case MsgIDIRawBit:
		if !far.IRawBitAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		pkt := make([]byte, 3+len(payload))
		pkt[0], pkt[1], pkt[2] = byte(MsgIDIRawBit), 0x82, 0x02
		copy(pkt[3:], payload)
		return pkt, nil
	case MsgIDIOctet:
		if !far.IOctetWithoutDLCIAvailable && !far.IOctetWithDLCIAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		var header int
		var dlci [2]byte
		if far.IOctetWithDLCIAvailable {
			// The DLCI field's first byte carries a continuation bit in
			// its low position: 1 means this is the only byte, 0 means a
			// second byte follows. The DLCI value is shifted left to make
			// room for that bit, so a single byte can only carry DLCIs up
			// to 0x7F; wider values always take the two-byte form.
			if near.DLCI > 0x7F {
				binary.BigEndian.PutUint16(dlci[:], near.DLCI<<1)
				header = 2
			} else {
				dlci[0] = byte(near.DLCI<<1) | 0x01
				header = 1
			}
		}
		pkt := make([]byte, 1+header+len(payload))
		pkt[0] = byte(MsgIDIOctet)
		copy(pkt[1:1+header], dlci[:header])
		copy(pkt[1+header:], payload)
		return pkt, nil
	case MsgIDICharStat:
		if !far.ICharStatAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		pkt := make([]byte, 2+len(payload))
		pkt[0], pkt[1] = byte(MsgIDICharStat), byte(near.DataFormatCode)
		copy(pkt[2:], payload)
		return pkt, nil
	case MsgIDICharDyn:
		if !far.ICharDynAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		pkt := make([]byte, 2+len(payload))
		pkt[0], pkt[1] = byte(MsgIDICharDyn), byte(near.DataFormatCode)
		copy(pkt[2:], payload)
		return pkt, nil
	case MsgIDIFrame:
		if !far.IFrameAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		pkt := make([]byte, 2+len(payload))
		pkt[0], pkt[1] = byte(MsgIDIFrame), 0
		copy(pkt[2:], payload)
		return pkt, nil
	case MsgIDIOctetCS:
		if !far.IOctetCSAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		pkt := make([]byte, 3+len(payload))
		pkt[0] = byte(MsgIDIOctetCS)
		binary.BigEndian.PutUint16(pkt[1:3], near.OctetCSNextSeqNo)
		copy(pkt[3:], payload)
		near.OctetCSNextSeqNo += uint16(len(payload))
		return pkt, nil
	case MsgIDICharStatCS:
		if !far.ICharStatCSAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		pkt := make([]byte, 4+len(payload))
		pkt[0], pkt[1] = byte(MsgIDICharStatCS), byte(near.DataFormatCode)
		binary.BigEndian.PutUint16(pkt[2:4], near.OctetCSNextSeqNo)
		copy(pkt[4:], payload)
		near.OctetCSNextSeqNo += uint16(len(payload))
		return pkt, nil
	case MsgIDICharDynCS:
		if !far.ICharDynCSAvailable {
			return nil, ErrInfoStreamUnavailable
		}
		pkt := make([]byte, 4+len(payload))
		pkt[0], pkt[1] = byte(MsgIDICharDynCS), byte(near.DataFormatCode)
		binary.BigEndian.PutUint16(pkt[2:4], near.OctetCSNextSeqNo)
		copy(pkt[4:], payload)
		near.OctetCSNextSeqNo += uint16(len(payload))
		return pkt, nil
	default:
		return nil, ErrInfoStreamUnavailable
	}
}

// decodeIOctet extracts far's DLCI (if declared available, using the
// low-bit continuation convention buildInfoStream's MsgIDIOctet case
// writes: bit 0 set means a single DLCI byte, clear means two, with the
// DLCI value itself shifted left one bit to make room for the flag) and
// the octet payload from an I_OCTET message.
func decodeIOctet(far *NearFar, buf []byte) ([]byte, error) {
	if len(buf) < 2 {
		return nil, ErrBadLength
	}
	header := 1
	if far.IOctetWithDLCIAvailable {
		if buf[1]&0x01 == 0x01 {
			far.DLCI = uint16(buf[1]) >> 1
			header = 2
		} else {
			if len(buf) < 3 {
				return nil, ErrBadLength
			}
			far.DLCI = binary.BigEndian.Uint16(buf[1:3]) >> 1
			header = 3
		}
	}
	if len(buf) <= header {
		return nil, nil
	}
	return buf[header:], nil
}

// decodeICharStatOrDyn extracts the data format code and payload from an
// I_CHAR_STAT or I_CHAR_DYN message; both share the same two-byte header.
func decodeICharStatOrDyn(buf []byte) (dataFormatCode byte, payload []byte, err error) {
	if len(buf) < 2 {
		return 0, nil, ErrBadLength
	}
	return buf[1], buf[2:], nil
}

// decodeIFrame extracts the data-frame-state bits and payload from an
// I_FRAME message.
func decodeIFrame(buf []byte) (frameState byte, payload []byte, err error) {
	if len(buf) < 2 {
		return 0, nil, ErrBadLength
	}
	return buf[1] & 0x03, buf[2:], nil
}

// decodeIOctetCS extracts the sequence number and payload from an
// I_OCTET_CS message.
func decodeIOctetCS(buf []byte) (seqNo uint16, payload []byte, err error) {
	if len(buf) < 3 {
		return 0, nil, ErrBadLength
	}
	return binary.BigEndian.Uint16(buf[1:3]), buf[3:], nil
}

// decodeICharCS extracts the data format code, sequence number and payload
// shared by I_CHAR_STAT_CS and I_CHAR_DYN_CS.
func decodeICharCS(buf []byte) (dataFormatCode byte, seqNo uint16, payload []byte, err error) {
	if len(buf) < 4 {
		return 0, 0, nil, ErrBadLength
	}
	return buf[1], binary.BigEndian.Uint16(buf[2:4]), buf[4:], nil
}

// octetCSFill computes the fill gap implied by a received _CS sequence
// number: the number of characters the far end's counter jumped by since
// the last _CS message, which is nonzero when transport between the two
// ends dropped one or more packets. far.OctetCSNextSeqNo is then advanced
// past this payload, the same way near.OctetCSNextSeqNo advances on send
// in buildInfoStream.
func octetCSFill(far *NearFar, seqNo uint16, payloadLen int) int {
	fill := int(uint16(int(seqNo)-int(far.OctetCSNextSeqNo)) & 0xFFFF)
	far.OctetCSNextSeqNo = seqNo + uint16(payloadLen)
	return fill
}

// decodeIRawOctetOrBit strips the fixed 3-byte header from an I_RAW_OCTET or
// I_RAW_BIT message.
func decodeIRawOctetOrBit(buf []byte) ([]byte, error) {
	if len(buf) < 3 {
		return nil, ErrBadLength
	}
	return buf[3:], nil
}
