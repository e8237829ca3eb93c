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

// RxPacket processes a packet arriving from the far end. It returns
// ErrPacketTooShort or ErrNotSPRT when pkt doesn't validate as SPRT at all,
// which in a mixed packet stream (SPRT alongside RTP or T.38, say) tells
// the caller to try a different sink. Any other outcome - including a
// subsession change or an out-of-window payload - is reported through nil
// plus the engine's StatusFunc, not through the returned error.
func (e *Engine) RxPacket(pkt []byte) error {
	h, err := parseHeader(pkt)
	if err != nil {
		e.log.Debugf("rx: %v", err)
		return err
	}
	e.log.Debugf("rx ch %s seq %d noa %d len %d", h.channel, h.seqNo, h.noa, len(pkt)-h.headerLen)

	if h.payloadType != e.rxPayloadType {
		e.log.Debugf("rx payload type %d, expected %d", h.payloadType, e.rxPayloadType)
		return ErrNotSPRT
	}

	if e.rxSubsessionID < 0 {
		// First packet we've seen: latch its subsession ID as the one we
		// expect from here on.
		e.rxSubsessionID = int16(h.subsessionID)
	} else if byte(e.rxSubsessionID) != h.subsessionID {
		e.log.Debugf("rx subsession id %d, expected %d", h.subsessionID, e.rxSubsessionID)
		if e.statusFunc != nil {
			e.statusFunc(StatusSubsessionChanged)
		}
		e.rxReinit()
		return nil
	}

	rc := &e.rx.channels[h.channel]
	tcFar := &e.tx.channels[h.channel]
	if tcFar.busy && tcFar.baseSequenceNo != h.baseSeqNo {
		e.log.Debugf("BSN for channel %s changed from %d to %d", h.channel, tcFar.baseSequenceNo, h.baseSeqNo)
	}
	tcFar.baseSequenceNo = h.baseSeqNo

	if h.noa > 0 {
		e.processAcknowledgements(h.acks[:h.noa])
	}

	payload := pkt[h.headerLen:]
	if len(payload) == 0 {
		return nil
	}
	if len(payload) > rc.maxPayloadBytes {
		e.log.Errorf("payload too long %d (%d)", len(payload), rc.maxPayloadBytes)
		return nil
	}

	switch {
	case h.channel.Reliable():
		e.rxReliablePayload(h.channel, rc, h.seqNo, payload)
	case h.channel == ChannelUnreliableSequenced:
		if e.dedup.Seen(byte(h.channel), h.seqNo, payload) {
			e.log.Debugf("dropping duplicate on %s seq %d", h.channel, h.seqNo)
		} else {
			if e.rxDeliveryFunc != nil {
				e.rxDeliveryFunc(h.channel, h.seqNo, payload)
			}
			rc.active = true
		}
	default:
		// ChannelUnreliableUnsequenced (0) is documented as ACK-only, but a
		// non-zero payload here is accepted and delivered rather than
		// treated as a framing error - see DESIGN.md's Open Questions.
		if e.rxDeliveryFunc != nil {
			e.rxDeliveryFunc(h.channel, h.seqNo, payload)
		}
		rc.active = true
	}
	return nil
}

// rxReliablePayload handles a payload on channel 1 or 2: in-sequence
// packets are delivered immediately along with any now-contiguous buffered
// successors; in-window-but-out-of-order packets are buffered for later;
// far-future packets are dropped without acknowledgement; and stale
// duplicates are re-acknowledged and reported as out of sequence.
func (e *Engine) rxReliablePayload(channel Channel, rc *rxChannel, seqNo uint16, payload []byte) {
	defer func() { rc.active = true }()

	if seqNo == rc.baseSequenceNo {
		iptr := rc.buffIn
		e.queueAcknowledgement(channel, seqNo)
		if rc.busy {
			copy(rc.buff[iptr], payload)
			rc.buffLen[iptr] = len(payload)
			return
		}
		if e.rxDeliveryFunc != nil {
			e.rxDeliveryFunc(channel, seqNo, payload)
		}
		rc.baseSequenceNo = (rc.baseSequenceNo + 1) & seqNoMask
		rc.buffLen[iptr] = lenSlotFree
		iptr++
		if iptr >= rc.windowSize {
			iptr = 0
		}
		for rc.buffLen[iptr] != lenSlotFree {
			if rc.busy {
				break
			}
			if e.rxDeliveryFunc != nil {
				e.rxDeliveryFunc(channel, rc.baseSequenceNo, rc.buff[iptr][:rc.buffLen[iptr]])
			}
			rc.baseSequenceNo = (rc.baseSequenceNo + 1) & seqNoMask
			rc.buffLen[iptr] = lenSlotFree
			iptr++
			if iptr >= rc.windowSize {
				iptr = 0
			}
		}
		rc.buffIn = iptr
		return
	}

	diff := int((seqNo - rc.baseSequenceNo) & seqNoMask)
	switch {
	case diff < rc.windowSize:
		e.queueAcknowledgement(channel, seqNo)
		iptr := rc.buffIn + diff
		if iptr >= rc.windowSize {
			iptr -= rc.windowSize
		}
		copy(rc.buff[iptr], payload)
		rc.buffLen[iptr] = len(payload)
	case diff > 2*MaxWindowSize:
		// Stale duplicate, probably because the far end missed our earlier
		// ack: re-ack it and flag it, but there's nowhere to buffer it.
		e.queueAcknowledgement(channel, seqNo)
		if e.statusFunc != nil {
			e.statusFunc(StatusOutOfSequence)
		}
	default:
		// Just beyond the window. Drop silently and don't ack - acking
		// this would tell the far end we delivered something we didn't.
	}
}

// rxReinit runs after a subsession change. It clears the subsession latch,
// so the next packet's subsession ID is adopted as the expected one. The
// reliable channels' sequence numbers and buffered-but-undelivered payloads
// are left as is.
func (e *Engine) rxReinit() {
	e.rxSubsessionID = -1
}
