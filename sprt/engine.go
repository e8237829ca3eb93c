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
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/facebookincubator/v150gw/dedup"
)

// dedupCacheSize bounds how many recent channel-3 fingerprints are kept to
// suppress delivering a repeated unreliable-sequenced payload twice.
const dedupCacheSize = 64

// TxFunc sends an assembled SPRT packet. The engine never retains pkt after
// the call returns.
type TxFunc func(pkt []byte) error

// RxDeliveryFunc delivers a reassembled payload to the application on the
// given channel, at the given sequence number.
type RxDeliveryFunc func(channel Channel, seqNo uint16, payload []byte) error

// StatusFunc reports an asynchronous engine condition.
type StatusFunc func(status Status)

// Config configures a new Engine.
type Config struct {
	// SubsessionID is the subsession ID this engine stamps on transmitted
	// headers.
	SubsessionID byte
	// RxPayloadType is the payload type this engine expects on received
	// headers; anything else is rejected as not-SPRT.
	RxPayloadType byte
	// TxPayloadType is the payload type this engine stamps on transmitted
	// headers.
	TxPayloadType byte
	// ChannelParms sizes and times each of the four channels. The zero value
	// selects DefaultChannelParms().
	ChannelParms [NumChannels]ChannelParms

	TxFunc         TxFunc
	RxDeliveryFunc RxDeliveryFunc
	TimerFunc      TimerFunc
	StatusFunc     StatusFunc

	Logger *log.Entry
}

// Engine is an SPRT session: four transmission channels, their retry and
// reassembly state, and the ack-holdoff/keepalive timers that drive them.
// It is single-threaded - RxPacket, Tx and TimerExpired must not be called
// concurrently with each other.
type Engine struct {
	txSubsessionID byte
	rxSubsessionID int16 // -1 until the first packet is seen
	rxPayloadType  byte
	txPayloadType  byte

	rx struct {
		channels [NumChannels]rxChannel
	}
	tx struct {
		channels       [NumChannels]txChannel
		ackQueuePtr    int
		ackQueue       [3]uint16
		ta01Timeout    Timestamp
		ta01Timer      Timestamp
		immediateTimer bool
	}

	latestTimer Timestamp

	txFunc         TxFunc
	rxDeliveryFunc RxDeliveryFunc
	timerFunc      TimerFunc
	statusFunc     StatusFunc

	dedup *dedup.Cache

	log *log.Entry
}

// New validates cfg and builds an Engine ready to run.
func New(cfg Config) (*Engine, error) {
	if cfg.TxFunc == nil || cfg.RxDeliveryFunc == nil || cfg.TimerFunc == nil {
		return nil, fmt.Errorf("sprt: tx, rx delivery and timer callbacks are required")
	}

	parms := cfg.ChannelParms
	if parms == ([NumChannels]ChannelParms{}) {
		parms = defaultChannelParms
	}
	for i, p := range parms {
		lim := channelParmLimits[i]
		if p.PayloadBytes < lim.minPayloadBytes || p.PayloadBytes > lim.maxPayloadBytes {
			return nil, fmt.Errorf("sprt: channel %d payload bytes %d out of [%d,%d]: %w", i, p.PayloadBytes, lim.minPayloadBytes, lim.maxPayloadBytes, ErrOutOfRange)
		}
		if p.WindowSize < lim.minWindowSize || p.WindowSize > lim.maxWindowSize {
			return nil, fmt.Errorf("sprt: channel %d window size %d out of [%d,%d]: %w", i, p.WindowSize, lim.minWindowSize, lim.maxWindowSize, ErrOutOfRange)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger = logger.WithField("protocol", "SPRT")

	e := &Engine{
		txSubsessionID: cfg.SubsessionID,
		rxSubsessionID: -1,
		rxPayloadType:  cfg.RxPayloadType,
		txPayloadType:  cfg.TxPayloadType,
		txFunc:         cfg.TxFunc,
		rxDeliveryFunc: cfg.RxDeliveryFunc,
		timerFunc:      cfg.TimerFunc,
		statusFunc:     cfg.StatusFunc,
		dedup:          dedup.New(dedupCacheSize),
		log:            logger,
	}
	for i := 0; i < NumChannels; i++ {
		e.rx.channels[i] = newRxChannel(Channel(i), parms[i])
		e.tx.channels[i] = newTxChannel(Channel(i), parms[i])
	}
	// TA01 is session-global, not per-channel (see DESIGN.md Open
	// Questions); TC1's suggested value stands in for it.
	if t := parms[ChannelReliableSequenced].TimerTA01; t >= 0 {
		e.tx.ta01Timeout = Timestamp(t)
	}
	return e, nil
}

// buildAndSendPacket assembles a header (stamping any queued acks and
// clearing them), appends payload if any, hands the packet to TxFunc, and
// re-arms the timer.
func (e *Engine) buildAndSendPacket(channel Channel, seqNo uint16, payload []byte) int {
	var buf [MaxPacketBytes]byte
	acks := e.tx.ackQueue[:e.tx.ackQueuePtr]
	n := buildPacket(buf[:], e.txSubsessionID, e.txPayloadType, channel, seqNo, acks, e.rx.channels[channel].baseSequenceNo, payload)
	if e.tx.ackQueuePtr > 0 {
		e.tx.ackQueuePtr = 0
		e.tx.ta01Timer = 0
		e.log.Debug("TA01 cancelled")
	}
	e.log.WithField("channel", channel).Debugf("tx %d bytes", n)
	if e.txFunc != nil {
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		if err := e.txFunc(pkt); err != nil {
			e.log.WithError(err).Warning("tx packet handler failed")
		}
	}
	e.updateTimer()
	return n
}

// queueAcknowledgement adds (channel, seqNo) to the shared 3-slot ack
// queue, starting TA01 on the first entry and flushing the queue
// immediately - defensively, even past the normal 3-entry limit, which
// should never be reached in practice - on the third.
func (e *Engine) queueAcknowledgement(channel Channel, seqNo uint16) {
	if e.tx.ackQueuePtr >= 3 {
		e.log.Error("ack queue overflow")
		e.buildAndSendPacket(channel, 0, nil)
	}
	entry := (uint16(channel) << 14) | seqNo
	for i := 0; i < e.tx.ackQueuePtr; i++ {
		if e.tx.ackQueue[i] == entry {
			return
		}
	}
	e.tx.ackQueue[e.tx.ackQueuePtr] = entry
	e.tx.ackQueuePtr++
	switch {
	case e.tx.ackQueuePtr == 1:
		if e.timerFunc != nil {
			e.tx.ta01Timer = e.timerFunc(timestampForever) + e.tx.ta01Timeout
		}
		e.log.Debugf("TA01 set to %d", e.tx.ta01Timer)
		e.updateTimer()
	case e.tx.ackQueuePtr >= 3:
		e.buildAndSendPacket(channel, 0, nil)
	}
}

// deliver drains every reliable channel's reassembly ring as far as it is
// contiguous, honoring local busy/flow-control between every packet.
func (e *Engine) deliver() {
	for i := MinReliableChannel; i <= MaxReliableChannel; i++ {
		rc := &e.rx.channels[i]
		iptr := rc.buffIn
		for rc.buffLen[iptr] != lenSlotFree {
			if rc.busy {
				break
			}
			if e.rxDeliveryFunc != nil {
				e.rxDeliveryFunc(i, rc.baseSequenceNo, rc.buff[iptr][:rc.buffLen[iptr]])
			}
			rc.baseSequenceNo = (rc.baseSequenceNo + 1) & seqNoMask
			rc.buffLen[iptr] = lenSlotFree
			iptr++
			if iptr >= rc.windowSize {
				iptr = 0
			}
		}
		rc.buffIn = iptr
	}
}

// processAcknowledgements frees the tx slots named by acks and advances
// each channel's contiguous acked-out pointer as far as it now can.
func (e *Engine) processAcknowledgements(acks []ackEntry) {
	for _, a := range acks {
		if !a.channel.Reliable() {
			e.log.Debugf("ack received for unreliable channel %s", a.channel)
			continue
		}
		tc := &e.tx.channels[a.channel]
		diff := int((tc.queuingSequenceNo - a.seqNo) & seqNoMask)
		if diff >= tc.windowSize {
			e.log.Debugf("ack for %s seq %d is outside the current window", a.channel, a.seqNo)
			continue
		}
		slot := tc.buffIn - diff
		if slot < 0 {
			slot += tc.windowSize
		}
		if tc.buffLen[slot] == lenSlotFree {
			// Already freed by an earlier ack, or reused for a later
			// sequence number: a harmless late/duplicate ack.
			continue
		}
		tc.buffLen[slot] = lenSlotFree
		tc.tr03Timer[slot] = 0
		tc.deleteTimerQueueEntry(int8(slot))
		if slot == tc.buffAckedOut {
			ptr := tc.buffAckedOut
			for {
				ptr++
				if ptr >= tc.windowSize {
					ptr = 0
				}
				if ptr == tc.buffIn || tc.buffLen[ptr] != lenSlotFree {
					break
				}
			}
			tc.buffAckedOut = ptr
		}
	}
}
