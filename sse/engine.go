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

package sse

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Timestamp is a point in time or a duration, in microseconds, the same
// convention the sprt package's timers use.
type Timestamp uint64

const timestampForever = ^Timestamp(0)

// noPreviousTimestamp is the sentinel previous_rx_timestamp value that
// cannot collide with a real RTP timestamp, used so the very first received
// packet is never mistaken for a repeat.
const noPreviousTimestamp = 0xFFFFFFFF

// ErrBadParameter is returned by SetReliabilityMethod when a tuning
// parameter falls outside V.150.1 C.4's allowed range.
var ErrBadParameter = errors.New("sse: reliability parameter out of range")

// TxFunc sends an encoded SSE packet. repeat is true for retransmissions
// triggered by a reliability timer, false for the original transmission
// (a host forwarding SSE over RTP typically only needs to bump the RTP
// sequence number and timestamp on an original, not a repeat).
type TxFunc func(repeat bool, pkt []byte) error

// DeliveryFunc is called for each distinct (non-duplicate) received SSE
// message.
type DeliveryFunc func(pkt Packet)

// TimerFunc arms the single SSE timer for the given absolute deadline (or
// reports the current time if deadline is the sentinel "no timer needed"
// value) and returns the current time, exactly like sprt.TimerFunc.
type TimerFunc func(deadline Timestamp) Timestamp

// StatusFunc receives a Status. Engine stores the StatusFunc it is given
// but never calls it.
type StatusFunc func(Status)

// Config configures a new Engine.
type Config struct {
	TxFunc       TxFunc
	DeliveryFunc DeliveryFunc
	TimerFunc    TimerFunc
	StatusFunc   StatusFunc
	Logger       *log.Entry
}

// Engine is one direction-independent SSE endpoint: it builds and sends
// messages on demand, retransmits them per the negotiated reliability
// scheme, and decodes and de-duplicates received ones.
type Engine struct {
	reliabilityMethod ReliabilityMethod

	repetitionCount    int
	repetitionInterval Timestamp
	repetitionTimer    Timestamp
	repetitionCounter  int

	ackN0Count    int
	ackT0Interval Timestamp
	ackT1Interval Timestamp
	ackCounterN0  int
	ackTimerT0    Timestamp
	ackTimerT1    Timestamp

	// Recovery timer/counter defaults from C.5.4.1, carried for API
	// completeness; nothing in this engine (or the reference it is ported
	// from) ever arms recoveryTimerT1/T2, so they read as permanently
	// disabled. See DESIGN.md.
	recoveryN         int
	recoveryT1        Timestamp
	recoveryT2        Timestamp
	recoveryTimerT1   Timestamp
	recoveryTimerT2   Timestamp
	recoveryCounterN  int

	forceResponse  bool
	immediateTimer bool
	latestTimer    Timestamp

	lastTxPkt            []byte
	previousRxTimestamp  uint32

	localMediaState  MediaState
	remoteMediaState MediaState
	remoteAck        MediaState

	txFunc       TxFunc
	deliveryFunc DeliveryFunc
	timerFunc    TimerFunc
	statusFunc   StatusFunc
	log          *log.Entry
}

// New creates an Engine with reliability defaulted to ReliabilityByRepetition
// per V.150.1 C.4.1, the scheme used whenever nothing else has been
// explicitly declared at call establishment.
func New(cfg Config) (*Engine, error) {
	if cfg.TxFunc == nil || cfg.DeliveryFunc == nil || cfg.TimerFunc == nil {
		return nil, fmt.Errorf("sse: TxFunc, DeliveryFunc and TimerFunc are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	e := &Engine{
		reliabilityMethod:   ReliabilityByRepetition,
		repetitionCount:     DefaultRepetitions - 1,
		repetitionInterval:  DefaultRepetitionInterval,
		ackN0Count:          DefaultAckN0,
		ackT0Interval:       DefaultAckT0,
		ackT1Interval:       DefaultAckT1,
		recoveryN:           DefaultRecoveryN,
		recoveryT1:          DefaultRecoveryT1,
		recoveryT2:          DefaultRecoveryT2,
		previousRxTimestamp: noPreviousTimestamp,
		txFunc:              cfg.TxFunc,
		deliveryFunc:        cfg.DeliveryFunc,
		timerFunc:           cfg.TimerFunc,
		statusFunc:          cfg.StatusFunc,
		log:                 logger,
	}
	return e, nil
}

// SetReliabilityMethod selects and tunes one of the reliability schemes of
// V.150.1/C.4. parm1/parm2/parm3 are interpreted per method: for
// ReliabilityByRepetition, parm1 is the total number of transmissions (2-10)
// and parm2 the interval between them in microseconds (10000-1000000);
// for ReliabilityByExplicitAck, parm1 is N0 (2-10), parm2 is T0 and parm3 is
// T1, both in microseconds (10000-1000000). ReliabilityNone and
// ReliabilityByRFC2198 ignore all three.
func (e *Engine) SetReliabilityMethod(method ReliabilityMethod, parm1, parm2, parm3 int) error {
	switch method {
	case ReliabilityNone, ReliabilityByRFC2198:
	case ReliabilityByRepetition:
		if parm1 < 2 || parm1 > 10 {
			return ErrBadParameter
		}
		if parm2 < 10000 || parm2 > 1000000 {
			return ErrBadParameter
		}
		// The actual number of repeats is one less than the total number of
		// transmissions.
		e.repetitionCount = parm1 - 1
		e.repetitionInterval = Timestamp(parm2)
	case ReliabilityByExplicitAck:
		if parm1 < 2 || parm1 > 10 {
			return ErrBadParameter
		}
		if parm2 < 10000 || parm2 > 1000000 {
			return ErrBadParameter
		}
		if parm3 < 10000 || parm3 > 1000000 {
			return ErrBadParameter
		}
		e.ackN0Count = parm1
		e.ackT0Interval = Timestamp(parm2)
		e.ackT1Interval = Timestamp(parm3)
	default:
		return ErrBadParameter
	}
	e.reliabilityMethod = method
	return nil
}

func (e *Engine) updateTimer() {
	var shortest Timestamp
	if e.immediateTimer {
		shortest = 1
	} else {
		shortest = timestampForever
		if e.ackTimerT0 != 0 && e.ackTimerT0 < shortest {
			shortest = e.ackTimerT0
		}
		if e.ackTimerT1 != 0 && e.ackTimerT1 < shortest {
			shortest = e.ackTimerT1
		}
		if e.repetitionTimer != 0 && e.repetitionTimer < shortest {
			shortest = e.repetitionTimer
		}
		if e.recoveryTimerT1 != 0 && e.recoveryTimerT1 < shortest {
			shortest = e.recoveryTimerT1
		}
		if e.recoveryTimerT2 != 0 && e.recoveryTimerT2 < shortest {
			shortest = e.recoveryTimerT2
		}
		if shortest == timestampForever {
			shortest = 0
		}
	}
	e.latestTimer = shortest
	e.timerFunc(shortest)
}

// sendPacket hands an encoded message to the host and arms whatever
// reliability bookkeeping the negotiated method needs.
func (e *Engine) sendPacket(pkt []byte) {
	if err := e.txFunc(false, pkt); err != nil {
		e.log.WithError(err).Warn("sse: tx failed")
	}
	switch e.reliabilityMethod {
	case ReliabilityByRepetition:
		e.lastTxPkt = append(e.lastTxPkt[:0], pkt...)
		now := e.timerFunc(timestampForever)
		e.repetitionTimer = now + e.repetitionInterval
		e.repetitionCounter = e.repetitionCount
		e.updateTimer()
	case ReliabilityByExplicitAck:
		e.lastTxPkt = append(e.lastTxPkt[:0], pkt...)
		now := e.timerFunc(timestampForever)
		e.ackCounterN0 = e.ackN0Count
		e.ackTimerT0 = now + e.ackT0Interval
		e.ackTimerT1 = now + e.ackT1Interval
		e.forceResponse = false
		e.updateTimer()
	}
}

// TxPacket builds and sends an SSE message declaring a new media state,
// with ric and ricinfo giving the reason for the change.
func (e *Engine) TxPacket(event MediaState, ric int, ricinfo uint16) error {
	buf := make([]byte, 7)
	pkt := Packet{Event: event, RIC: ric, RICInfo: ricinfo, ForceResponse: e.forceResponse}
	if e.reliabilityMethod == ReliabilityByExplicitAck {
		pkt.HasRemoteAck = true
		pkt.RemoteAck = e.remoteMediaState
	}
	n := EncodePacket(buf, pkt)
	e.sendPacket(buf[:n])
	e.localMediaState = event
	return nil
}

// RxPacket decodes a received SSE message broken out of an RTP packet.
// Repeats of the same timestamp (V.150.1 C.4.1: the RTP timestamp does not
// advance between redundant retransmissions of the same event) are silently
// dropped; everything else is handed to DeliveryFunc.
func (e *Engine) RxPacket(seqNo uint16, timestamp uint32, raw []byte) error {
	if e.previousRxTimestamp == timestamp {
		e.log.WithField("timestamp", timestamp).Debug("sse: repeat timestamp, ignoring")
		return nil
	}
	pkt, err := DecodePacket(raw)
	if err != nil {
		return err
	}
	e.previousRxTimestamp = timestamp
	if pkt.HasRemoteAck {
		e.remoteAck = pkt.RemoteAck
	}
	e.remoteMediaState = pkt.Event
	e.deliveryFunc(pkt)
	return nil
}

// TimerExpired drives the reliability-scheme timers; the host calls it with
// the current time whenever the deadline from the last TimerFunc call (or
// updateTimer call) arrives.
func (e *Engine) TimerExpired(now Timestamp) {
	if now < e.latestTimer {
		e.timerFunc(e.latestTimer)
		return
	}
	if e.immediateTimer {
		e.immediateTimer = false
	}
	if e.ackTimerT0 != 0 && e.ackTimerT0 <= now {
		if e.ackCounterN0 > 0 && e.localMediaState != e.remoteAck {
			if err := e.txFunc(true, e.lastTxPkt); err != nil {
				e.log.WithError(err).Warn("sse: retransmit failed")
			}
			e.ackCounterN0--
			e.ackTimerT0 = now + e.ackT0Interval
			e.updateTimer()
		}
	}
	if e.ackTimerT1 != 0 && e.ackTimerT1 <= now {
		if e.ackCounterN0 == 0 && e.localMediaState != e.remoteAck {
			if err := e.txFunc(true, e.lastTxPkt); err != nil {
				e.log.WithError(err).Warn("sse: retransmit failed")
			}
			e.ackTimerT1 = now + e.ackT1Interval
			e.updateTimer()
		}
	}
	if e.repetitionTimer != 0 && e.repetitionTimer <= now {
		if e.repetitionCounter > 1 {
			e.repetitionTimer += e.repetitionInterval
			e.updateTimer()
		} else {
			e.repetitionTimer = 0
		}
		e.repetitionCounter--
		if err := e.txFunc(true, e.lastTxPkt); err != nil {
			e.log.WithError(err).Warn("sse: retransmit failed")
		}
	}
	// Recovery timers T1/T2 are never armed (see the struct field
	// comments), so these branches never fire; they are kept so a future
	// caller of SetTimeout-style tuning has somewhere to hook in.
	if e.recoveryTimerT1 != 0 && e.recoveryTimerT1 <= now {
	}
	if e.recoveryTimerT2 != 0 && e.recoveryTimerT2 <= now {
	}
}

// SetForceResponse sets the Forced Response bit on the next message sent
// under the explicit-acknowledgement scheme, requiring the far end to reply
// even if its media state has not changed.
func (e *Engine) SetForceResponse(force bool) {
	e.forceResponse = force
}

// LocalMediaState returns the media state most recently sent.
func (e *Engine) LocalMediaState() MediaState { return e.localMediaState }

// RemoteMediaState returns the media state most recently received.
func (e *Engine) RemoteMediaState() MediaState { return e.remoteMediaState }

// RemoteAck returns the far end's last reported view of our media state,
// meaningful only under ReliabilityByExplicitAck.
func (e *Engine) RemoteAck() MediaState { return e.remoteAck }
