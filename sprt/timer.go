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

// Timestamp is a monotonic microsecond timestamp, or (when used as a
// duration) a number of microseconds. The host owns the clock; the engine
// only ever adds durations to values the host itself produced.
type Timestamp uint64

// timestampForever is used internally as "no deadline found yet" while
// scanning for the next timer to arm; never armed as an actual deadline.
const timestampForever = ^Timestamp(0)

// TimerFunc is the host's timer collaborator. Called with a deadline; it
// must arrange to call Engine.TimerExpired at or after that point, and
// returns the current time. Calling it with timestampForever is the
// engine's way of asking "what time is it" without arming anything.
type TimerFunc func(deadline Timestamp) Timestamp

// updateTimer finds the earliest pending deadline across the ack holdoff
// timer, the per-channel keepalive timers and the head of each channel's
// TR03 retry list, and asks the host to arm a callback for it.
func (e *Engine) updateTimer() {
	var shortest Timestamp
	if e.tx.immediateTimer {
		shortest = 1
	} else {
		shortest = timestampForever
		if e.tx.ta01Timer != 0 && e.tx.ta01Timer < shortest {
			shortest = e.tx.ta01Timer
		}
		for i := MinReliableChannel; i <= MaxReliableChannel; i++ {
			tc := &e.tx.channels[i]
			if tc.ta02Timer != 0 && tc.ta02Timer < shortest {
				shortest = tc.ta02Timer
			}
			if tc.firstInTime != freeSlotTag {
				if t := tc.tr03Timer[tc.firstInTime]; t != 0 && t < shortest {
					shortest = t
				}
			}
		}
		if shortest == timestampForever {
			shortest = 0
		}
	}
	e.log.Debugf("update timer to %d", shortest)
	e.latestTimer = shortest
	if e.timerFunc != nil {
		e.timerFunc(e.latestTimer)
	}
}

// TimerExpired drives retransmission and keepalive processing. The host
// calls it whenever the deadline most recently requested through TimerFunc
// is reached. now must be the host's current time, from the same clock
// TimerFunc uses.
func (e *Engine) TimerExpired(now Timestamp) {
	e.log.Debugf("timer expired at %d", now)
	if now < e.latestTimer {
		// Spurious early wakeup: ask for the same deadline again.
		if e.timerFunc != nil {
			e.timerFunc(e.latestTimer)
		}
		return
	}

	if e.tx.immediateTimer {
		e.tx.immediateTimer = false
		e.deliver()
	}

	sentAny := false
	for i := MinReliableChannel; i <= MaxReliableChannel; i++ {
		tc := &e.tx.channels[i]
		sentForChannel := e.retransmitUnacknowledged(i, now)
		if tc.ta02Timer != 0 {
			if tc.ta02Timer <= now && !sentForChannel {
				e.log.Debug("keepalive only packet sent")
				e.buildAndSendPacket(i, 0, nil)
				sentForChannel = true
			}
			if sentForChannel {
				tc.ta02Timer = now + tc.ta02Timeout
			}
		}
		if sentForChannel {
			sentAny = true
		}
	}

	if !sentAny && e.tx.ta01Timer != 0 && e.tx.ta01Timer <= now {
		if e.tx.ackQueuePtr > 0 {
			e.log.Debug("ack only packet sent")
			e.buildAndSendPacket(ChannelUnreliableUnsequenced, 0, nil)
		}
	}
	e.updateTimer()
}

// retransmitUnacknowledged walks channel's TR03 retry list, resending every
// slot whose deadline has passed and either requeuing it with a fresh
// deadline or reporting StatusExcessRetries once its tries are exhausted.
func (e *Engine) retransmitUnacknowledged(channel Channel, now Timestamp) bool {
	if !channel.Reliable() {
		return false
	}
	tc := &e.tx.channels[channel]
	sent := false
	for tc.firstInTime != freeSlotTag && tc.tr03Timer[tc.firstInTime] <= now {
		first := tc.firstInTime
		diff := tc.buffIn - int(first)
		if diff < 0 {
			diff += tc.windowSize
		}
		seqNo := tc.queuingSequenceNo - uint16(diff)
		if tc.buffLen[first] != lenSlotFree {
			e.buildAndSendPacket(channel, seqNo, tc.buff[first][:tc.buffLen[first]])
			sent = true
		} else {
			e.log.Errorf("empty slot scheduled %d %d", first, tc.buffLen[first])
		}
		tc.deleteTimerQueueEntry(first)
		tc.remaining[first]--
		if tc.remaining[first] <= 0 {
			if e.statusFunc != nil {
				e.statusFunc(StatusExcessRetries)
			}
		} else {
			tc.tr03Timer[first] += tc.tr03Timeout
			tc.addTimerQueueLastEntry(first)
		}
	}
	return sent
}
