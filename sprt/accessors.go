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

import "fmt"

// TimerID names one of the three SPRT timers.
type TimerID int

const (
	TimerTA01 TimerID = iota
	TimerTA02
	TimerTR03
)

// SetLocalBusy marks the local end of channel as busy (congested) or not,
// and reports the previous state. Clearing busy schedules an immediate
// delivery pass, in case packets piled up in the reassembly buffer while
// busy was set.
func (e *Engine) SetLocalBusy(channel Channel, busy bool) (bool, error) {
	if !channel.Reliable() {
		return false, ErrBadChannel
	}
	rc := &e.rx.channels[channel]
	prev := rc.busy
	rc.busy = busy
	if prev && !busy {
		e.tx.immediateTimer = true
		e.updateTimer()
	}
	return prev, nil
}

// GetFarBusy reports the far end's busy status for channel, as last
// mirrored from it. SPRT's own packet framing carries no busy bit and
// nothing in this package sets the flag, so it is always false.
func (e *Engine) GetFarBusy(channel Channel) bool {
	return e.tx.channels[channel].busy
}

// SetLocalWindowSize sets the receive-side window size for a reliable
// channel; it must lie within V.150.1 Table B.2's limits for that channel.
func (e *Engine) SetLocalWindowSize(channel Channel, size int) error {
	if !channel.Reliable() {
		return ErrBadChannel
	}
	lim := channelParmLimits[channel]
	if size < int(lim.minWindowSize) || size > int(lim.maxWindowSize) {
		return ErrOutOfRange
	}
	e.rx.channels[channel].windowSize = size
	return nil
}

// LocalWindowSize returns the current receive-side window size for a
// reliable channel.
func (e *Engine) LocalWindowSize(channel Channel) (int, error) {
	if !channel.Reliable() {
		return 0, ErrBadChannel
	}
	return e.rx.channels[channel].windowSize, nil
}

// SetLocalPayloadBytes sets the maximum payload this engine will accept on
// channel.
func (e *Engine) SetLocalPayloadBytes(channel Channel, n int) error {
	if int(channel) < 0 || int(channel) >= NumChannels {
		return ErrBadChannel
	}
	lim := channelParmLimits[channel]
	if n < int(lim.minPayloadBytes) || n > int(lim.maxPayloadBytes) {
		return ErrOutOfRange
	}
	e.rx.channels[channel].maxPayloadBytes = n
	return nil
}

// LocalPayloadBytes returns the current maximum payload this engine will
// accept on channel.
func (e *Engine) LocalPayloadBytes(channel Channel) (int, error) {
	if int(channel) < 0 || int(channel) >= NumChannels {
		return 0, ErrBadChannel
	}
	return e.rx.channels[channel].maxPayloadBytes, nil
}

// SetLocalMaxTries sets how many times this engine will (re)send a packet
// on a reliable channel before reporting StatusExcessRetries.
func (e *Engine) SetLocalMaxTries(channel Channel, tries int) error {
	if !channel.Reliable() {
		return ErrBadChannel
	}
	if tries < MinMaxTries || tries > MaxMaxTries {
		return ErrOutOfRange
	}
	e.tx.channels[channel].maxTries = tries
	return nil
}

// LocalMaxTries returns the current retry budget for a reliable channel.
func (e *Engine) LocalMaxTries(channel Channel) (int, error) {
	if !channel.Reliable() {
		return 0, ErrBadChannel
	}
	return e.tx.channels[channel].maxTries, nil
}

// SetFarPayloadBytes records the far end's advertised maximum payload for
// channel, so Tx can enforce it.
func (e *Engine) SetFarPayloadBytes(channel Channel, n int) error {
	if int(channel) < 0 || int(channel) >= NumChannels {
		return ErrBadChannel
	}
	lim := channelParmLimits[channel]
	if n < int(lim.minPayloadBytes) || n > int(lim.maxPayloadBytes) {
		return ErrOutOfRange
	}
	e.tx.channels[channel].maxPayloadBytes = n
	return nil
}

// FarPayloadBytes returns the far end's advertised maximum payload for
// channel.
func (e *Engine) FarPayloadBytes(channel Channel) (int, error) {
	if int(channel) < 0 || int(channel) >= NumChannels {
		return 0, ErrBadChannel
	}
	return e.tx.channels[channel].maxPayloadBytes, nil
}

// SetFarWindowSize records the far end's advertised window size for a
// reliable channel, so the retry/ack bookkeeping matches what it actually
// has buffered.
func (e *Engine) SetFarWindowSize(channel Channel, size int) error {
	if !channel.Reliable() {
		return ErrBadChannel
	}
	lim := channelParmLimits[channel]
	if size < int(lim.minWindowSize) || size > int(lim.maxWindowSize) {
		return ErrOutOfRange
	}
	e.tx.channels[channel].windowSize = size
	return nil
}

// FarWindowSize returns the far end's advertised window size for a
// reliable channel.
func (e *Engine) FarWindowSize(channel Channel) (int, error) {
	if !channel.Reliable() {
		return 0, ErrBadChannel
	}
	return e.tx.channels[channel].windowSize, nil
}

// SetTimeout sets one of the three SPRT timers. TA01 is session-global, so
// channel is ignored for it beyond basic range validation; TA02 and TR03
// apply only to the reliable channels.
func (e *Engine) SetTimeout(channel Channel, timer TimerID, timeout Timestamp) error {
	switch timer {
	case TimerTA01:
		if int(channel) < 0 || int(channel) >= NumChannels {
			return ErrBadChannel
		}
		e.tx.ta01Timeout = timeout
	case TimerTA02:
		if !channel.Reliable() {
			return ErrBadChannel
		}
		e.tx.channels[channel].ta02Timeout = timeout
	case TimerTR03:
		if !channel.Reliable() {
			return ErrBadChannel
		}
		e.tx.channels[channel].tr03Timeout = timeout
	default:
		return fmt.Errorf("sprt: unknown timer %d", timer)
	}
	return nil
}

// Timeout returns the current value of one of the three SPRT timers.
func (e *Engine) Timeout(channel Channel, timer TimerID) (Timestamp, error) {
	switch timer {
	case TimerTA01:
		if int(channel) < 0 || int(channel) >= NumChannels {
			return 0, ErrBadChannel
		}
		return e.tx.ta01Timeout, nil
	case TimerTA02:
		if !channel.Reliable() {
			return 0, ErrBadChannel
		}
		return e.tx.channels[channel].ta02Timeout, nil
	case TimerTR03:
		if !channel.Reliable() {
			return 0, ErrBadChannel
		}
		return e.tx.channels[channel].tr03Timeout, nil
	default:
		return 0, fmt.Errorf("sprt: unknown timer %d", timer)
	}
}
