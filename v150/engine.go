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
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/facebookincubator/v150gw/sprt"
	"github.com/facebookincubator/v150gw/sse"
)

// ErrWrongState is returned by the Tx* methods when the joint connection
// state doesn't meet the precondition V.150.1 places on sending that
// message (e.g. XID_XCHG before INIT, BREAK before CONNECT).
var ErrWrongState = errors.New("v150: message not valid in current connection state")

// RxOctetFunc delivers decoded payload from an information-stream message
// (I_RAW_OCTET, I_OCTET, I_CHAR_STAT, ...) to the host. dlci is -1 when the
// message carries no DLCI field. fill is the count of characters the far
// end's _CS sequence number implies were dropped in transit since the last
// _CS message (0 when none were), or -1 for message types that carry no
// sequence number to compute it from.
type RxOctetFunc func(payload []byte, dlci int, fill int)

// Config configures a new Engine. SPRT and SSE are required collaborators;
// Engine calls into them directly rather than owning a socket or a clock.
type Config struct {
	SPRT   *sprt.Engine
	SSE    *sse.Engine
	Status StatusFunc
	RxOctet RxOctetFunc
	Logger *log.Entry
}

// Engine is the V.150.1 message engine: capability exchange, modem
// negotiation, the joint connection state machine, and the nine
// information-stream encodings, layered on top of an sprt.Engine (control
// and information-stream framing) and an sse.Engine (media-state events).
type Engine struct {
	near *NearFar
	far  *NearFar

	jointState ConnectionState

	sprt   *sprt.Engine
	sse    *sse.Engine
	status StatusFunc
	rxOctet RxOctetFunc
	logger *log.Entry
}

// New builds an Engine around the given SPRT and SSE collaborators.
func New(cfg Config) (*Engine, error) {
	if cfg.SPRT == nil || cfg.SSE == nil {
		return nil, errors.New("v150: SPRT and SSE collaborators are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Engine{
		near:    NewNearCapabilities(),
		far:     NewFarCapabilities(),
		sprt:    cfg.SPRT,
		sse:     cfg.SSE,
		status:  cfg.Status,
		rxOctet: cfg.RxOctet,
		logger:  logger,
	}, nil
}

// Near returns the engine's declared local capabilities, for callers that
// need to customise them (e.g. declaring DLCI support) before the first
// TxInit.
func (e *Engine) Near() *NearFar { return e.near }

// Far returns the engine's view of the far endpoint's capabilities, as
// learned so far from received messages.
func (e *Engine) Far() *NearFar { return e.far }

// JointConnectionState returns the lower of near's and far's progress
// through capability exchange and modem negotiation.
func (e *Engine) JointConnectionState() ConnectionState { return e.jointState }

// SPRTEngine returns the underlying SPRT collaborator, for a host that needs
// to feed it received packets or drive its timer directly.
func (e *Engine) SPRTEngine() *sprt.Engine { return e.sprt }

// SSEEngine returns the underlying SSE collaborator, for a host that needs
// to feed it received packets or drive its timer directly.
func (e *Engine) SSEEngine() *sse.Engine { return e.sse }

func (e *Engine) report(status Status) {
	if e.status != nil {
		e.status(status)
	}
}

func (e *Engine) txControl(pkt []byte) error {
	return e.sprt.Tx(sprt.ChannelExpeditedReliableSequenced, pkt)
}

// TxInit sends INIT, advertising near's capabilities, and advances near's
// connection state to StateInited. The joint state only follows if far has
// already reached StateInited (e.g. this is the response half of a
// simultaneous INIT exchange).
func (e *Engine) TxInit() error {
	if err := e.txControl(encodeInit(e.near)); err != nil {
		return err
	}
	e.near.ConnectionState = StateInited
	if e.far.ConnectionState >= StateInited {
		e.jointState = StateInited
	}
	return nil
}

// TxXIDXchg sends XID_XCHG. It requires the far end to have declared
// XID profile exchange support in its INIT.
func (e *Engine) TxXIDXchg() error {
	if !e.far.XIDProfileExchangeSupported {
		return fmt.Errorf("v150: %w: far end does not support XID exchange", ErrWrongState)
	}
	return e.txControl(encodeXIDXchg(e.near))
}

// TxProfXchg sends PROF_XCHG.
func (e *Engine) TxProfXchg() error {
	return e.txControl(encodeProfXchg(e.near))
}

// TxJMInfo sends JM_INFO, announcing near's JM category information.
func (e *Engine) TxJMInfo() error {
	return e.txControl(encodeJMInfo(e.near))
}

// TxStartJM sends START_JM.
func (e *Engine) TxStartJM() error {
	return e.txControl(encodeStartJM())
}

// TxConnect sends CONNECT with near's final modem/compression selection,
// advancing near's connection state to StateConnected. The joint state only
// follows if far has already reached StateConnected.
func (e *Engine) TxConnect() error {
	if err := e.txControl(encodeConnect(e.near)); err != nil {
		return err
	}
	e.near.ConnectionState = StateConnected
	if e.far.ConnectionState >= StateConnected {
		e.jointState = StateConnected
	}
	return nil
}

// TxBreak sends BREAK.
func (e *Engine) TxBreak(source BreakSource, typ BreakType, durationMillis int) error {
	if e.jointState != StateConnected {
		return fmt.Errorf("v150: %w: BREAK requires CONNECTED", ErrWrongState)
	}
	return e.txControl(encodeBreak(source, typ, durationMillis))
}

// TxBreakAck sends BREAKACK.
func (e *Engine) TxBreakAck() error {
	if e.jointState != StateConnected {
		return fmt.Errorf("v150: %w: BREAKACK requires CONNECTED", ErrWrongState)
	}
	return e.txControl(encodeBreakAck())
}

// TxMrEvent sends MR_EVENT, updating near's (and, for PHYSUP, conditionally
// the joint) connection state.
func (e *Engine) TxMrEvent(id MrEventID) error {
	pkt, nearState := encodeMrEvent(e.near, e.far, id)
	if err := e.txControl(pkt); err != nil {
		return err
	}
	e.near.ConnectionState = nearState
	switch id {
	case MrEventIDRetrain, MrEventIDRateRenegotiation:
		e.jointState = nearState
	case MrEventIDPhysUp:
		if e.far.ConnectionState >= StatePhysUp {
			e.jointState = StatePhysUp
		}
	}
	return nil
}

// TxCleardown sends CLEARDOWN and resets near's connection state to
// StateIdle. Like v150_1_tx_cleardown, it does not reset jointState, and
// ProcessRxMsg leaves jointState unchanged on a received CLEARDOWN too.
func (e *Engine) TxCleardown(reason byte) error {
	if err := e.txControl(encodeCleardown(reason)); err != nil {
		return err
	}
	e.near.ConnectionState = StateIdle
	return nil
}

// TxInfoStream sends payload using near's currently selected
// information-stream message type (see SelectInfoStream).
func (e *Engine) TxInfoStream(payload []byte) error {
	id, err := selectInfoMsgType(e.near)
	if err != nil {
		return err
	}
	pkt, err := buildInfoStream(id, e.near, e.far, payload)
	if err != nil {
		return err
	}
	channel := sprt.ChannelReliableSequenced
	if id == MsgIDIRawOctet || id == MsgIDIOctet {
		channel = sprt.ChannelUnreliableSequenced
	}
	return e.sprt.Tx(channel, pkt)
}

// SelectInfoStream recomputes which information-stream message type near
// will use, from near.InfoMsgPreferences and near's *Available flags, which
// UpdateAvailability sets when far's INIT is processed.
func (e *Engine) SelectInfoStream() (MsgID, error) {
	return selectInfoMsgType(e.near)
}

// ProcessRxMsg dispatches a received V.150.1 message: it validates the
// channel it arrived on against Table B.3, rejects anything with the
// reserved high bit set, then routes by message ID.
func (e *Engine) ProcessRxMsg(channel sprt.Channel, buf []byte) error {
	if len(buf) == 0 {
		return ErrBadLength
	}
	if buf[0]&0x80 != 0 {
		return fmt.Errorf("v150: reserved bit set in message id byte")
	}
	id := MsgID(buf[0] & 0x7F)
	if !channelAllowed(id, channel) {
		return fmt.Errorf("v150: message %s not allowed on channel %s", id, channel)
	}
	switch id {
	case MsgIDNull:
		if len(buf) != 1 {
			return ErrBadLength
		}
		return nil
	case MsgIDInit:
		if err := decodeInit(e.far, buf); err != nil {
			return err
		}
		e.near.UpdateAvailability(e.far)
		e.far.ConnectionState = StateInited
		if e.near.ConnectionState >= StateInited {
			e.jointState = StateInited
		}
		e.report(stateChangedStatus(e.far))
		return nil
	case MsgIDXIDXchg:
		if e.jointState < StateInited {
			return fmt.Errorf("v150: %w: XID_XCHG before INIT", ErrWrongState)
		}
		return decodeXIDXchg(e.far, buf)
	case MsgIDProfXchg:
		if e.jointState < StateInited {
			return fmt.Errorf("v150: %w: PROF_XCHG before INIT", ErrWrongState)
		}
		return decodeProfXchg(e.far, buf)
	case MsgIDJMInfo:
		if e.jointState < StateInited {
			return fmt.Errorf("v150: %w: JM_INFO before INIT", ErrWrongState)
		}
		return decodeJMInfo(e.far, buf)
	case MsgIDStartJM:
		if e.jointState < StateInited {
			return fmt.Errorf("v150: %w: START_JM before INIT", ErrWrongState)
		}
		return decodeStartJM(buf)
	case MsgIDConnect:
		if e.jointState < StateInited {
			return fmt.Errorf("v150: %w: CONNECT before INIT", ErrWrongState)
		}
		if err := decodeConnect(e.far, buf); err != nil {
			return err
		}
		e.far.ConnectionState = StateConnected
		if e.near.ConnectionState >= StateConnected {
			e.jointState = StateConnected
		}
		e.report(stateChangedStatus(e.far))
		e.report(connectedStatus(e.far))
		return nil
	case MsgIDBreak:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: BREAK before CONNECT", ErrWrongState)
		}
		if err := decodeBreak(e.far, buf); err != nil {
			return err
		}
		e.report(breakReceivedStatus(e.far))
		return nil
	case MsgIDBreakAck:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: BREAKACK before CONNECT", ErrWrongState)
		}
		return decodeBreakAck(buf)
	case MsgIDMrEvent:
		if e.jointState < StateInited {
			return fmt.Errorf("v150: %w: MR_EVENT before INIT", ErrWrongState)
		}
		eventID, err := decodeMrEvent(e.far, buf)
		if err != nil {
			return err
		}
		switch eventID {
		case MrEventIDRetrain:
			e.far.ConnectionState = StateRetrain
			e.jointState = StateRetrain
			e.report(Status{Reason: StatusReasonRateRetrainReceived})
		case MrEventIDRateRenegotiation:
			e.far.ConnectionState = StateRateRenegotiation
			e.jointState = StateRateRenegotiation
			e.report(Status{Reason: StatusReasonRateRenegotiationReceived})
		case MrEventIDPhysUp:
			e.far.ConnectionState = StatePhysUp
			if e.near.ConnectionState >= StatePhysUp {
				e.jointState = StatePhysUp
			}
			e.report(stateChangedStatus(e.far))
			e.report(physUpStatus(e.far))
		}
		return nil
	case MsgIDCleardown:
		if e.jointState < StateInited {
			return fmt.Errorf("v150: %w: CLEARDOWN before INIT", ErrWrongState)
		}
		if err := decodeCleardown(e.far, buf); err != nil {
			return err
		}
		e.far.ConnectionState = StateIdle
		e.report(stateChangedStatus(e.far))
		return nil
	case MsgIDIRawOctet, MsgIDIRawBit:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: information stream before CONNECT", ErrWrongState)
		}
		payload, err := decodeIRawOctetOrBit(buf)
		if err != nil {
			return err
		}
		if e.rxOctet != nil {
			e.rxOctet(payload, -1, -1)
		}
		return nil
	case MsgIDIOctet:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: information stream before CONNECT", ErrWrongState)
		}
		payload, err := decodeIOctet(e.far, buf)
		if err != nil {
			return err
		}
		if e.rxOctet != nil && len(payload) > 0 {
			dlci := -1
			if e.far.IOctetWithDLCIAvailable {
				dlci = int(e.far.DLCI)
			}
			e.rxOctet(payload, dlci, -1)
		}
		return nil
	case MsgIDICharStat, MsgIDICharDyn:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: information stream before CONNECT", ErrWrongState)
		}
		_, payload, err := decodeICharStatOrDyn(buf)
		if err != nil {
			return err
		}
		if e.rxOctet != nil {
			e.rxOctet(payload, -1, -1)
		}
		return nil
	case MsgIDIFrame:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: information stream before CONNECT", ErrWrongState)
		}
		_, payload, err := decodeIFrame(buf)
		if err != nil {
			return err
		}
		if e.rxOctet != nil {
			e.rxOctet(payload, -1, -1)
		}
		return nil
	case MsgIDIOctetCS:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: information stream before CONNECT", ErrWrongState)
		}
		seqNo, payload, err := decodeIOctetCS(buf)
		if err != nil {
			return err
		}
		fill := octetCSFill(e.far, seqNo, len(payload))
		if e.rxOctet != nil {
			e.rxOctet(payload, -1, fill)
		}
		return nil
	case MsgIDICharStatCS, MsgIDICharDynCS:
		if e.jointState != StateConnected {
			return fmt.Errorf("v150: %w: information stream before CONNECT", ErrWrongState)
		}
		_, seqNo, payload, err := decodeICharCS(buf)
		if err != nil {
			return err
		}
		fill := octetCSFill(e.far, seqNo, len(payload))
		if e.rxOctet != nil {
			e.rxOctet(payload, -1, fill)
		}
		return nil
	default:
		e.logger.WithField("msg_id", int(id)).Debug("ignoring unknown or vendor-specific message")
		return nil
	}
}
