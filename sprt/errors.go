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

import "errors"

var (
	// ErrPacketTooShort is returned when a packet is shorter than its header
	// framing claims.
	ErrPacketTooShort = errors.New("sprt: packet too short")
	// ErrNotSPRT is returned when the header extension or reserved bits are
	// set, meaning the buffer is not an SPRT packet at all.
	ErrNotSPRT = errors.New("sprt: header extension or reserved bit set")
	// ErrBadChannel is returned for a channel number outside 0-3, or outside
	// 1-2 where only the reliable channels apply.
	ErrBadChannel = errors.New("sprt: invalid channel")
	// ErrBadPayloadLength is returned when a Tx payload is empty or longer
	// than the channel's negotiated maximum.
	ErrBadPayloadLength = errors.New("sprt: payload length out of range")
	// ErrWindowFull is returned by Tx on a reliable channel whose retry
	// window has no free slot.
	ErrWindowFull = errors.New("sprt: reliable channel window full")
	// ErrOutOfRange is returned by the channel parameter accessors when a
	// requested value falls outside V.150.1 Table B.2's limits.
	ErrOutOfRange = errors.New("sprt: parameter out of range")
)

// Status mirrors the sprt_status_e status codes the engine reports through
// StatusFunc.
type Status int

const (
	StatusOK Status = iota
	StatusExcessRetries
	StatusSubsessionChanged
	StatusOutOfSequence
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusExcessRetries:
		return "excess retries"
	case StatusSubsessionChanged:
		return "subsession changed"
	case StatusOutOfSequence:
		return "out of sequence"
	default:
		return "unknown"
	}
}
