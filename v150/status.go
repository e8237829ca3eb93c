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

// StatusReason identifies why a Status report was raised.
type StatusReason int

const (
	StatusReasonStateChanged              StatusReason = iota
	StatusReasonDataFormatChanged
	StatusReasonBreakReceived
	StatusReasonRateRetrainReceived
	StatusReasonRateRenegotiationReceived
	StatusReasonBusyChanged
	StatusReasonPhysUp
	StatusReasonConnected
)

func (r StatusReason) String() string {
	switch r {
	case StatusReasonStateChanged:
		return "state changed"
	case StatusReasonDataFormatChanged:
		return "data format changed"
	case StatusReasonBreakReceived:
		return "break received"
	case StatusReasonRateRetrainReceived:
		return "rate retrain received"
	case StatusReasonRateRenegotiationReceived:
		return "rate renegotiation received"
	case StatusReasonBusyChanged:
		return "busy changed"
	case StatusReasonPhysUp:
		return "phys up"
	case StatusReasonConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Status is the report an Engine hands to its StatusFunc. Only the fields
// relevant to Reason are populated; the rest are zero value, the same way
// the reference's status_report only fills in the union branch matching its
// reason code.
type Status struct {
	Reason StatusReason

	// StatusReasonStateChanged
	FarState        ConnectionState
	CleardownReason byte

	// StatusReasonDataFormatChanged
	Bits     int
	Parity   Parity
	StopBits StopBits

	// StatusReasonBreakReceived
	BreakSource   BreakSource
	BreakType     BreakType
	BreakDuration int // milliseconds

	// StatusReasonBusyChanged
	LocalBusy bool
	FarBusy   bool

	// StatusReasonPhysUp / StatusReasonConnected
	Selmod byte
	Tdsr   uint16
	Rdsr   uint16
	Txsen  bool
	Txsr   SymbolRate
	Rxsen  bool
	Rxsr   SymbolRate

	// StatusReasonConnected only
	SelectedCompressionDirection CompressionDirection
	SelectedCompression          Compression
	SelectedErrorCorrection      ErrorCorrection
	CompressionTxDictionarySize  uint16
	CompressionRxDictionarySize  uint16
	CompressionTxStringLength    byte
	CompressionRxStringLength    byte
	CompressionTxHistorySize     uint16
	CompressionRxHistorySize     uint16
	IRawOctetAvailable           bool
	IRawBitAvailable             bool
	IFrameAvailable              bool
	IOctetWithDLCIAvailable      bool
	IOctetWithoutDLCIAvailable   bool
	ICharStatAvailable           bool
	ICharDynAvailable            bool
	IOctetCSAvailable            bool
	ICharStatCSAvailable         bool
	ICharDynCSAvailable          bool
}

// StatusFunc receives reports of state and parameter changes as the far
// end's messages are processed.
type StatusFunc func(Status)

// stateChangedStatus builds the StatusReasonStateChanged report from far.
func stateChangedStatus(far *NearFar) Status {
	return Status{
		Reason:          StatusReasonStateChanged,
		FarState:        far.ConnectionState,
		CleardownReason: far.CleardownReason,
	}
}

// breakReceivedStatus builds the StatusReasonBreakReceived report from far.
func breakReceivedStatus(far *NearFar) Status {
	return Status{
		Reason:        StatusReasonBreakReceived,
		BreakSource:   BreakSource(far.BreakSource),
		BreakType:     BreakType(far.BreakType),
		BreakDuration: int(far.BreakDuration) * 10,
	}
}

// connectedStatus builds the StatusReasonConnected report from far, mirroring
// status_report's V150_1_STATUS_REASON_CONNECTED branch.
func connectedStatus(far *NearFar) Status {
	return Status{
		Reason:                        StatusReasonConnected,
		Selmod:                        far.Selmod,
		Tdsr:                          far.Tdsr,
		Rdsr:                          far.Rdsr,
		SelectedCompressionDirection:  far.SelectedCompressionDirection,
		SelectedCompression:           far.SelectedCompression,
		SelectedErrorCorrection:       far.SelectedErrorCorrection,
		CompressionTxDictionarySize:   far.CompressionTxDictionarySize,
		CompressionRxDictionarySize:   far.CompressionRxDictionarySize,
		CompressionTxStringLength:     far.CompressionTxStringLength,
		CompressionRxStringLength:     far.CompressionRxStringLength,
		CompressionTxHistorySize:      far.CompressionTxHistorySize,
		CompressionRxHistorySize:      far.CompressionRxHistorySize,
		IRawOctetAvailable:            true,
		IRawBitAvailable:              far.IRawBitAvailable,
		IFrameAvailable:               far.IFrameAvailable,
		IOctetWithDLCIAvailable:       far.IOctetWithDLCIAvailable,
		IOctetWithoutDLCIAvailable:    far.IOctetWithoutDLCIAvailable,
		ICharStatAvailable:            far.ICharStatAvailable,
		ICharDynAvailable:             far.ICharDynAvailable,
		IOctetCSAvailable:             far.IOctetCSAvailable,
		ICharStatCSAvailable:          far.ICharStatCSAvailable,
		ICharDynCSAvailable:           far.ICharDynCSAvailable,
	}
}

// physUpStatus builds the StatusReasonPhysUp report from far.
func physUpStatus(far *NearFar) Status {
	return Status{
		Reason: StatusReasonPhysUp,
		Selmod: far.Selmod,
		Tdsr:   far.Tdsr,
		Rdsr:   far.Rdsr,
		Txsen:  far.Txsen,
		Txsr:   far.Txsr,
		Rxsen:  far.Rxsen,
		Rxsr:   far.Rxsr,
	}
}

// busyChangedStatus builds the StatusReasonBusyChanged report.
func busyChangedStatus(near, far *NearFar) Status {
	return Status{Reason: StatusReasonBusyChanged, LocalBusy: near.Busy, FarBusy: far.Busy}
}

// dataFormatChangedStatus unpacks far's CONNECT-style data-format-code byte
// the way status_report's V150_1_STATUS_REASON_DATA_FORMAT_CHANGED branch
// does: bits 7:5 hold (bits-5), bits 4:2 hold the parity code, bits 1:0 hold
// (stop_bits-1).
func dataFormatChangedStatus(far *NearFar) Status {
	code := far.DataFormatCode
	return Status{
		Reason:   StatusReasonDataFormatChanged,
		Bits:     5 + (code>>5)&0x03,
		Parity:   Parity((code >> 2) & 0x07),
		StopBits: StopBits(1 + code&0x03),
	}
}
