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

// Compression identifies the data-compression scheme negotiated in CONNECT,
// byte 2's high nibble.
type Compression byte

const (
	CompressionNone   Compression = 0
	CompressionV42bis Compression = 1
	CompressionV44    Compression = 2
	CompressionMNP5   Compression = 3
)

// CompressionDirection is CONNECT byte 1's low two bits.
type CompressionDirection byte

const (
	CompressDirNeitherWay CompressionDirection = 0
	CompressDirTxOnly     CompressionDirection = 1
	CompressDirRxOnly     CompressionDirection = 2
	CompressDirBothWays   CompressionDirection = 3
)

// ErrorCorrection identifies the error-correction protocol, CONNECT byte 2's
// low nibble and the XID_XCHG/PROF_XCHG "ecp" byte.
type ErrorCorrection byte

const (
	ErrorCorrectionNone    ErrorCorrection = 0
	ErrorCorrectionV42LAPM ErrorCorrection = 1
	ErrorCorrectionMNP     ErrorCorrection = 2
)

// SymbolRate is V150_1_SYMBOL_RATE_* (Table 15/V.150.1), carried in
// MR_EVENT(PHYSUP) and CONNECT.
type SymbolRate byte

// SymbolRateNull means the modulation in use has no defined symbol rate.
const SymbolRateNull SymbolRate = 0

// JM category indices (V.150.1 Table 5/T.40bis), used to key
// JMCategoryIDSeen and JMCategoryInfo.
const (
	JMCategoryCallFunction1       = 1
	JMCategoryModulationModes     = 2
	JMCategoryProtocols           = 3
	JMCategoryPSTNAccess          = 5
	JMCategoryPCMModemAvailability = 8
	JMCategoryExtension           = 9
)

// JM category info bits used with JMCategoryModulationModes.
const (
	JMModulationV34Available     = 0x001
	JMModulationV32V32bisAvailable = 0x002
	JMModulationV22V22bisAvailable = 0x004
	JMModulationV21Available     = 0x008
)

// JMProtocolV42LAPM is a JMCategoryProtocols info bit.
const JMProtocolV42LAPM = 0x001

// NearFar holds one endpoint's view of V.150.1 capabilities, physical-layer
// parameters, and negotiated state. An Engine keeps two: Near (what this
// endpoint declares) and Far (what the INIT/XID_XCHG/CONNECT/MR_EVENT
// messages from the other endpoint have told us). The *Available fields on
// Near are derived by ANDing Near's *Supported flags against Far's, except
// IOctetWithDLCIAvailable/IOctetWithoutDLCIAvailable, which are near-only
// (they reflect whether this endpoint's own DLCI choice applies, not a
// negotiation).
type NearFar struct {
	V42LapmSupported           bool
	V42AnnexASupported         bool
	V42bisSupported            bool
	V44Supported               bool
	Mnp5Supported              bool
	ECP                        ErrorCorrection
	NecrxchOption              bool
	EcrxchOption               bool
	XIDProfileExchangeSupported bool
	AsymmetricDataTypesSupported bool
	DLCISupported              bool

	IRawBitSupported   bool
	IRawBitAvailable   bool
	IFrameSupported    bool
	IFrameAvailable    bool
	ICharStatSupported bool
	ICharStatAvailable bool
	ICharDynSupported  bool
	ICharDynAvailable  bool
	IOctetCSSupported  bool
	IOctetCSAvailable  bool
	ICharStatCSSupported bool
	ICharStatCSAvailable bool
	ICharDynCSSupported  bool
	ICharDynCSAvailable  bool

	IOctetWithDLCIAvailable    bool
	IOctetWithoutDLCIAvailable bool

	V42bisP0 byte
	V42bisP1 uint16
	V42bisP2 byte
	V44C0    byte
	V44P0    byte
	V44P1T   uint16
	V44P1R   uint16
	V44P2T   byte
	V44P2R   byte
	V44P3T   uint16
	V44P3R   uint16

	CompressionTxDictionarySize uint16
	CompressionRxDictionarySize uint16
	CompressionTxStringLength   byte
	CompressionRxStringLength   byte
	CompressionTxHistorySize    uint16
	CompressionRxHistorySize    uint16

	JMCategoryIDSeen [16]bool
	JMCategoryInfo   [16]uint16

	SelectedCompressionDirection CompressionDirection
	SelectedCompression          Compression
	SelectedErrorCorrection      ErrorCorrection

	DLCI             uint16
	OctetCSNextSeqNo uint16
	DataFormatCode   int

	Selmod byte
	Txsen  bool
	Rxsen  bool
	Tdsr   uint16
	Rdsr   uint16
	Txsr   SymbolRate
	Rxsr   SymbolRate

	Busy             bool
	ConnectionState  ConnectionState
	CleardownReason  byte
	BreakSource      byte
	BreakType        byte
	BreakDuration    byte

	// InfoMsgPreferences is the ordered list select_info_msg_type walks,
	// terminated by the first negative entry. I_RAW_OCTET and I_OCTET are
	// always treated as available regardless of negotiation.
	InfoMsgPreferences [10]MsgID
}

// defaultInfoMsgPreferences is the priority order v150_1_init seeds: try the
// character-stream encodings before falling back to raw octets.
var defaultInfoMsgPreferences = [10]MsgID{
	MsgIDICharStatCS, MsgIDICharDynCS, MsgIDIOctetCS,
	MsgIDICharStat, MsgIDICharDyn, MsgIDIFrame, MsgIDIRawBit,
	MsgIDIOctet, MsgIDIRawOctet, -1,
}

// NewNearCapabilities returns the near-endpoint defaults v150_1_init seeds:
// V.42bis declared and preferred, a 7E1 character format, I_OCTET_CS the
// only optional information stream declared supported.
func NewNearCapabilities() *NearFar {
	nf := &NearFar{
		ECP:                ErrorCorrectionV42LAPM,
		V42LapmSupported:   true,
		V42bisSupported:    true,
		EcrxchOption:       true,
		IOctetCSSupported:  true,
		DataFormatCode:     int(DataBits7)<<6 | int(ParityEven)<<3 | int(StopBits1),
		InfoMsgPreferences: defaultInfoMsgPreferences,

		V42bisP0: 3,
		V42bisP1: 512,
		V42bisP2: 6,

		CompressionTxDictionarySize: 512,
		CompressionRxDictionarySize: 512,
		CompressionTxStringLength:   6,
		CompressionRxStringLength:   6,
	}
	nf.JMCategoryIDSeen[JMCategoryCallFunction1] = true
	nf.JMCategoryInfo[JMCategoryCallFunction1] = 0
	nf.JMCategoryIDSeen[JMCategoryModulationModes] = true
	nf.JMCategoryInfo[JMCategoryModulationModes] = JMModulationV34Available | JMModulationV32V32bisAvailable |
		JMModulationV22V22bisAvailable | JMModulationV21Available
	nf.JMCategoryIDSeen[JMCategoryProtocols] = true
	nf.JMCategoryInfo[JMCategoryProtocols] = JMProtocolV42LAPM
	nf.JMCategoryIDSeen[JMCategoryPSTNAccess] = true
	return nf
}

// NewFarCapabilities returns the zero-value far-endpoint record v150_1_init
// seeds: everything false/zero except DataFormatCode, which starts at -1 to
// mark "not yet told us" distinctly from a legitimate 7E1/0x00 code.
func NewFarCapabilities() *NearFar {
	return &NearFar{DataFormatCode: -1}
}

// DataBits, Parity and StopBits pack into NearFar.DataFormatCode the same
// way V.150.1 CONNECT's companion data-format-code byte does.
type DataBits byte

const (
	DataBits5 DataBits = 0
	DataBits6 DataBits = 1
	DataBits7 DataBits = 2
	DataBits8 DataBits = 3
)

type Parity byte

const (
	ParityNone  Parity = 0
	ParityOdd   Parity = 1
	ParityEven  Parity = 2
	ParityMark  Parity = 3
	ParitySpace Parity = 4
)

type StopBits byte

const (
	StopBits1   StopBits = 0
	StopBits1_5 StopBits = 1
	StopBits2   StopBits = 2
)

// UpdateAvailability recomputes near's *Available flags from near's own
// *Supported declarations ANDed against far's, the way v150_1_process_init
// does once an INIT has been received from the far end. IOctetWith/WithoutDLCIAvailable
// are near-only: they reflect this endpoint's own DLCISupported choice, not
// a negotiation with the far end.
func (near *NearFar) UpdateAvailability(far *NearFar) {
	near.IRawBitAvailable = near.IRawBitSupported && far.IRawBitSupported
	near.IFrameAvailable = near.IFrameSupported && far.IFrameSupported
	near.IOctetWithDLCIAvailable = near.DLCISupported
	near.IOctetWithoutDLCIAvailable = !near.DLCISupported
	near.ICharStatAvailable = near.ICharStatSupported && far.ICharStatSupported
	near.ICharDynAvailable = near.ICharDynSupported && far.ICharDynSupported
	near.IOctetCSAvailable = near.IOctetCSSupported && far.IOctetCSSupported
	near.ICharStatCSAvailable = near.ICharStatCSSupported && far.ICharStatCSSupported
	near.ICharDynCSAvailable = near.ICharDynCSSupported && far.ICharDynCSSupported
}
