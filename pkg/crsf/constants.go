// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package crsf decodes the CRSF (Crossfire) RC and telemetry serial protocol.
//
// A Decoder consumes one timestamped byte at a time and emits labelled events
// for the address, length, type, payload and CRC of every frame it recognises.
// The wire format is
//
//	[Address:1][Length:1][Type:1][Payload:Length-2][CRC:1]
//
// where Length counts the type, payload and CRC bytes, and the CRC-8 (0xD5)
// covers the type and payload bytes.
package crsf

// Frame size limits
const (
	MinFrameLength = 2  // type + CRC, zero-byte payload
	MaxFrameSize   = 64 // address + length + 62
	MaxPayloadSize = MaxFrameSize - 4
)

// CRC-8/DVB-S2 configuration
const (
	crcPolynomial = 0xD5
	crcInitial    = 0x00
)

// Device addresses
const (
	AddressBroadcast        = 0x00
	AddressUSB              = 0x10
	AddressBluetooth        = 0x12
	AddressTBSCorePNPPro    = 0x80
	AddressReserved1        = 0x8A
	AddressCurrentSensor    = 0xC0
	AddressGPS              = 0xC2
	AddressTBSBlackbox      = 0xC4
	AddressFlightController = 0xC8
	AddressReserved2        = 0xCA
	AddressRaceTag          = 0xCC
	AddressRadioTransmitter = 0xEA
	AddressCRSFReceiver     = 0xEC
	AddressCRSFTransmitter  = 0xEE
)

const (
	unknownFrameTypeName     = "Unrecognised"
	notDecodedPayloadMessage = "not decoded"
)

// Frame types - telemetry and RC data
const (
	FrameTypeGPS              = 0x02
	FrameTypeVario            = 0x07
	FrameTypeBatterySensor    = 0x08
	FrameTypeBaroAltitude     = 0x09
	FrameTypeHeartbeat        = 0x0B
	FrameTypeOpenTXSync       = 0x10
	FrameTypeLinkStatistics   = 0x14
	FrameTypeRCChannelsPacked = 0x16
	FrameTypeSubsetRCChannels = 0x17
	FrameTypeLinkRXID         = 0x1C
	FrameTypeLinkTXID         = 0x1D
	FrameTypeAttitude         = 0x1E
	FrameTypeFlightMode       = 0x21
)

// Frame types - extended header (destination + origin), 0x28 and up
const (
	FrameTypePingDevices        = 0x28
	FrameTypeDeviceInfo         = 0x29
	FrameTypeRequestSettings    = 0x2A
	FrameTypeParameterEntry     = 0x2B
	FrameTypeParameterRead      = 0x2C
	FrameTypeParameterWrite     = 0x2D
	FrameTypeCommand            = 0x32
	FrameTypeRadioID            = 0x3A
	FrameTypeMSPRequest         = 0x7A
	FrameTypeMSPResponse        = 0x7B
	FrameTypeMSPWrite           = 0x7C
	FrameTypeDisplayPortCommand = 0x7D
)

// RC channel layout
const (
	NumChannels     = 16
	ChannelBits     = 11
	ChannelMaxRaw   = 1<<ChannelBits - 1
	ChannelMinValid = 172  // 988us
	ChannelMaxValid = 1811 // 2012us
	ChannelCenter   = 992  // 1500us
	rcPayloadSize   = NumChannels * ChannelBits / 8
)

// State is the phase of the frame state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingLength
	StateAwaitingType
	StateCollectingPayload
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingLength:
		return "AwaitingLength"
	case StateAwaitingType:
		return "AwaitingType"
	case StateCollectingPayload:
		return "CollectingPayload"
	default:
		return "Unknown"
	}
}
