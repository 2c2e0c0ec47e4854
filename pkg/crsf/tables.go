// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import "fmt"

var addressNames = map[uint8]string{
	AddressBroadcast:        "Broadcast",
	AddressUSB:              "USB Device",
	AddressBluetooth:        "Bluetooth Module",
	AddressTBSCorePNPPro:    "TBS Core PNP Pro",
	AddressReserved1:        "Reserved 1",
	AddressCurrentSensor:    "Current Sensor",
	AddressGPS:              "GPS",
	AddressTBSBlackbox:      "TBS Blackbox",
	AddressFlightController: "Flight Controller",
	AddressReserved2:        "Reserved 2",
	AddressRaceTag:          "Race Tag",
	AddressRadioTransmitter: "Radio Transmitter",
	AddressCRSFReceiver:     "CRSF Receiver",
	AddressCRSFTransmitter:  "CRSF Transmitter",
}

var frameTypeNames = map[uint8]string{
	FrameTypeGPS:                "GPS",
	FrameTypeVario:              "Vario",
	FrameTypeBatterySensor:      "Battery sensor",
	FrameTypeBaroAltitude:       "Baro altitude",
	FrameTypeHeartbeat:          "Heartbeat",
	FrameTypeOpenTXSync:         "OpenTX sync",
	FrameTypeLinkStatistics:     "Link statistics",
	FrameTypeRCChannelsPacked:   "RC channels packed",
	FrameTypeSubsetRCChannels:   "Subset RC channels packed",
	FrameTypeLinkRXID:           "Link RX ID",
	FrameTypeLinkTXID:           "Link TX ID",
	FrameTypeAttitude:           "Attitude",
	FrameTypeFlightMode:         "Flight mode",
	FrameTypePingDevices:        "Ping devices",
	FrameTypeDeviceInfo:         "Device info",
	FrameTypeRequestSettings:    "Request settings",
	FrameTypeParameterEntry:     "Parameter settings entry",
	FrameTypeParameterRead:      "Parameter read",
	FrameTypeParameterWrite:     "Parameter write",
	FrameTypeCommand:            "Command",
	FrameTypeRadioID:            "Radio ID",
	FrameTypeMSPRequest:         "MSP request",
	FrameTypeMSPResponse:        "MSP response",
	FrameTypeMSPWrite:           "MSP write",
	FrameTypeDisplayPortCommand: "Display port command",
}

// PayloadRange is an inclusive range of payload sizes in bytes, excluding the
// type and CRC bytes.
type PayloadRange struct {
	Min int
	Max int
}

// Contains reports whether n lies within the range.
func (r PayloadRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

func (r PayloadRange) String() string {
	if r.Min == r.Max {
		return fmt.Sprintf("%d", r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

var payloadRanges = map[uint8]PayloadRange{
	FrameTypeGPS:              {15, 15},
	FrameTypeVario:            {2, 2},
	FrameTypeBatterySensor:    {8, 8},
	FrameTypeBaroAltitude:     {2, 4},
	FrameTypeHeartbeat:        {2, 2},
	FrameTypeLinkStatistics:   {10, 10},
	FrameTypeRCChannelsPacked: {rcPayloadSize, rcPayloadSize},
	FrameTypeAttitude:         {6, 6},
	FrameTypeFlightMode:       {1, 16},
	FrameTypePingDevices:      {2, 2},
	FrameTypeDeviceInfo:       {17, MaxPayloadSize},
}

// IsKnownAddress reports whether a is in the address table. Only known
// addresses start a frame.
func IsKnownAddress(a uint8) bool {
	_, ok := addressNames[a]
	return ok
}

// AddressName returns the device role for an address.
func AddressName(a uint8) (string, bool) {
	name, ok := addressNames[a]
	return name, ok
}

// FormatAddress returns the device role for an address, or a numeric
// "Unknown device" label for addresses outside the table.
func FormatAddress(a uint64) string {
	if a <= 0xFF {
		if name, ok := addressNames[uint8(a)]; ok {
			return fmt.Sprintf("%s (0x%02X)", name, a)
		}
	}
	return fmt.Sprintf("Unknown device (0x%02X)", a)
}

// FrameTypeName returns the name of a frame type, or "Unrecognised".
func FrameTypeName(t uint8) (string, bool) {
	if name, ok := frameTypeNames[t]; ok {
		return name, true
	}
	return unknownFrameTypeName, false
}

// ExpectedPayloadRange returns the registered payload size range for a type.
func ExpectedPayloadRange(t uint8) (PayloadRange, bool) {
	r, ok := payloadRanges[t]
	return r, ok
}
