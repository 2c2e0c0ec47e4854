// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"encoding/binary"
	"fmt"
)

// EncodeFrame creates a complete wire-formatted CRSF frame.
// The CRC covers the type byte and payload.
func EncodeFrame(address, frameType uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, address, uint8(len(payload)+MinFrameLength), frameType)
	frame = append(frame, payload...)
	frame = append(frame, frameCRC(frameType, payload))
	return frame, nil
}

// MustEncodeFrame is EncodeFrame for payloads known to fit.
// Panics on encoding error.
func MustEncodeFrame(address, frameType uint8, payload []byte) []byte {
	frame, err := EncodeFrame(address, frameType, payload)
	if err != nil {
		panic(fmt.Sprintf("crsf: encode error: %v", err))
	}
	return frame
}

// EncodeRCChannels creates an RC channels packed frame addressed to the
// flight controller. Values above ChannelMaxRaw are truncated to 11 bits.
func EncodeRCChannels(channels [NumChannels]uint16) []byte {
	values := make([]uint32, NumChannels)
	for i, v := range channels {
		values[i] = uint32(v)
	}
	return MustEncodeFrame(AddressFlightController, FrameTypeRCChannelsPacked,
		PackLEBitfields(values, ChannelBits))
}

// NewPingDevices creates a Ping devices frame. Every device that receives it
// answers with Device info addressed to origin.
func NewPingDevices(destination, origin uint8) []byte {
	return MustEncodeFrame(destination, FrameTypePingDevices, []byte{destination, origin})
}

// EncodeDeviceInfo creates a Device info frame, the answer to Ping devices.
func EncodeDeviceInfo(info DeviceInfo) ([]byte, error) {
	payload := make([]byte, 0, 2+len(info.Name)+1+deviceInfoTailSize)
	payload = append(payload, info.Destination, info.Origin)
	payload = append(payload, info.Name...)
	payload = append(payload, 0)
	payload = binary.BigEndian.AppendUint32(payload, info.SerialNumber)
	payload = binary.BigEndian.AppendUint32(payload, info.HardwareID)
	payload = binary.BigEndian.AppendUint32(payload, info.FirmwareID)
	payload = append(payload, info.ParameterCount, info.ParameterVersion)
	return EncodeFrame(info.Destination, FrameTypeDeviceInfo, payload)
}
