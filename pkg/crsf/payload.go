// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"bytes"
	"fmt"
	"strings"
)

// Payload is a decoded frame payload.
type Payload interface {
	fmt.Stringer
}

// DecodePayload interprets the payload of a frame of the given type. Types
// without a published layout decode to NotDecoded, which is not an error.
func DecodePayload(frameType uint8, payload []byte, unit ChannelUnit) (Payload, error) {
	switch frameType {
	case FrameTypeBatterySensor:
		return decodeBatterySensor(payload)
	case FrameTypeLinkStatistics:
		return decodeLinkStatistics(payload)
	case FrameTypeRCChannelsPacked:
		return decodeRCChannels(payload, unit)
	case FrameTypeAttitude:
		return decodeAttitude(payload)
	case FrameTypeFlightMode:
		return decodeFlightMode(payload), nil
	case FrameTypeGPS:
		return decodeGPS(payload)
	case FrameTypeHeartbeat:
		return decodeHeartbeat(payload)
	case FrameTypePingDevices:
		return decodePingDevices(payload)
	case FrameTypeDeviceInfo:
		return decodeDeviceInfo(payload)
	default:
		return NotDecoded{FrameType: frameType}, nil
	}
}

func need(payload []byte, n int) error {
	if len(payload) < n {
		return truncated(n, len(payload))
	}
	return nil
}

//////////////////////////////////////////////////////////////
// Battery sensor (0x08)
//////////////////////////////////////////////////////////////

// BatterySensor is a battery telemetry reading.
type BatterySensor struct {
	Voltage   float64 // V
	Current   float64 // A
	Capacity  uint32  // mAh drawn
	Remaining uint8   // percent
}

func decodeBatterySensor(p []byte) (Payload, error) {
	if err := need(p, 8); err != nil {
		return nil, err
	}
	return BatterySensor{
		Voltage:   float64(BEUint(p[0:2], 16)) * 0.1,
		Current:   float64(BEUint(p[2:4], 16)) * 0.1,
		Capacity:  uint32(BEUint(p[4:7], 24)),
		Remaining: p[7],
	}, nil
}

func (b BatterySensor) String() string {
	return fmt.Sprintf("Voltage: %.1f V, Current: %.1f A, Capacity: %d mAh, Remaining: %d%%",
		b.Voltage, b.Current, b.Capacity, b.Remaining)
}

//////////////////////////////////////////////////////////////
// Link statistics (0x14)
//////////////////////////////////////////////////////////////

// txPowerLevels maps the uplink TX power index to milliwatts.
var txPowerLevels = []int{0, 10, 25, 100, 500, 1000, 2000, 250, 50}

// LinkStatistics is the radio link quality report. RSSI values are magnitudes
// of negative dBm readings.
type LinkStatistics struct {
	UplinkRSSI1         uint8
	UplinkRSSI2         uint8
	UplinkLinkQuality   uint8
	UplinkSNR           int8
	ActiveAntenna       uint8
	RFMode              uint8
	UplinkTXPowerIndex  uint8
	DownlinkRSSI        uint8
	DownlinkLinkQuality uint8
	DownlinkSNR         int8
}

func decodeLinkStatistics(p []byte) (Payload, error) {
	if err := need(p, 10); err != nil {
		return nil, err
	}
	return LinkStatistics{
		UplinkRSSI1:         p[0],
		UplinkRSSI2:         p[1],
		UplinkLinkQuality:   p[2],
		UplinkSNR:           int8(BEInt(p[3:4], 8)),
		ActiveAntenna:       p[4],
		RFMode:              p[5],
		UplinkTXPowerIndex:  p[6],
		DownlinkRSSI:        p[7],
		DownlinkLinkQuality: p[8],
		DownlinkSNR:         int8(BEInt(p[9:10], 8)),
	}, nil
}

// UplinkTXPower returns the uplink transmit power in milliwatts.
func (l LinkStatistics) UplinkTXPower() (int, bool) {
	if int(l.UplinkTXPowerIndex) >= len(txPowerLevels) {
		return 0, false
	}
	return txPowerLevels[l.UplinkTXPowerIndex], true
}

func (l LinkStatistics) String() string {
	power := fmt.Sprintf("unknown (%d)", l.UplinkTXPowerIndex)
	if mw, ok := l.UplinkTXPower(); ok {
		power = fmt.Sprintf("%d mW", mw)
	}
	return fmt.Sprintf("Uplink RSSI 1: -%ddB, Uplink RSSI 2: -%ddB, Uplink Link Quality: %d%%, "+
		"Uplink SNR: %ddB, Active Antenna: %d, RF Mode: %d, Uplink TX Power: %s, "+
		"Downlink RSSI: -%ddB, Downlink Link Quality: %d%%, Downlink SNR: %ddB",
		l.UplinkRSSI1, l.UplinkRSSI2, l.UplinkLinkQuality, l.UplinkSNR, l.ActiveAntenna,
		l.RFMode, power, l.DownlinkRSSI, l.DownlinkLinkQuality, l.DownlinkSNR)
}

//////////////////////////////////////////////////////////////
// RC channels packed (0x16)
//////////////////////////////////////////////////////////////

// RCChannels holds the 16 raw 11-bit channel values of an RC frame.
type RCChannels struct {
	Raw  [NumChannels]uint16
	Unit ChannelUnit
}

// ChannelMicroseconds converts a raw channel value to a pulse width in
// microseconds.
func ChannelMicroseconds(raw uint16) int {
	return int(raw)*1024/1639 + 881
}

func decodeRCChannels(p []byte, unit ChannelUnit) (Payload, error) {
	if err := need(p, rcPayloadSize); err != nil {
		return nil, err
	}
	ch := RCChannels{Unit: unit}
	for i := range ch.Raw {
		ch.Raw[i] = uint16(LEBitfield(p, i*ChannelBits, ChannelBits))
	}
	return ch, nil
}

// Microseconds returns all channels converted to microseconds.
func (c RCChannels) Microseconds() [NumChannels]int {
	var us [NumChannels]int
	for i, raw := range c.Raw {
		us[i] = ChannelMicroseconds(raw)
	}
	return us
}

func (c RCChannels) String() string {
	parts := make([]string, NumChannels)
	for i, raw := range c.Raw {
		us := ChannelMicroseconds(raw)
		switch c.Unit {
		case ChannelUnitMicroseconds:
			parts[i] = fmt.Sprintf("CH%d: %d us", i+1, us)
		case ChannelUnitDigital:
			parts[i] = fmt.Sprintf("CH%d: %d", i+1, raw)
		default:
			parts[i] = fmt.Sprintf("CH%d: %d (%d us)", i+1, raw, us)
		}
	}
	return strings.Join(parts, ", ")
}

//////////////////////////////////////////////////////////////
// Attitude (0x1E)
//////////////////////////////////////////////////////////////

// Attitude is the craft orientation in radians.
type Attitude struct {
	Pitch float64
	Roll  float64
	Yaw   float64
}

func decodeAttitude(p []byte) (Payload, error) {
	if err := need(p, 6); err != nil {
		return nil, err
	}
	return Attitude{
		Pitch: float64(BEInt(p[0:2], 16)) / 10000,
		Roll:  float64(BEInt(p[2:4], 16)) / 10000,
		Yaw:   float64(BEInt(p[4:6], 16)) / 10000,
	}, nil
}

func (a Attitude) String() string {
	return fmt.Sprintf("Pitch: %.4f rad, Roll: %.4f rad, Yaw: %.4f rad", a.Pitch, a.Roll, a.Yaw)
}

//////////////////////////////////////////////////////////////
// Flight mode (0x21)
//////////////////////////////////////////////////////////////

// FlightMode is the flight controller's mode string. A trailing '*' on the
// wire marks the craft as disarmed and is not part of Mode.
type FlightMode struct {
	Mode  string
	Armed bool
}

func decodeFlightMode(p []byte) Payload {
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	mode := string(p)
	if strings.HasSuffix(mode, "*") {
		return FlightMode{Mode: strings.TrimSuffix(mode, "*"), Armed: false}
	}
	return FlightMode{Mode: mode, Armed: true}
}

func (f FlightMode) String() string {
	if f.Armed {
		return fmt.Sprintf("Flight mode: %s (armed)", f.Mode)
	}
	return fmt.Sprintf("Flight mode: %s (disarmed)", f.Mode)
}

//////////////////////////////////////////////////////////////
// GPS (0x02)
//////////////////////////////////////////////////////////////

// GPS is a position fix.
type GPS struct {
	Latitude    float64 // degrees
	Longitude   float64 // degrees
	GroundSpeed float64 // km/h
	Heading     float64 // degrees
	Altitude    int     // m
	Satellites  uint8
}

func decodeGPS(p []byte) (Payload, error) {
	if err := need(p, 15); err != nil {
		return nil, err
	}
	return GPS{
		Latitude:    float64(BEInt(p[0:4], 32)) / 1e7,
		Longitude:   float64(BEInt(p[4:8], 32)) / 1e7,
		GroundSpeed: float64(BEUint(p[8:10], 16)) / 10,
		Heading:     float64(BEUint(p[10:12], 16)) / 100,
		Altitude:    int(BEUint(p[12:14], 16)) - 1000,
		Satellites:  p[14],
	}, nil
}

func (g GPS) String() string {
	return fmt.Sprintf("Lat: %.7f, Lon: %.7f, Speed: %.1f km/h, Heading: %.2f deg, Alt: %d m, Sats: %d",
		g.Latitude, g.Longitude, g.GroundSpeed, g.Heading, g.Altitude, g.Satellites)
}

//////////////////////////////////////////////////////////////
// Heartbeat (0x0B)
//////////////////////////////////////////////////////////////

// Heartbeat carries the address of the device sending it.
type Heartbeat struct {
	Origin uint16
}

func decodeHeartbeat(p []byte) (Payload, error) {
	if err := need(p, 2); err != nil {
		return nil, err
	}
	return Heartbeat{Origin: uint16(BEUint(p[0:2], 16))}, nil
}

func (h Heartbeat) String() string {
	return "Origin: " + FormatAddress(uint64(h.Origin))
}

//////////////////////////////////////////////////////////////
// Ping devices (0x28)
//////////////////////////////////////////////////////////////

// PingDevices asks every device on the bus to answer with Device info.
type PingDevices struct {
	Destination uint8
	Origin      uint8
}

func decodePingDevices(p []byte) (Payload, error) {
	if err := need(p, 2); err != nil {
		return nil, err
	}
	return PingDevices{Destination: p[0], Origin: p[1]}, nil
}

func (pd PingDevices) String() string {
	return fmt.Sprintf("Destination: %s, Origin: %s",
		FormatAddress(uint64(pd.Destination)), FormatAddress(uint64(pd.Origin)))
}

//////////////////////////////////////////////////////////////
// Device info (0x29)
//////////////////////////////////////////////////////////////

const deviceInfoTailSize = 14 // serial + hardware id + firmware id + 2 parameter bytes

// DeviceInfo identifies a device answering a ping.
type DeviceInfo struct {
	Destination      uint8
	Origin           uint8
	Name             string
	SerialNumber     uint32
	HardwareID       uint32
	FirmwareID       uint32
	ParameterCount   uint8
	ParameterVersion uint8
}

func decodeDeviceInfo(p []byte) (Payload, error) {
	if err := need(p, 3); err != nil {
		return nil, err
	}
	nul := bytes.IndexByte(p[2:], 0)
	if nul < 0 {
		return nil, ErrUnterminatedString
	}
	tail := p[2+nul+1:]
	if len(tail) < deviceInfoTailSize {
		return nil, fmt.Errorf("device info after name: %w", truncated(deviceInfoTailSize, len(tail)))
	}
	return DeviceInfo{
		Destination:      p[0],
		Origin:           p[1],
		Name:             string(p[2 : 2+nul]),
		SerialNumber:     uint32(BEUint(tail[0:4], 32)),
		HardwareID:       uint32(BEUint(tail[4:8], 32)),
		FirmwareID:       uint32(BEUint(tail[8:12], 32)),
		ParameterCount:   tail[12],
		ParameterVersion: tail[13],
	}, nil
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("Destination: %s, Origin: %s, Name: %q, Parameters: %d (version %d)",
		FormatAddress(uint64(d.Destination)), FormatAddress(uint64(d.Origin)),
		d.Name, d.ParameterCount, d.ParameterVersion)
}

//////////////////////////////////////////////////////////////
// Everything else
//////////////////////////////////////////////////////////////

// NotDecoded stands in for payloads of types without a published layout.
type NotDecoded struct {
	FrameType uint8
}

func (NotDecoded) String() string {
	return notDecodedPayloadMessage
}
