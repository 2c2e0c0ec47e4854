// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDecodePayload_BatterySensor(t *testing.T) {
	p, err := DecodePayload(FrameTypeBatterySensor, []byte{0x00, 0x7E, 0x00, 0x0F, 0x00, 0x04, 0xB0, 0x57}, DefaultChannelUnit)
	require.NoError(t, err)

	b := p.(BatterySensor)
	assert.InDelta(t, 12.6, b.Voltage, 1e-9)
	assert.InDelta(t, 1.5, b.Current, 1e-9)
	assert.Equal(t, uint32(1200), b.Capacity)
	assert.Equal(t, uint8(87), b.Remaining)
	assert.Equal(t, "Voltage: 12.6 V, Current: 1.5 A, Capacity: 1200 mAh, Remaining: 87%", b.String())
}

func TestDecodePayload_LinkStatistics(t *testing.T) {
	p, err := DecodePayload(FrameTypeLinkStatistics, []byte{0x1E, 0x20, 0x64, 0xF6, 0x00, 0x02, 0x03, 0x28, 0x64, 0x05}, DefaultChannelUnit)
	require.NoError(t, err)

	want := LinkStatistics{
		UplinkRSSI1:         30,
		UplinkRSSI2:         32,
		UplinkLinkQuality:   100,
		UplinkSNR:           -10,
		ActiveAntenna:       0,
		RFMode:              2,
		UplinkTXPowerIndex:  3,
		DownlinkRSSI:        40,
		DownlinkLinkQuality: 100,
		DownlinkSNR:         5,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("LinkStatistics mismatch (-want +got):\n%s", diff)
	}

	mw, ok := want.UplinkTXPower()
	assert.True(t, ok)
	assert.Equal(t, 100, mw)
	assert.Equal(t, "Uplink RSSI 1: -30dB, Uplink RSSI 2: -32dB, Uplink Link Quality: 100%, "+
		"Uplink SNR: -10dB, Active Antenna: 0, RF Mode: 2, Uplink TX Power: 100 mW, "+
		"Downlink RSSI: -40dB, Downlink Link Quality: 100%, Downlink SNR: 5dB", p.String())
}

func TestLinkStatistics_UnknownTXPower(t *testing.T) {
	l := LinkStatistics{UplinkTXPowerIndex: 42}
	_, ok := l.UplinkTXPower()
	assert.False(t, ok)
	assert.Contains(t, l.String(), "Uplink TX Power: unknown (42)")
}

func TestDecodePayload_Attitude(t *testing.T) {
	p, err := DecodePayload(FrameTypeAttitude, mustHex(t, "fb2e162e7ab7"), DefaultChannelUnit)
	require.NoError(t, err)

	a := p.(Attitude)
	assert.InDelta(t, -0.1234, a.Pitch, 1e-9)
	assert.InDelta(t, 0.5678, a.Roll, 1e-9)
	assert.InDelta(t, 3.1415, a.Yaw, 1e-9)
	assert.Equal(t, "Pitch: -0.1234 rad, Roll: 0.5678 rad, Yaw: 3.1415 rad", a.String())
}

func TestDecodePayload_GPS(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want GPS
	}{
		{
			name: "northern hemisphere",
			hex:  "1c40524b0517f44300fd465005d00c",
			want: GPS{Latitude: 47.3977419, Longitude: 8.5455939, GroundSpeed: 25.3, Heading: 180, Altitude: 488, Satellites: 12},
		},
		{
			name: "southern hemisphere",
			hex:  "ebd008005a20b54800000000000000",
			want: GPS{Latitude: -33.8688, Longitude: 151.2093, Altitude: -1000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload(FrameTypeGPS, mustHex(t, tt.hex), DefaultChannelUnit)
			require.NoError(t, err)

			g := p.(GPS)
			assert.InDelta(t, tt.want.Latitude, g.Latitude, 1e-9)
			assert.InDelta(t, tt.want.Longitude, g.Longitude, 1e-9)
			assert.InDelta(t, tt.want.GroundSpeed, g.GroundSpeed, 1e-9)
			assert.InDelta(t, tt.want.Heading, g.Heading, 1e-9)
			assert.Equal(t, tt.want.Altitude, g.Altitude)
			assert.Equal(t, tt.want.Satellites, g.Satellites)
		})
	}
}

func TestDecodePayload_FlightMode(t *testing.T) {
	tests := []struct {
		raw  string
		want FlightMode
		text string
	}{
		{"ACRO\x00", FlightMode{Mode: "ACRO", Armed: true}, "Flight mode: ACRO (armed)"},
		{"ANGL*\x00", FlightMode{Mode: "ANGL", Armed: false}, "Flight mode: ANGL (disarmed)"},
		{"HOR", FlightMode{Mode: "HOR", Armed: true}, "Flight mode: HOR (armed)"},
		{"WAIT*\x00junk", FlightMode{Mode: "WAIT", Armed: false}, "Flight mode: WAIT (disarmed)"},
	}

	for _, tt := range tests {
		p, err := DecodePayload(FrameTypeFlightMode, []byte(tt.raw), DefaultChannelUnit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p)
		assert.Equal(t, tt.text, p.String())
	}
}

func TestDecodePayload_Heartbeat(t *testing.T) {
	p, err := DecodePayload(FrameTypeHeartbeat, []byte{0x00, AddressFlightController}, DefaultChannelUnit)
	require.NoError(t, err)
	assert.Equal(t, Heartbeat{Origin: AddressFlightController}, p)
	assert.Equal(t, "Origin: Flight Controller (0xC8)", p.String())
}

func TestDecodePayload_PingDevices(t *testing.T) {
	p, err := DecodePayload(FrameTypePingDevices, []byte{AddressBroadcast, AddressRadioTransmitter}, DefaultChannelUnit)
	require.NoError(t, err)
	assert.Equal(t, PingDevices{Destination: AddressBroadcast, Origin: AddressRadioTransmitter}, p)
	assert.Equal(t, "Destination: Broadcast (0x00), Origin: Radio Transmitter (0xEA)", p.String())
}

func TestDecodePayload_DeviceInfo(t *testing.T) {
	want := DeviceInfo{
		Destination:      AddressRadioTransmitter,
		Origin:           AddressCRSFReceiver,
		Name:             "TBS Crossfire RX",
		SerialNumber:     0x45524C53,
		HardwareID:       0x00000102,
		FirmwareID:       0x00060013,
		ParameterCount:   12,
		ParameterVersion: 0,
	}
	frame, err := EncodeDeviceInfo(want)
	require.NoError(t, err)

	p, err := DecodePayload(FrameTypeDeviceInfo, frame[3:len(frame)-1], DefaultChannelUnit)
	require.NoError(t, err)
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("DeviceInfo mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, p.String(), `Name: "TBS Crossfire RX"`)
}

func TestDecodePayload_NotDecoded(t *testing.T) {
	for _, frameType := range []uint8{FrameTypeVario, FrameTypeBaroAltitude, FrameTypeMSPRequest, 0x99} {
		p, err := DecodePayload(frameType, []byte{0x01, 0x02}, DefaultChannelUnit)
		require.NoError(t, err)
		assert.Equal(t, NotDecoded{FrameType: frameType}, p)
		assert.Equal(t, "not decoded", p.String())
	}
}

func TestDecodePayload_Truncated(t *testing.T) {
	tests := []struct {
		frameType uint8
		size      int
	}{
		{FrameTypeBatterySensor, 7},
		{FrameTypeLinkStatistics, 9},
		{FrameTypeRCChannelsPacked, 21},
		{FrameTypeAttitude, 5},
		{FrameTypeGPS, 14},
		{FrameTypeHeartbeat, 1},
		{FrameTypePingDevices, 1},
		{FrameTypeDeviceInfo, 2},
	}

	for _, tt := range tests {
		name, _ := FrameTypeName(tt.frameType)
		t.Run(name, func(t *testing.T) {
			_, err := DecodePayload(tt.frameType, make([]byte, tt.size), DefaultChannelUnit)
			assert.True(t, errors.Is(err, ErrTruncatedPayload), "err = %v", err)
		})
	}
}

func TestChannelMicroseconds(t *testing.T) {
	assert.Equal(t, 881, ChannelMicroseconds(0))
	assert.Equal(t, 988, ChannelMicroseconds(ChannelMinValid))
	assert.Equal(t, 1500, ChannelMicroseconds(ChannelCenter))
	assert.Equal(t, 2012, ChannelMicroseconds(ChannelMaxValid))
}
