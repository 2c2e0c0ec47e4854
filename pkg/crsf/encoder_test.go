// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeFrame_Layout(t *testing.T) {
	payload := []byte{0x00, 0x7E, 0x00, 0x0F, 0x00, 0x04, 0xB0, 0x57}
	frame, err := EncodeFrame(AddressFlightController, FrameTypeBatterySensor, payload)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	if len(frame) != len(payload)+4 {
		t.Fatalf("frame length = %d, want %d", len(frame), len(payload)+4)
	}
	if frame[0] != AddressFlightController {
		t.Errorf("address = 0x%02X", frame[0])
	}
	if frame[1] != uint8(len(payload)+2) {
		t.Errorf("length = %d, want %d", frame[1], len(payload)+2)
	}
	if frame[2] != FrameTypeBatterySensor {
		t.Errorf("type = 0x%02X", frame[2])
	}
	if !bytes.Equal(frame[3:len(frame)-1], payload) {
		t.Errorf("payload = % X", frame[3:len(frame)-1])
	}
	if crc := CalculateCRC(frame[2 : len(frame)-1]); frame[len(frame)-1] != crc {
		t.Errorf("crc = 0x%02X, want 0x%02X", frame[len(frame)-1], crc)
	}
}

func TestEncodeFrame_PayloadTooLarge(t *testing.T) {
	_, err := EncodeFrame(AddressFlightController, FrameTypeMSPResponse, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}

	frame, err := EncodeFrame(AddressFlightController, FrameTypeMSPResponse, make([]byte, MaxPayloadSize))
	if err != nil {
		t.Fatalf("max payload should encode: %v", err)
	}
	if len(frame) != MaxFrameSize {
		t.Errorf("max frame length = %d, want %d", len(frame), MaxFrameSize)
	}
}

func TestMustEncodeFrame_Panic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustEncodeFrame should panic for oversized payload")
		}
	}()
	MustEncodeFrame(AddressFlightController, FrameTypeMSPResponse, make([]byte, MaxPayloadSize+1))
}

func TestEncodeRCChannels_RoundTrip(t *testing.T) {
	var ch [NumChannels]uint16
	for i := range ch {
		ch[i] = uint16(i * 127)
	}

	events := decodeBytes(EncodeRCChannels(ch), WithChannelUnit(ChannelUnitDigital))
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	rc, ok := events[3].(PayloadEvent).Payload.(RCChannels)
	if !ok {
		t.Fatalf("payload is %T", events[3].(PayloadEvent).Payload)
	}
	if rc.Raw != ch {
		t.Errorf("channels = %v, want %v", rc.Raw, ch)
	}
}

func TestNewPingDevices(t *testing.T) {
	frame := NewPingDevices(AddressBroadcast, AddressRadioTransmitter)
	want := []byte{AddressBroadcast, 0x04, FrameTypePingDevices, AddressBroadcast, AddressRadioTransmitter}
	if !bytes.Equal(frame[:5], want) {
		t.Errorf("frame = % X, want prefix % X", frame, want)
	}
}

func TestEncodeDeviceInfo_PayloadTooLarge(t *testing.T) {
	_, err := EncodeDeviceInfo(DeviceInfo{Name: string(make([]byte, MaxPayloadSize))})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}
