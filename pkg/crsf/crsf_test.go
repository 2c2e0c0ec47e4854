// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"testing"
	"time"
)

// ============================================================
// Test Helpers
// ============================================================

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// samplesFrom timestamps bytes back to back at 420000 baud
func samplesFrom(data []byte) []ByteSample {
	const byteTime = 10 * time.Second / 420000
	samples := make([]ByteSample, len(data))
	for i, b := range data {
		start := testEpoch.Add(time.Duration(i) * byteTime)
		samples[i] = ByteSample{Value: b, Start: start, End: start.Add(byteTime)}
	}
	return samples
}

// decodeBytes runs bytes through a fresh decoder
func decodeBytes(data []byte, opts ...Option) []Event {
	return NewDecoder(opts...).DecodeAll(samplesFrom(data))
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind()
	}
	return out
}

// ============================================================
// CRC Tests
// ============================================================

func TestCalculateCRC_Empty(t *testing.T) {
	crc := CalculateCRC([]byte{})
	if crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%02X", crc)
	}
}

func TestCalculateCRC_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint8
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0xBC, // CRC-8/DVB-S2 check value
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0x00,
		},
		{
			name:     "single 0x01",
			data:     []byte{0x01},
			expected: 0xD5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := CalculateCRC(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%02X, got 0x%02X", tt.expected, crc)
			}
		})
	}
}

func TestCalculateCRC_Deterministic(t *testing.T) {
	data := []byte{FrameTypeLinkStatistics, 0x1E, 0x20, 0x64, 0x0A, 0x00, 0x02, 0x03, 0x28, 0x64, 0x05}
	crc1 := CalculateCRC(data)
	crc2 := CalculateCRC(data)
	if crc1 != crc2 {
		t.Errorf("CRC should be deterministic: 0x%02X != 0x%02X", crc1, crc2)
	}
}

func TestCalculateCRC_DetectsEverySingleBitFlip(t *testing.T) {
	data := []byte{FrameTypeBatterySensor, 0x00, 0x7E, 0x00, 0x0F, 0x00, 0x04, 0xB0, 0x57}
	original := CalculateCRC(data)

	for bit := 0; bit < 8*len(data); bit++ {
		flipped := make([]byte, len(data))
		copy(flipped, data)
		flipped[bit/8] ^= 1 << (bit % 8)
		if CalculateCRC(flipped) == original {
			t.Errorf("flipping bit %d did not change the CRC (0x%02X)", bit, original)
		}
	}
}

func TestFrameCRC_MatchesConcatenation(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30}
	want := CalculateCRC(append([]byte{FrameTypeAttitude}, payload...))
	if got := frameCRC(FrameTypeAttitude, payload); got != want {
		t.Errorf("frameCRC = 0x%02X, want 0x%02X", got, want)
	}
}

// ============================================================
// Bit/Byte Field Codec Tests
// ============================================================

func TestBEUint(t *testing.T) {
	tests := []struct {
		data     []byte
		width    int
		expected uint64
	}{
		{[]byte{0x7F}, 8, 0x7F},
		{[]byte{0x01, 0x02}, 16, 0x0102},
		{[]byte{0x00, 0x04, 0xB0}, 24, 1200},
		{[]byte{0xDE, 0xAD, 0xBE, 0xEF}, 32, 0xDEADBEEF},
		{[]byte{0x01, 0x02, 0x03}, 16, 0x0102}, // extra bytes ignored
	}

	for _, tt := range tests {
		if got := BEUint(tt.data, tt.width); got != tt.expected {
			t.Errorf("BEUint(% X, %d) = %d, want %d", tt.data, tt.width, got, tt.expected)
		}
	}
}

func TestBEInt(t *testing.T) {
	tests := []struct {
		data     []byte
		width    int
		expected int64
	}{
		{[]byte{0x7F}, 8, 127},
		{[]byte{0x80}, 8, -128},
		{[]byte{0xFF}, 8, -1},
		{[]byte{0xFB, 0x2E}, 16, -1234},
		{[]byte{0x7A, 0xB7}, 16, 31415},
		{[]byte{0xEB, 0xD0, 0x08, 0x00}, 32, -338688000},
		{[]byte{0x1C, 0x40, 0x52, 0x4B}, 32, 473977419},
	}

	for _, tt := range tests {
		if got := BEInt(tt.data, tt.width); got != tt.expected {
			t.Errorf("BEInt(% X, %d) = %d, want %d", tt.data, tt.width, got, tt.expected)
		}
	}
}

func TestBEUint_PanicsOnShortInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for short input")
		}
	}()
	BEUint([]byte{0x01}, 16)
}

func TestLEBitfield(t *testing.T) {
	// 0b1010_1100 0b0000_0011: bits 2..9 are 0b11_1010_11
	data := []byte{0xAC, 0x03}
	if got := LEBitfield(data, 0, 4); got != 0xC {
		t.Errorf("low nibble = 0x%X, want 0xC", got)
	}
	if got := LEBitfield(data, 2, 8); got != 0xEB {
		t.Errorf("bits 2..9 = 0x%X, want 0xEB", got)
	}
	if got := LEBitfield(data, 8, 8); got != 0x03 {
		t.Errorf("second byte = 0x%X, want 0x03", got)
	}
}

func TestLEBitfield_PanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for field beyond buffer")
		}
	}()
	LEBitfield([]byte{0x00, 0x00}, 6, 11)
}

func TestPackLEBitfields_RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2047, 992, 172, 1811, 1024, 3, 5, 7, 11, 13, 17, 19, 23, 2000}
	packed := PackLEBitfields(values, ChannelBits)
	if len(packed) != rcPayloadSize {
		t.Fatalf("packed length = %d, want %d", len(packed), rcPayloadSize)
	}
	for i, want := range values {
		if got := LEBitfield(packed, i*ChannelBits, ChannelBits); got != want {
			t.Errorf("value %d: got %d, want %d", i, got, want)
		}
	}
}

// ============================================================
// Protocol Table Tests
// ============================================================

func TestAddressTable(t *testing.T) {
	if len(addressNames) != 14 {
		t.Errorf("address table has %d entries, want 14", len(addressNames))
	}

	name, ok := AddressName(AddressFlightController)
	if !ok || name != "Flight Controller" {
		t.Errorf("AddressName(0xC8) = %q, %v", name, ok)
	}
	if IsKnownAddress(0x42) {
		t.Error("0x42 should not be a known address")
	}
	if got := FormatAddress(0x42); got != "Unknown device (0x42)" {
		t.Errorf("FormatAddress(0x42) = %q", got)
	}
	if got := FormatAddress(0x01C8); got != "Unknown device (0x1C8)" {
		t.Errorf("FormatAddress(0x1C8) = %q", got)
	}
}

func TestFrameTypeName(t *testing.T) {
	tests := []struct {
		frameType uint8
		name      string
		known     bool
	}{
		{FrameTypeGPS, "GPS", true},
		{FrameTypeRCChannelsPacked, "RC channels packed", true},
		{FrameTypeLinkStatistics, "Link statistics", true},
		{FrameTypeMSPResponse, "MSP response", true},
		{0x99, "Unrecognised", false},
	}

	for _, tt := range tests {
		name, known := FrameTypeName(tt.frameType)
		if name != tt.name || known != tt.known {
			t.Errorf("FrameTypeName(0x%02X) = %q, %v; want %q, %v", tt.frameType, name, known, tt.name, tt.known)
		}
	}
}

func TestExpectedPayloadRange(t *testing.T) {
	r, ok := ExpectedPayloadRange(FrameTypeRCChannelsPacked)
	if !ok || r.Min != 22 || r.Max != 22 {
		t.Errorf("RC channels range = %v, %v", r, ok)
	}
	if _, ok := ExpectedPayloadRange(FrameTypeCommand); ok {
		t.Error("Command should have no registered range")
	}
	if !(PayloadRange{2, 4}).Contains(3) || (PayloadRange{2, 4}).Contains(5) {
		t.Error("PayloadRange.Contains is wrong")
	}
}
