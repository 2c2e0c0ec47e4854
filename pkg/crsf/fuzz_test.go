// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// decodedTypes lists the frame types with a payload decoder
var decodedTypes = []uint8{
	FrameTypeBatterySensor,
	FrameTypeLinkStatistics,
	FrameTypeRCChannelsPacked,
	FrameTypeAttitude,
	FrameTypeFlightMode,
	FrameTypeGPS,
	FrameTypeHeartbeat,
	FrameTypePingDevices,
	FrameTypeDeviceInfo,
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder and verifies
// it never panics and never emits more than one event per byte
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		events := d.DecodeAll(samplesFrom(data))
		if len(events) > len(data) {
			t.Fatalf("round %d: %d events from %d bytes", i, len(events), len(data))
		}
	}
}

// TestFuzzDecoder_RandomFrames builds well-formed frames with random payloads
// of random length for every decoded type. Every frame must either complete
// with a passing CRC event or be reported with an error event.
func TestFuzzDecoder_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder(WithChannelUnit(ChannelUnits[rng.Intn(len(ChannelUnits))]))

		frameType := decodedTypes[rng.Intn(len(decodedTypes))]
		payload := make([]byte, rng.Intn(MaxPayloadSize+1))
		rng.Read(payload)
		frame := MustEncodeFrame(AddressFlightController, frameType, payload)

		events := d.DecodeAll(samplesFrom(frame))
		if len(events) == 0 {
			t.Fatalf("round %d: no events for type 0x%02X", i, frameType)
		}

		last := events[len(events)-1]
		switch last.Kind() {
		case KindCRC:
			if !last.(CRCEvent).Passed {
				t.Fatalf("round %d: CRC failed on an encoded frame", i)
			}
		case KindError:
			// Fault reported on the last payload byte; the CRC byte may have
			// opened a new frame
		default:
			if !containsKind(events, KindError) {
				t.Fatalf("round %d: frame ended with %s event", i, last.Kind())
			}
		}
	}
}

// TestFuzzDecoder_CorruptedFrames flips random bits in the payload and CRC of
// a valid frame. The header stays intact so the frame boundary is known.
func TestFuzzDecoder_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	var ch [NumChannels]uint16
	for i := range ch {
		ch[i] = ChannelCenter
	}
	valid := EncodeRCChannels(ch)

	for i := 0; i < rounds; i++ {
		frame := make([]byte, len(valid))
		copy(frame, valid)

		flips := rng.Intn(4) + 1
		for j := 0; j < flips; j++ {
			bit := 24 + rng.Intn(8*(len(frame)-3))
			frame[bit/8] ^= 1 << (bit % 8)
		}

		stream := append(frame, valid...)
		events := NewDecoder().DecodeAll(samplesFrom(stream))
		if len(events) != 10 {
			t.Fatalf("round %d: got %d events, want 10", i, len(events))
		}
		for j, ev := range events {
			if ev.Kind() != fullFrame[j%5] {
				t.Fatalf("round %d: event %d is %s, want %s", i, j, ev.Kind(), fullFrame[j%5])
			}
		}
		if !events[9].(CRCEvent).Passed {
			t.Fatalf("round %d: trailing valid frame failed CRC", i)
		}
	}
}

func containsKind(events []Event, kind EventKind) bool {
	for _, ev := range events {
		if ev.Kind() == kind {
			return true
		}
	}
	return false
}
