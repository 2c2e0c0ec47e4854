// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"fmt"
	"time"
)

// ByteSample is one received byte and the time span it occupied on the wire.
type ByteSample struct {
	Value byte
	Start time.Time
	End   time.Time
}

// EventKind identifies the concrete type of an Event.
type EventKind int

const (
	KindAddress EventKind = iota
	KindLength
	KindType
	KindPayload
	KindCRC
	KindError
)

func (k EventKind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindLength:
		return "length"
	case KindType:
		return "type"
	case KindPayload:
		return "payload"
	case KindCRC:
		return "crc"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a labelled, timestamped result of decoding one or more bytes.
type Event interface {
	Kind() EventKind
	Interval() (start, end time.Time)
	String() string
}

// Span is the time range an event covers.
type Span struct {
	Start time.Time
	End   time.Time
}

// Interval returns the start and end of the span.
func (s Span) Interval() (time.Time, time.Time) { return s.Start, s.End }

func spanOf(b ByteSample) Span { return Span{Start: b.Start, End: b.End} }

// AddressEvent marks the address byte that opened a frame.
type AddressEvent struct {
	Span
	Address uint8
	Name    string
}

func (AddressEvent) Kind() EventKind { return KindAddress }

func (e AddressEvent) String() string {
	return fmt.Sprintf("Address: %s (0x%02X)", e.Name, e.Address)
}

// LengthEvent carries the declared frame length (type + payload + CRC).
type LengthEvent struct {
	Span
	DeclaredLength uint8
}

func (LengthEvent) Kind() EventKind { return KindLength }

func (e LengthEvent) String() string {
	return fmt.Sprintf("Length: %d", e.DeclaredLength)
}

// PayloadLength returns the payload size implied by the declared length.
func (e LengthEvent) PayloadLength() int {
	return int(e.DeclaredLength) - MinFrameLength
}

// TypeEvent carries the frame type and whether the declared payload length
// fits the range registered for that type.
type TypeEvent struct {
	Span
	FrameType      uint8
	Name           string
	Recognised     bool
	LengthMismatch bool
	Expected       PayloadRange
	PayloadLength  int
}

func (TypeEvent) Kind() EventKind { return KindType }

func (e TypeEvent) String() string {
	s := fmt.Sprintf("Type: %s (0x%02X)", e.Name, e.FrameType)
	if e.LengthMismatch {
		s += fmt.Sprintf(" [length mismatch: payload %d, expected %s]", e.PayloadLength, e.Expected)
	}
	return s
}

// PayloadEvent carries the decoded payload of a frame. It spans from the first
// to the last payload byte.
type PayloadEvent struct {
	Span
	FrameType uint8
	Payload   Payload
	Raw       []byte
	Text      string
}

func (PayloadEvent) Kind() EventKind { return KindPayload }

func (e PayloadEvent) String() string {
	return "Payload: " + e.Text
}

// CRCEvent reports whether the received CRC matched the computed one.
type CRCEvent struct {
	Span
	Passed   bool
	Computed uint8
	Received uint8
}

func (CRCEvent) Kind() EventKind { return KindCRC }

func (e CRCEvent) String() string {
	if e.Passed {
		return fmt.Sprintf("CRC: OK (0x%02X)", e.Received)
	}
	return fmt.Sprintf("CRC: FAIL (received 0x%02X, computed 0x%02X)", e.Received, e.Computed)
}

// ErrorEvent reports a frame that was discarded because it could not be
// decoded.
type ErrorEvent struct {
	Span
	Message string
	Err     error
}

func (ErrorEvent) Kind() EventKind { return KindError }

func (e ErrorEvent) String() string {
	return "Error: " + e.Message
}
