// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// frameContext is the state of the frame currently being decoded. Its zero
// value (with an empty payload) is the Idle state.
type frameContext struct {
	state          State
	frameType      uint8
	hasType        bool
	declaredLength uint8
	payload        []byte
	frameStart     time.Time
	payloadStart   time.Time
	payloadEnd     time.Time
}

func (c *frameContext) payloadLength() int {
	return int(c.declaredLength) - MinFrameLength
}

// Decoder implements the CRSF frame decoder state machine. It is not safe for
// concurrent use; feed each byte stream to its own Decoder.
type Decoder struct {
	ctx  frameContext
	unit ChannelUnit
	log  logrus.FieldLogger
}

// NewDecoder creates a new frame decoder in the Idle state.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		ctx:  frameContext{payload: make([]byte, 0, MaxPayloadSize)},
		unit: DefaultChannelUnit,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reset discards any partially decoded frame and returns to Idle.
func (d *Decoder) Reset() {
	d.ctx = frameContext{payload: d.ctx.payload[:0]}
}

// State returns the current state of the decoder.
func (d *Decoder) State() State {
	return d.ctx.state
}

// ChannelUnit returns the unit RC channel payloads are reported in.
func (d *Decoder) ChannelUnit() ChannelUnit {
	return d.unit
}

// Decode processes a single byte through the state machine and returns the
// event it completes, or nil. Malformed frames never propagate as errors:
// they are discarded and reported as an ErrorEvent, and decoding resumes from
// Idle with the next byte.
func (d *Decoder) Decode(s ByteSample) Event {
	ev, err := d.step(s)
	if err != nil {
		start := d.ctx.frameStart
		if start.IsZero() {
			start = s.Start
		}
		d.log.WithError(err).WithFields(logrus.Fields{
			"frame_type": fmt.Sprintf("0x%02X", d.ctx.frameType),
			"state":      d.ctx.state.String(),
		}).Debug("Discarding frame")
		d.Reset()
		return ErrorEvent{Span: Span{Start: start, End: s.End}, Message: err.Error(), Err: err}
	}
	return ev
}

// DecodeAll feeds every sample through the decoder and collects the events.
func (d *Decoder) DecodeAll(samples []ByteSample) []Event {
	var events []Event
	for _, s := range samples {
		if ev := d.Decode(s); ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func (d *Decoder) step(s ByteSample) (Event, error) {
	switch d.ctx.state {
	case StateIdle:
		return d.onAddress(s), nil
	case StateAwaitingLength:
		return d.onLength(s), nil
	case StateAwaitingType:
		return d.onType(s), nil
	case StateCollectingPayload:
		return d.onPayload(s)
	default:
		return nil, fmt.Errorf("invalid state: %d", d.ctx.state)
	}
}

func (d *Decoder) onAddress(s ByteSample) Event {
	name, ok := AddressName(s.Value)
	if !ok {
		return nil
	}
	d.ctx.state = StateAwaitingLength
	d.ctx.frameStart = s.Start
	return AddressEvent{Span: spanOf(s), Address: s.Value, Name: name}
}

func (d *Decoder) onLength(s ByteSample) Event {
	if s.Value < MinFrameLength {
		d.log.WithField("length", s.Value).Debug("Invalid frame length")
		d.Reset()
		return nil
	}
	d.ctx.declaredLength = s.Value
	d.ctx.state = StateAwaitingType
	return LengthEvent{Span: spanOf(s), DeclaredLength: s.Value}
}

func (d *Decoder) onType(s ByteSample) Event {
	d.ctx.frameType = s.Value
	d.ctx.hasType = true
	d.ctx.state = StateCollectingPayload

	name, known := FrameTypeName(s.Value)
	ev := TypeEvent{
		Span:          spanOf(s),
		FrameType:     s.Value,
		Name:          name,
		Recognised:    known,
		PayloadLength: d.ctx.payloadLength(),
	}
	if r, ok := ExpectedPayloadRange(s.Value); ok {
		ev.Expected = r
		ev.LengthMismatch = !r.Contains(ev.PayloadLength)
	}
	return ev
}

// onPayload accumulates payload bytes. The byte completing the payload is
// decoded into a PayloadEvent; the byte after it is the CRC and closes the
// frame whether or not it matches.
func (d *Decoder) onPayload(s ByteSample) (Event, error) {
	if !d.ctx.hasType {
		return nil, errUnexpectedFrameType
	}
	want := d.ctx.payloadLength()

	if len(d.ctx.payload) < want {
		if len(d.ctx.payload) == 0 {
			d.ctx.payloadStart = s.Start
		}
		d.ctx.payload = append(d.ctx.payload, s.Value)
		if len(d.ctx.payload) < want {
			return nil, nil
		}
		d.ctx.payloadEnd = s.End
		return d.dispatchPayload()
	}
	if len(d.ctx.payload) > want {
		return nil, decodeFault(d.ctx.frameType, ErrPayloadOverflow)
	}

	computed := frameCRC(d.ctx.frameType, d.ctx.payload)
	ev := CRCEvent{
		Span:     spanOf(s),
		Passed:   computed == s.Value,
		Computed: computed,
		Received: s.Value,
	}
	if !ev.Passed {
		d.log.WithFields(logrus.Fields{
			"frame_type": fmt.Sprintf("0x%02X", d.ctx.frameType),
			"received":   fmt.Sprintf("0x%02X", s.Value),
			"computed":   fmt.Sprintf("0x%02X", computed),
		}).Debug("CRC mismatch")
	}
	d.Reset()
	return ev, nil
}

func (d *Decoder) dispatchPayload() (Event, error) {
	payload, err := DecodePayload(d.ctx.frameType, d.ctx.payload, d.unit)
	if err != nil {
		return nil, decodeFault(d.ctx.frameType, err)
	}
	raw := make([]byte, len(d.ctx.payload))
	copy(raw, d.ctx.payload)
	return PayloadEvent{
		Span:      Span{Start: d.ctx.payloadStart, End: d.ctx.payloadEnd},
		FrameType: d.ctx.frameType,
		Payload:   payload,
		Raw:       raw,
		Text:      payload.String(),
	}, nil
}
