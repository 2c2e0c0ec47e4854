// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
)

// eventUpdate is one decoder event with the validation issues found for it
type eventUpdate struct {
	event  crsf.Event
	issues []crsf.ValidationError
}

// frameReport collects the events of one frame, from its address byte to its
// CRC byte or to the error that discarded it
type frameReport struct {
	start     time.Time
	address   uint8
	frameType uint8
	typeName  string
	payload   *crsf.PayloadEvent
	crc       *crsf.CRCEvent
	err       *crsf.ErrorEvent
	issues    []crsf.ValidationError
	updates   []eventUpdate
	size      int // bytes received
}

// ok reports whether the frame passed its CRC without validation issues
func (r *frameReport) ok() bool {
	return r.err == nil && r.crc != nil && r.crc.Passed && len(r.issues) == 0
}

// apply feeds the frame's events into the statistics
func (r *frameReport) apply(stats *crsf.Statistics) {
	for _, u := range r.updates {
		stats.Update(u.event, u.issues)
	}
}

// label names the frame for log lines
func (r *frameReport) label() string {
	if r.typeName == "" {
		return fmt.Sprintf("Frame from %s", crsf.FormatAddress(uint64(r.address)))
	}
	return crsf.FormatFrameType(r.frameType)
}

// frameAssembler runs bytes through a decoder and groups the events into
// frame reports. Frames are only reported once the stream is synchronized,
// that is after the first frame with a matching CRC; before that, bytes and
// broken frames are counted as skipped.
type frameAssembler struct {
	decoder      *crsf.Decoder
	cur          *frameReport
	synchronized bool
	skipped      int
}

func newFrameAssembler(decoder *crsf.Decoder) *frameAssembler {
	return &frameAssembler{decoder: decoder}
}

// Feed decodes one byte. It returns the frame the byte completed, if any, and
// whether that frame is the one that synchronized the stream.
func (a *frameAssembler) Feed(s crsf.ByteSample) (*frameReport, bool) {
	return a.observe(s, a.decoder.Decode(s))
}

// observe groups an event the decoder returned for s. Callers that need the
// events themselves decode with a.decoder and pass every result here.
func (a *frameAssembler) observe(s crsf.ByteSample, ev crsf.Event) (*frameReport, bool) {
	if a.cur != nil {
		a.cur.size++
	}
	if ev == nil {
		if a.cur == nil && !a.synchronized {
			a.skipped++
		}
		if a.decoder.State() == crsf.StateIdle {
			// Invalid length: the frame was dropped without an event
			a.dropCurrent()
		}
		return nil, false
	}

	var issues []crsf.ValidationError
	switch e := ev.(type) {
	case crsf.AddressEvent:
		a.dropCurrent()
		a.cur = &frameReport{start: s.Start, address: e.Address, size: 1}
	case crsf.TypeEvent:
		issues = crsf.ValidateType(e)
		if a.cur != nil {
			a.cur.frameType = e.FrameType
			a.cur.typeName = e.Name
		}
	case crsf.PayloadEvent:
		issues = crsf.ValidatePayload(e)
		if a.cur != nil {
			a.cur.payload = &e
		}
	case crsf.CRCEvent:
		if a.cur != nil {
			a.cur.crc = &e
		}
	case crsf.ErrorEvent:
		if a.cur != nil {
			a.cur.err = &e
		}
	}

	if a.cur == nil {
		return nil, false
	}
	a.cur.issues = append(a.cur.issues, issues...)
	a.cur.updates = append(a.cur.updates, eventUpdate{event: ev, issues: issues})

	if a.cur.crc == nil && a.cur.err == nil {
		return nil, false
	}

	report := a.cur
	a.cur = nil
	if !a.synchronized {
		if report.crc == nil || !report.crc.Passed {
			a.skipped += report.size
			return nil, false
		}
		a.synchronized = true
		return report, true
	}
	return report, false
}

// dropCurrent forgets a frame that ended without a CRC or error event
func (a *frameAssembler) dropCurrent() {
	if a.cur != nil && !a.synchronized {
		a.skipped += a.cur.size
	}
	a.cur = nil
}
