// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 12.6 V, 1.5 A, 1200 mAh, 87%
var batteryPayload = []byte{0x00, 0x7E, 0x00, 0x0F, 0x00, 0x04, 0xB0, 0x57}

func batteryFrame() []byte {
	return crsf.MustEncodeFrame(crsf.AddressFlightController, crsf.FrameTypeBatterySensor, batteryPayload)
}

func corrupted(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[len(out)-1] ^= 0xFF
	return out
}

// stamp turns bytes into samples one microsecond apart
func stamp(data []byte) []crsf.ByteSample {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := make([]crsf.ByteSample, len(data))
	for i, b := range data {
		samples[i] = crsf.ByteSample{Value: b, Start: t, End: t.Add(time.Microsecond)}
		t = t.Add(time.Microsecond)
	}
	return samples
}

type fedReport struct {
	report *frameReport
	synced bool
}

func feedAll(a *frameAssembler, data []byte) []fedReport {
	var out []fedReport
	for _, s := range stamp(data) {
		if r, synced := a.Feed(s); r != nil {
			out = append(out, fedReport{report: r, synced: synced})
		}
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

//////////////////////////////////////////////////////////////
// Frame assembler
//////////////////////////////////////////////////////////////

func TestFrameAssembler_SyncAfterGarbage(t *testing.T) {
	a := newFrameAssembler(crsf.NewDecoder())

	reports := feedAll(a, concat([]byte{0x55, 0x66, 0x77}, batteryFrame()))

	require.Len(t, reports, 1)
	assert.True(t, reports[0].synced)
	assert.True(t, a.synchronized)
	assert.Equal(t, 3, a.skipped)

	r := reports[0].report
	assert.True(t, r.ok())
	assert.Equal(t, uint8(crsf.AddressFlightController), r.address)
	assert.Equal(t, uint8(crsf.FrameTypeBatterySensor), r.frameType)
	assert.Equal(t, len(batteryFrame()), r.size)
	require.NotNil(t, r.payload)
	assert.IsType(t, crsf.BatterySensor{}, r.payload.Payload)
	assert.Len(t, r.updates, 5)
}

func TestFrameAssembler_BadFrameBeforeSyncIsSkipped(t *testing.T) {
	a := newFrameAssembler(crsf.NewDecoder())
	bad := corrupted(batteryFrame())

	reports := feedAll(a, concat(bad, batteryFrame()))

	require.Len(t, reports, 1)
	assert.True(t, reports[0].synced)
	assert.True(t, reports[0].report.crc.Passed)
	assert.Equal(t, len(bad), a.skipped)
}

func TestFrameAssembler_ReportsCRCErrorsAfterSync(t *testing.T) {
	a := newFrameAssembler(crsf.NewDecoder())

	reports := feedAll(a, concat(batteryFrame(), corrupted(batteryFrame()), batteryFrame()))

	require.Len(t, reports, 3)
	assert.True(t, reports[0].synced)
	assert.False(t, reports[1].synced)
	assert.False(t, reports[2].synced)

	bad := reports[1].report
	assert.False(t, bad.ok())
	require.NotNil(t, bad.crc)
	assert.False(t, bad.crc.Passed)
	assert.Contains(t, bad.label(), "0x08")
	assert.True(t, reports[2].report.ok())
}

func TestFrameAssembler_InvalidLengthAfterSync(t *testing.T) {
	a := newFrameAssembler(crsf.NewDecoder())

	reports := feedAll(a, concat(batteryFrame(), []byte{crsf.AddressFlightController, 0x01}, batteryFrame()))

	require.Len(t, reports, 2)
	assert.True(t, reports[1].report.ok())
	assert.Equal(t, len(batteryFrame()), reports[1].report.size)
	assert.Nil(t, a.cur)
}

func TestFrameAssembler_DecodeErrorReport(t *testing.T) {
	a := newFrameAssembler(crsf.NewDecoder())
	short := crsf.MustEncodeFrame(crsf.AddressFlightController, crsf.FrameTypeBatterySensor, batteryPayload[:4])

	reports := feedAll(a, concat(batteryFrame(), short))

	require.Len(t, reports, 2)
	r := reports[1].report
	require.NotNil(t, r.err)
	assert.Nil(t, r.crc)
	assert.False(t, r.ok())
	assert.NotEmpty(t, r.issues)
}

func TestFrameReport_Apply(t *testing.T) {
	a := newFrameAssembler(crsf.NewDecoder())
	stats := crsf.NewStatistics()

	for _, fr := range feedAll(a, concat(batteryFrame(), corrupted(batteryFrame()), batteryFrame())) {
		fr.report.apply(stats)
	}

	assert.Equal(t, uint64(3), stats.TotalFrames)
	assert.Equal(t, uint64(2), stats.ValidFrames)
	assert.Equal(t, uint64(1), stats.CRCErrors)
	assert.Equal(t, uint64(3), stats.FramesByType[crsf.FrameTypeBatterySensor])
}

func TestFrameAssembler_ObserveMatchesFeed(t *testing.T) {
	data := concat([]byte{0x55}, batteryFrame(), corrupted(batteryFrame()))

	fed := feedAll(newFrameAssembler(crsf.NewDecoder()), data)

	a := newFrameAssembler(crsf.NewDecoder())
	var observed []*frameReport
	for _, s := range stamp(data) {
		if r, _ := a.observe(s, a.decoder.Decode(s)); r != nil {
			observed = append(observed, r)
		}
	}

	require.Len(t, observed, len(fed))
	for i := range fed {
		assert.Equal(t, fed[i].report.size, observed[i].size)
		assert.Equal(t, fed[i].report.ok(), observed[i].ok())
	}
}
