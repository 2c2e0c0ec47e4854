// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
)

// bitsPerByte is one start bit, eight data bits and one stop bit (8N1).
const bitsPerByte = 10

// Sampler timestamps bytes read in chunks. Serial and WebSocket reads deliver
// several bytes at once; the sampler spreads them backwards from the read time
// at the wire rate and never lets time go backwards.
type Sampler struct {
	byteTime time.Duration
	lastEnd  time.Time
}

// NewSampler returns a sampler for the given baud rate. A non-positive baud
// rate gives every byte of a chunk the read time.
func NewSampler(baudRate int) *Sampler {
	s := &Sampler{}
	if baudRate > 0 {
		s.byteTime = time.Duration(bitsPerByte) * time.Second / time.Duration(baudRate)
	}
	return s
}

// ByteTime returns the duration of one byte on the wire.
func (s *Sampler) ByteTime() time.Duration {
	return s.byteTime
}

// Samples converts a chunk read at time at into byte samples. The last byte
// of the chunk ends at at.
func (s *Sampler) Samples(chunk []byte, at time.Time) []crsf.ByteSample {
	samples := make([]crsf.ByteSample, len(chunk))
	start := at.Add(-time.Duration(len(chunk)) * s.byteTime)
	if start.Before(s.lastEnd) {
		start = s.lastEnd
	}
	for i, b := range chunk {
		end := start.Add(s.byteTime)
		samples[i] = crsf.ByteSample{Value: b, Start: start, End: end}
		start = end
	}
	if len(samples) > 0 {
		s.lastEnd = samples[len(samples)-1].End
	}
	return samples
}
