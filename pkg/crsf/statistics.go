// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"fmt"
	"sort"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames       uint64
	ValidFrames       uint64
	CRCErrors         uint64
	DecodeErrors      uint64
	MalformedFrames   uint64
	LengthMismatches  uint64
	UnrecognizedTypes uint64
	AnomalousValues   uint64
	ChannelRange      uint64
	LinkQuality       uint64
	FramesByType      map[uint8]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec

	// flagged is set when the frame in progress had validation errors
	flagged bool
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		FramesByType:   make(map[uint8]uint64),
	}
}

// Update updates statistics from a decoder event and the validation errors
// found for it. A frame is counted when its CRC event or error event arrives.
func (s *Statistics) Update(ev Event, validationErrors []ValidationError) {
	for _, err := range validationErrors {
		s.flagged = true
		switch err.Type {
		case AnomalyLengthMismatch:
			s.LengthMismatches++
			s.MalformedFrames++
		case AnomalyUnrecognizedType:
			s.UnrecognizedTypes++
			s.MalformedFrames++
		case AnomalyChannelRange:
			s.ChannelRange++
			s.AnomalousValues++
		case AnomalyLinkQuality:
			s.LinkQuality++
			s.AnomalousValues++
		default:
			s.AnomalousValues++
		}
	}

	switch e := ev.(type) {
	case TypeEvent:
		s.FramesByType[e.FrameType]++
	case CRCEvent:
		s.TotalFrames++
		if !e.Passed {
			s.CRCErrors++
		} else if !s.flagged {
			s.ValidFrames++
		}
		s.flagged = false
	case ErrorEvent:
		s.TotalFrames++
		s.DecodeErrors++
		s.flagged = false
	}

	// Update timestamp for rate calculation
	s.LastUpdateTime = time.Now()
}

// TotalErrors returns the number of frames and values that were not valid.
func (s *Statistics) TotalErrors() uint64 {
	return s.CRCErrors + s.DecodeErrors + s.MalformedFrames + s.AnomalousValues
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.TotalErrors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, crcErrorPercent, decodeErrorPercent, malformedPercent, anomalousPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		crcErrorPercent = float64(s.CRCErrors) * 100.0 / float64(s.TotalFrames)
		decodeErrorPercent = float64(s.DecodeErrors) * 100.0 / float64(s.TotalFrames)
		malformedPercent = float64(s.MalformedFrames) * 100.0 / float64(s.TotalFrames)
		anomalousPercent = float64(s.AnomalousValues) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, crcErrorPercent)
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, decodeErrorPercent)
	}
	if s.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed:       %8d (%.1f%%)\n", s.MalformedFrames, malformedPercent)
		if s.LengthMismatches > 0 {
			result += fmt.Sprintf("  Length Mismatch:  %5d\n", s.LengthMismatches)
		}
		if s.UnrecognizedTypes > 0 {
			result += fmt.Sprintf("  Unrecognised:     %5d\n", s.UnrecognizedTypes)
		}
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, anomalousPercent)
		if s.ChannelRange > 0 {
			result += fmt.Sprintf("  Channel Range:    %5d\n", s.ChannelRange)
		}
		if s.LinkQuality > 0 {
			result += fmt.Sprintf("  Link Quality:     %5d\n", s.LinkQuality)
		}
	}

	if len(s.FramesByType) > 0 {
		result += "Frames by type:\n"
		types := make([]int, 0, len(s.FramesByType))
		for t := range s.FramesByType {
			types = append(types, int(t))
		}
		sort.Ints(types)
		for _, t := range types {
			name, _ := FrameTypeName(uint8(t))
			result += fmt.Sprintf("  %-26s %8d\n", fmt.Sprintf("%s (0x%02X)", name, t), s.FramesByType[uint8(t)])
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
