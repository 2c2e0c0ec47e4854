// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"fmt"
	"strings"
)

// TimestampFormat is the layout used for event timestamps.
const TimestampFormat = "15:04:05.000000"

// FormatEvent formats an event into a human-readable line
func FormatEvent(ev Event) string {
	start, _ := ev.Interval()
	return fmt.Sprintf("[%s] %s\n", start.Format(TimestampFormat), ev.String())
}

// FormatFrameType returns the name of a frame type with its code
func FormatFrameType(t uint8) string {
	name, _ := FrameTypeName(t)
	return fmt.Sprintf("%s (0x%02X)", name, t)
}

// FormatHex formats bytes as hex, 16 per line
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n")
		} else if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
