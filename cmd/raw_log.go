// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rawLogFramesOnly bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display CRSF frames as they arrive.

Each frame is shown field by field (address, length, type, payload, CRC) with
the time the field was received. Malformed frames are reported as errors and
decoding resumes with the next frame.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogFramesOnly, "frames-only", false, "Only show payload, CRC and error events")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("crsfscope - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Channel unit: %s\n", channelUnit.String())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := newDecoder()
	stream := NewByteStream(conn)

	for {
		samples, err := stream.Next()
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, ErrConnectionClosed) {
				logrus.Info("Connection closed")
				return nil
			}
			logrus.WithError(err).Warn("Read error")
			continue
		}

		for _, s := range samples {
			ev := decoder.Decode(s)
			if ev == nil || (rawLogFramesOnly && !isFrameResult(ev)) {
				continue
			}
			fmt.Print(crsf.FormatEvent(ev))
		}
	}
}

// isFrameResult reports whether an event closes or describes a whole frame
func isFrameResult(ev crsf.Event) bool {
	switch ev.Kind() {
	case crsf.KindPayload, crsf.KindCRC, crsf.KindError:
		return true
	}
	return false
}
