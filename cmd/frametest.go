// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/spf13/cobra"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid CRSF frame",
	Long: `Wait for a valid CRSF frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any complete
CRSF frame whose CRC matches. Bytes outside a frame are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking wiring and baud rate before a longer capture.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

// validFrame collects the events of the frame that passed its CRC
type validFrame struct {
	address crsf.AddressEvent
	length  crsf.LengthEvent
	typ     crsf.TypeEvent
	payload *crsf.PayloadEvent
	crc     crsf.CRCEvent
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("crsfscope - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid CRSF frame...\n\n")

	decoder := newDecoder()
	stream := NewByteStream(conn)

	// Channel for frame reception
	frameChan := make(chan validFrame, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		skipped := 0
		var cur validFrame
		for {
			samples, err := stream.Next()
			if err != nil {
				errChan <- err
				return
			}

			for _, s := range samples {
				switch ev := decoder.Decode(s).(type) {
				case nil:
					if decoder.State() == crsf.StateIdle {
						skipped++
					}
				case crsf.AddressEvent:
					cur = validFrame{address: ev}
				case crsf.LengthEvent:
					cur.length = ev
				case crsf.TypeEvent:
					cur.typ = ev
				case crsf.PayloadEvent:
					cur.payload = &ev
				case crsf.CRCEvent:
					if !ev.Passed {
						continue
					}
					cur.crc = ev
					if skipped > 0 {
						fmt.Printf("(skipped %d bytes before sync)\n", skipped)
					}
					frameChan <- cur
					return
				}
			}
		}
	}()

	// Wait for frame or timeout
	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Type: %s\n", crsf.FormatFrameType(frame.typ.FrameType))
		fmt.Printf("  Address: %s\n", crsf.FormatAddress(uint64(frame.address.Address)))
		fmt.Printf("  Length: %d bytes\n", frame.length.DeclaredLength)
		if frame.payload != nil {
			fmt.Printf("  Payload: %s\n", frame.payload.Text)
		}
		fmt.Printf("  CRC: 0x%02X\n", frame.crc.Received)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
