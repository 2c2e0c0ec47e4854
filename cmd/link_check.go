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

var linkCheckDuration int

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Check connection stability over a period of time",
	Long: `Keep the connection open for a duration and report what was received.

Every second a status line shows the bytes and frames received so far. The
check fails if the connection drops or no valid frame arrives. Useful for
debugging serial adapters and WebSocket bridges that drop out.

Exit codes:
  0 - Check completed normally
  1 - Check failed
  2 - Connection error`,
	RunE: runLinkCheck,
}

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckDuration, "duration", 30, "Check duration in seconds")
}

// linkTally counts what arrived during a link check
type linkTally struct {
	bytes  int
	frames int
	valid  int
}

func (t *linkTally) add(r *frameReport) {
	t.frames++
	if r.err == nil && r.crc.Passed {
		t.valid++
	}
}

func (t linkTally) print(elapsed time.Duration) {
	fmt.Printf("\n--- Check results ---\n")
	fmt.Printf("Duration: %v\n", elapsed.Round(time.Second))
	fmt.Printf("Bytes received: %d\n", t.bytes)
	fmt.Printf("Frames received: %d (%d valid)\n", t.frames, t.valid)
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("crsfscope - Link Check\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkCheckDuration)

	// Start a goroutine to read from the connection
	stream := NewByteStream(conn)
	readChan := make(chan []crsf.ByteSample, 100)
	errChan := make(chan error, 1)

	go func() {
		for {
			samples, err := stream.Next()
			if err != nil {
				errChan <- err
				return
			}
			if len(samples) > 0 {
				readChan <- samples
			}
		}
	}()

	assembler := newFrameAssembler(newDecoder())
	var tally linkTally
	started := time.Now()
	endTime := started.Add(time.Duration(linkCheckDuration) * time.Second)

	status := time.NewTicker(time.Second)
	defer status.Stop()

	fmt.Printf("Listening for data...\n\n")

	for time.Now().Before(endTime) {
		select {
		case samples := <-readChan:
			tally.bytes += len(samples)
			for _, s := range samples {
				if report, _ := assembler.Feed(s); report != nil {
					tally.add(report)
				}
			}

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			tally.print(time.Since(started))
			fmt.Printf("Result: FAILED (connection error)\n")
			os.Exit(1)

		case <-status.C:
			// Heartbeat to show the check is running
			fmt.Printf("[%s] %d bytes, %d frames (%d valid), %.0fs remaining\n",
				time.Now().Format("15:04:05.000"), tally.bytes, tally.frames, tally.valid,
				time.Until(endTime).Seconds())
		}
	}

	tally.print(time.Since(started))
	if tally.valid == 0 {
		fmt.Printf("Result: FAILED (no valid frames)\n")
		os.Exit(1)
	}
	fmt.Printf("Result: PASSED (connection stable)\n")
	return nil
}
