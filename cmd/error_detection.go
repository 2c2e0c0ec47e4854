// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and errors",
	Long: `Track frame errors, malformed data, and anomalous values with statistics.

This command validates each frame and detects:
  - Malformed frames (length mismatches, unrecognised frame types)
  - CRC errors and payload decode failures
  - Anomalous values (channels outside 172-1811, link quality above 100%)
  - Statistics and trends (frame rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// printFrameError prints a discarded frame in highlighted format
func printFrameError(r *frameReport) {
	timestamp := r.start.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %s\n", timestamp, r.label())
	fmt.Printf("  %s\n", r.err.Message)
	fmt.Printf("  >>> FRAME DISCARDED <<<\n\n")
}

// printCRCError prints a frame whose CRC did not match
func printCRCError(r *frameReport) {
	timestamp := r.start.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mCRC ERROR:\033[0m %s\n", timestamp, r.label())
	fmt.Printf("  Received: 0x%02X, computed: 0x%02X\n", r.crc.Received, r.crc.Computed)
	if r.payload != nil {
		fmt.Printf("  Payload (unverified): %s\n", r.payload.Text)
	}
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(r *frameReport) {
	timestamp := r.start.Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, r.label())
	if r.crc != nil && r.crc.Passed {
		fmt.Printf("  CRC: \033[1;32mOK\033[0m\n")
	}

	for i, err := range r.issues {
		switch err.Type {
		case crsf.AnomalyLengthMismatch, crsf.AnomalyUnrecognizedType:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case crsf.AnomalyChannelRange:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if value, ok := err.Details["value"].(uint16); ok {
				fmt.Printf("    %d us\n", crsf.ChannelMicroseconds(value))
			}

		case crsf.AnomalyLinkQuality, crsf.AnomalyBatteryRemaining, crsf.AnomalyGPSPosition:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	if r.payload != nil {
		fmt.Printf("  Payload: %s\n", r.payload.Text)
	}
	fmt.Printf("  >>> FRAME FLAGGED <<<\n\n")
}

// printReport prints a frame in text mode
func printReport(r *frameReport) {
	switch {
	case r.err != nil:
		printFrameError(r)
	case !r.crc.Passed:
		printCRCError(r)
	case len(r.issues) > 0:
		printValidationErrors(r)
	case r.frameType == crsf.FrameTypeDeviceInfo && r.payload != nil:
		// Always print device info (for debugging)
		fmt.Printf("[%s] \033[1;32mDEVICE INFO:\033[0m %s\n\n", r.start.Format("15:04:05.000"), r.payload.Text)
	case showAll:
		for _, u := range r.updates {
			fmt.Print(crsf.FormatEvent(u.event))
		}
		fmt.Println()
	}
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(conn Connection, connInfo string) error {
	assembler := newFrameAssembler(newDecoder())
	stream := NewByteStream(conn)

	// Create TUI program
	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	// Reader goroutine
	go func() {
		for {
			samples, err := stream.Next()
			if err != nil {
				if errors.Is(err, ErrConnectionClosed) {
					p.Send(connectionClosedMsg{})
					return
				}
				logrus.WithError(err).Warn("Read error")
				continue
			}

			for _, s := range samples {
				report, synced := assembler.Feed(s)
				if synced {
					p.Send(syncMsg{invalidBytes: assembler.skipped})
				}
				if report != nil {
					p.Send(frameMsg{report: report})
				}
			}
		}
	}()

	// Run TUI
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(conn Connection, connInfo string) error {
	fmt.Printf("crsfscope - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	assembler := newFrameAssembler(newDecoder())
	stats := crsf.NewStatistics()
	stream := NewByteStream(conn)

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking reads
	sampleChan := make(chan []crsf.ByteSample, 10)
	errChan := make(chan error, 1)
	go func() {
		for {
			samples, err := stream.Next()
			if err != nil {
				if errors.Is(err, ErrConnectionClosed) {
					errChan <- err
					return
				}
				logrus.WithError(err).Warn("Read error")
				continue
			}
			sampleChan <- samples
		}
	}()

	for {
		select {
		case samples := <-sampleChan:
			for _, s := range samples {
				report, synced := assembler.Feed(s)
				if synced {
					if assembler.skipped > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", assembler.skipped)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}
				if report == nil {
					continue
				}
				report.apply(stats)
				printReport(report)
			}

		case <-statsTicker.C:
			// Print statistics
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case <-errChan:
			logrus.Info("Connection closed")
			fmt.Println()
			fmt.Print(stats.String())
			return nil
		}
	}
}
