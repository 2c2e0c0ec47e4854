// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/capture"
	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	recordOutput   string
	recordDuration int
	recordQuiet    bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the timestamped byte stream to a capture file",
	Long: `Record every received byte with its timestamps to a capture file.

Captures can be decoded later with the replay command, with the same output as
a live session. Decoded events are printed while recording unless --quiet is
set.

Recording stops after --duration seconds, when the connection closes, or on
Ctrl+C.

Examples:
  crsfscope record --port /dev/ttyUSB0 --output flight.cbor
  crsfscope record --url ws://bridge.local/crsf --output bench.cbor --duration 60`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Capture file to write (required)")
	recordCmd.Flags().IntVar(&recordDuration, "duration", 0, "Stop after N seconds (0 records until interrupted)")
	recordCmd.Flags().BoolVarP(&recordQuiet, "quiet", "q", false, "Do not print decoded events")
	_ = recordCmd.MarkFlagRequired("output")
}

func runRecord(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	f, err := os.Create(recordOutput)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	out := bufio.NewWriter(f)
	writer, err := capture.NewWriter(out, capture.Header{
		Source:   connInfo,
		BaudRate: sampleRate(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("crsfscope - Recording\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Output: %s\n", recordOutput)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	decoder := newDecoder()
	stream := NewByteStream(conn)

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

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	var deadline <-chan time.Time
	if recordDuration > 0 {
		deadline = time.After(time.Duration(recordDuration) * time.Second)
	}

loop:
	for {
		select {
		case samples := <-sampleChan:
			if err := writer.WriteAll(samples); err != nil {
				return err
			}
			if recordQuiet {
				continue
			}
			for _, ev := range decoder.DecodeAll(samples) {
				fmt.Print(crsf.FormatEvent(ev))
			}

		case <-errChan:
			logrus.Info("Connection closed")
			break loop

		case <-interrupt:
			break loop

		case <-deadline:
			break loop
		}
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write capture file: %w", err)
	}

	fmt.Printf("\nRecorded %d bytes to %s\n", writer.Count(), recordOutput)
	return nil
}
