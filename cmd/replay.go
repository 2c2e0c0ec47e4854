// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/capture"
	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/spf13/cobra"
)

var (
	replayStats bool
	replayHex   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Decode a recorded capture file",
	Long: `Decode a capture file written by the record command.

Every byte keeps the timestamps it was recorded with, so events and their
timestamps match what a live session would have shown.

With --stats, frames are validated and a statistics summary is printed at the
end. With --hex, the raw bytes of each frame are printed after its CRC.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "Print frame statistics at the end")
	replayCmd.Flags().BoolVar(&replayHex, "hex", false, "Print the raw bytes of each frame")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	reader, err := capture.NewReader(bufio.NewReader(f))
	if err != nil {
		return err
	}

	header := reader.Header()
	fmt.Printf("crsfscope - Replay\n")
	fmt.Printf("Source: %s\n", header.Source)
	fmt.Printf("Recorded: %s\n", header.Started.Format(time.RFC3339))
	if header.BaudRate > 0 {
		fmt.Printf("Baud rate: %d\n", header.BaudRate)
	}
	fmt.Println()

	assembler := newFrameAssembler(newDecoder())
	stats := crsf.NewStatistics()
	var frame []byte
	inFrame := false
	count := 0

	for {
		s, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		count++

		ev := assembler.decoder.Decode(s)
		if report, _ := assembler.observe(s, ev); report != nil {
			report.apply(stats)
		}

		if _, ok := ev.(crsf.AddressEvent); ok {
			frame = frame[:0]
			inFrame = true
		}
		if inFrame {
			frame = append(frame, s.Value)
		}
		if ev == nil {
			if assembler.decoder.State() == crsf.StateIdle {
				inFrame = false
			}
			continue
		}
		fmt.Print(crsf.FormatEvent(ev))

		if k := ev.Kind(); k == crsf.KindCRC || k == crsf.KindError {
			if replayHex && inFrame {
				fmt.Printf("  Bytes: %s\n", crsf.FormatHex(frame))
			}
			inFrame = false
		}
	}

	fmt.Printf("\n%d bytes replayed\n", count)
	if replayStats {
		fmt.Println()
		fmt.Print(stats.String())
	}
	return nil
}
