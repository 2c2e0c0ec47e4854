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
	pingTimeout     int
	pingCount       int
	pingDestination uint8
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round trip time to a device with Ping devices frames",
	Long: `Send Ping devices frames to one device and wait for its Device info answer.

This command tests bidirectional communication with a CRSF device through a
serial port or a WebSocket bridge. Each answer is timed from the moment the
ping was written.

This is useful for verifying:
  - The connection is established in both directions
  - The baud rate matches the device
  - The device answers on the expected address

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 2, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().Uint8Var(&pingDestination, "destination", crsf.AddressFlightController, "Address to ping")
}

func runPing(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("crsfscope - Ping Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Destination: %s\n", crsf.FormatAddress(uint64(pingDestination)))
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	// One reader for all pings; answers from other devices are ignored
	answers := make(chan crsf.DeviceInfo, 4)
	errChan := make(chan error, 1)
	go func() {
		assembler := newFrameAssembler(newDecoder())
		stream := NewByteStream(conn)
		for {
			samples, err := stream.Next()
			if err != nil {
				errChan <- err
				return
			}
			for _, s := range samples {
				report, _ := assembler.Feed(s)
				if report == nil || report.err != nil || !report.crc.Passed || report.payload == nil {
					continue
				}
				info, ok := report.payload.Payload.(crsf.DeviceInfo)
				if !ok {
					continue
				}
				if pingDestination != crsf.AddressBroadcast && info.Origin != pingDestination {
					continue
				}
				select {
				case answers <- info:
				default:
				}
			}
		}
	}()

	successCount := 0
	failCount := 0
	frame := crsf.NewPingDevices(pingDestination, crsf.AddressRadioTransmitter)

pings:
	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		// Drop late answers to the previous ping
	drain:
		for {
			select {
			case <-answers:
			default:
				break drain
			}
		}

		startTime := time.Now()
		if _, err := conn.Write(frame); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		select {
		case info := <-answers:
			rtt := time.Since(startTime)
			fmt.Printf("answer from %s (%s), rtt=%v\n",
				info.Name, crsf.FormatAddress(uint64(info.Origin)), rtt.Round(time.Millisecond))
			successCount++

		case err := <-errChan:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount += pingCount - i + 1
			break pings

		case <-time.After(time.Duration(pingTimeout) * time.Second):
			fmt.Printf("TIMEOUT (no answer in %ds)\n", pingTimeout)
			failCount++
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d answers received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
