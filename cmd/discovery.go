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
	discoveryTimeout     int
	discoveryDestination uint8
	discoveryOrigin      uint8
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover devices via serial or WebSocket",
	Long: `Send a Ping devices frame and list every device that answers.

Each CRSF device that receives the ping answers with a Device info frame
addressed to the origin, carrying its name, serial number, hardware and
firmware IDs and the number of configurable parameters.

By default the ping is broadcast with the radio transmitter as origin, the
way a handset asks the bus for its devices.

Examples:
  # Discover devices behind a transmitter module
  crsfscope discovery --port /dev/ttyUSB0

  # Ask only the flight controller
  crsfscope discovery --port /dev/ttyACM0 --destination 0xC8

Exit codes:
  0 - Discovery successful (at least one device found)
  1 - Discovery failed (no devices or timeout)
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 3, "Timeout in seconds for discovery")
	discoveryCmd.Flags().Uint8Var(&discoveryDestination, "destination", crsf.AddressBroadcast, "Address to ping")
	discoveryCmd.Flags().Uint8Var(&discoveryOrigin, "origin", crsf.AddressRadioTransmitter, "Address answers are sent to")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("crsfscope - Device Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Destination: %s\n", crsf.FormatAddress(uint64(discoveryDestination)))
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	decoder := newDecoder()
	stream := NewByteStream(conn)

	// Send ping
	fmt.Printf("Sending Ping devices (origin=%s)...\n", crsf.FormatAddress(uint64(discoveryOrigin)))
	if _, err := conn.Write(crsf.NewPingDevices(discoveryDestination, discoveryOrigin)); err != nil {
		fmt.Printf("SEND FAILED: %v\n", err)
		os.Exit(2)
	}

	// Collect Device info answers
	found := make(chan crsf.DeviceInfo, 16)
	errChan := make(chan error, 1)

	go func() {
		var pending *crsf.DeviceInfo
		for {
			samples, err := stream.Next()
			if err != nil {
				errChan <- err
				return
			}

			for _, s := range samples {
				switch ev := decoder.Decode(s).(type) {
				case crsf.PayloadEvent:
					pending = nil
					if info, ok := ev.Payload.(crsf.DeviceInfo); ok {
						pending = &info
					}
				case crsf.CRCEvent:
					// Only report answers that pass their CRC
					if pending != nil && ev.Passed {
						found <- *pending
					}
					pending = nil
				case crsf.ErrorEvent:
					pending = nil
				}
			}
		}
	}()

	devices := make(map[uint8]crsf.DeviceInfo)
	timeout := time.After(time.Duration(discoveryTimeout) * time.Second)

collect:
	for {
		select {
		case info := <-found:
			if _, seen := devices[info.Origin]; seen {
				continue
			}
			devices[info.Origin] = info
			fmt.Printf("\nDevice found:\n")
			fmt.Printf("  Address: %s\n", crsf.FormatAddress(uint64(info.Origin)))
			fmt.Printf("  Name: %s\n", info.Name)
			fmt.Printf("  Serial: 0x%08X\n", info.SerialNumber)
			fmt.Printf("  Hardware ID: 0x%08X\n", info.HardwareID)
			fmt.Printf("  Firmware ID: 0x%08X\n", info.FirmwareID)
			fmt.Printf("  Parameters: %d (version %d)\n", info.ParameterCount, info.ParameterVersion)

		case err := <-errChan:
			fmt.Printf("READ FAILED: %v\n", err)
			os.Exit(2)

		case <-timeout:
			// Devices answer as soon as they see the ping, so the timeout
			// ends every discovery
			break collect
		}
	}

	// Summary
	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Devices found: %d\n", len(devices))

	if len(devices) == 0 {
		fmt.Printf("No devices discovered. Check connection, baud rate and device power.\n")
		os.Exit(1)
	}

	return nil
}
