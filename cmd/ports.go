// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/albenik/go-serial/v2/enumerator"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports on this machine.

USB ports show their vendor and product IDs. The first USB port is the one
--auto selects.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	for _, port := range ports {
		if !port.IsUSB {
			fmt.Printf("%s\n", port.Name)
			continue
		}
		fmt.Printf("%s  USB %s:%s", port.Name, port.VID, port.PID)
		if port.Product != "" {
			fmt.Printf("  %s", port.Product)
		}
		if port.SerialNumber != "" {
			fmt.Printf("  (serial %s)", port.SerialNumber)
		}
		fmt.Println()
	}
	return nil
}
