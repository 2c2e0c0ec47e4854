// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int
	autoPort bool

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Decoding flags
	channelUnit = crsf.DefaultChannelUnit
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "crsfscope",
	Short: "CRSF Protocol Analyzer",
	Long: `crsfscope - A CLI tool for monitoring and analyzing CRSF (Crossfire) RC and
telemetry frames.

Every byte is run through a frame decoder that labels the address, length,
type, payload and CRC of each frame, so corrupted or unexpected frames can be
pinpointed on the wire.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 420000]
  Auto:      --auto (first USB serial adapter)
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the CRSF_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	PersistentPreRunE: configureLogging,
	SilenceUsage:      true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 420000, "Baud rate (serial only)")
	rootCmd.PersistentFlags().BoolVar(&autoPort, "auto", false, "Use the first USB serial port found")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Decoding flags
	rootCmd.PersistentFlags().Var(&channelUnit, "channel-unit",
		fmt.Sprintf("RC channel unit: %q, %q or %q", crsf.ChannelUnitMicroseconds, crsf.ChannelUnitDigital, crsf.ChannelUnitBoth))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "Log level (debug, info, warning, error)")
}

func configureLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// newDecoder creates a frame decoder configured from the root flags
func newDecoder() *crsf.Decoder {
	return crsf.NewDecoder(
		crsf.WithChannelUnit(channelUnit),
		crsf.WithLogger(logrus.WithField("component", "decoder")),
	)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
