// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// crsfscope - CRSF Protocol Analyzer
//
// A CLI tool for monitoring and decoding CRSF (Crossfire) RC and telemetry
// frames in human-readable format.

package main

import (
	"os"

	"github.com/Thermoquad/crsfscope/cmd"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("crsfscope failed")
		os.Exit(1)
	}
}
