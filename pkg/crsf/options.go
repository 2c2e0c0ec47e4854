// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ChannelUnit selects how RC channel values are reported.
type ChannelUnit string

const (
	ChannelUnitMicroseconds ChannelUnit = "ms"
	ChannelUnitDigital      ChannelUnit = "Digital Value"
	ChannelUnitBoth         ChannelUnit = "Both"

	DefaultChannelUnit = ChannelUnitBoth
)

// ChannelUnits lists the recognised channel units.
var ChannelUnits = []ChannelUnit{ChannelUnitMicroseconds, ChannelUnitDigital, ChannelUnitBoth}

// ParseChannelUnit parses a channel unit name, ignoring case.
func ParseChannelUnit(s string) (ChannelUnit, error) {
	for _, u := range ChannelUnits {
		if strings.EqualFold(s, string(u)) {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown channel unit %q (want one of %q, %q, %q)",
		s, ChannelUnitMicroseconds, ChannelUnitDigital, ChannelUnitBoth)
}

// String implements pflag.Value.
func (u *ChannelUnit) String() string {
	if *u == "" {
		return string(DefaultChannelUnit)
	}
	return string(*u)
}

// Set implements pflag.Value.
func (u *ChannelUnit) Set(s string) error {
	parsed, err := ParseChannelUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Type implements pflag.Value.
func (u *ChannelUnit) Type() string {
	return "unit"
}

func (u ChannelUnit) valid() bool {
	for _, v := range ChannelUnits {
		if u == v {
			return true
		}
	}
	return false
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithChannelUnit sets the unit RC channel payloads are reported in. Unknown
// units fall back to DefaultChannelUnit.
func WithChannelUnit(u ChannelUnit) Option {
	return func(d *Decoder) {
		if u.valid() {
			d.unit = u
		}
	}
}

// WithLogger sets the logger used for frame resets and decode faults.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}
