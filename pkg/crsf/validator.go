// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyChannelRange
	AnomalyLinkQuality
	AnomalyBatteryRemaining
	AnomalyGPSPosition
	AnomalyUnrecognizedType
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyLengthMismatch:
		return "length mismatch"
	case AnomalyChannelRange:
		return "channel out of range"
	case AnomalyLinkQuality:
		return "invalid link quality"
	case AnomalyBatteryRemaining:
		return "invalid battery remaining"
	case AnomalyGPSPosition:
		return "invalid GPS position"
	case AnomalyUnrecognizedType:
		return "unrecognized type"
	default:
		return "unknown"
	}
}

// ValidationError represents a frame whose values are structurally valid but
// implausible
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateType checks a type event against the protocol tables.
func ValidateType(ev TypeEvent) []ValidationError {
	errors := []ValidationError{}

	if !ev.Recognised {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnrecognizedType,
			Message: fmt.Sprintf("Unrecognised frame type 0x%02X", ev.FrameType),
			Details: map[string]interface{}{"frame_type": ev.FrameType},
		})
	}

	if ev.LengthMismatch {
		errors = append(errors, ValidationError{
			Type: AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s payload length %d outside expected %s",
				ev.Name, ev.PayloadLength, ev.Expected),
			Details: map[string]interface{}{
				"received": ev.PayloadLength,
				"min":      ev.Expected.Min,
				"max":      ev.Expected.Max,
			},
		})
	}

	return errors
}

// ValidatePayload detects anomalous values in a decoded payload.
// Returns a slice of validation errors (empty if the payload is plausible)
func ValidatePayload(ev PayloadEvent) []ValidationError {
	switch p := ev.Payload.(type) {
	case RCChannels:
		return validateRCChannels(p)
	case LinkStatistics:
		return validateLinkStatistics(p)
	case BatterySensor:
		return validateBatterySensor(p)
	case GPS:
		return validateGPS(p)
	}
	return []ValidationError{}
}

// validateRCChannels flags channels outside the range transmitters send
func validateRCChannels(c RCChannels) []ValidationError {
	errors := []ValidationError{}

	for i, raw := range c.Raw {
		if raw < ChannelMinValid || raw > ChannelMaxValid {
			errors = append(errors, ValidationError{
				Type: AnomalyChannelRange,
				Message: fmt.Sprintf("CH%d value=%d outside %d-%d",
					i+1, raw, ChannelMinValid, ChannelMaxValid),
				Details: map[string]interface{}{"channel": i + 1, "value": raw},
			})
		}
	}

	return errors
}

func validateLinkStatistics(l LinkStatistics) []ValidationError {
	errors := []ValidationError{}

	if l.UplinkLinkQuality > 100 {
		errors = append(errors, ValidationError{
			Type:    AnomalyLinkQuality,
			Message: fmt.Sprintf("Uplink link quality=%d%% (max 100)", l.UplinkLinkQuality),
			Details: map[string]interface{}{"uplink_lq": l.UplinkLinkQuality},
		})
	}

	if l.DownlinkLinkQuality > 100 {
		errors = append(errors, ValidationError{
			Type:    AnomalyLinkQuality,
			Message: fmt.Sprintf("Downlink link quality=%d%% (max 100)", l.DownlinkLinkQuality),
			Details: map[string]interface{}{"downlink_lq": l.DownlinkLinkQuality},
		})
	}

	return errors
}

func validateBatterySensor(b BatterySensor) []ValidationError {
	if b.Remaining <= 100 {
		return []ValidationError{}
	}
	return []ValidationError{{
		Type:    AnomalyBatteryRemaining,
		Message: fmt.Sprintf("Battery remaining=%d%% (max 100)", b.Remaining),
		Details: map[string]interface{}{"remaining": b.Remaining},
	}}
}

func validateGPS(g GPS) []ValidationError {
	errors := []ValidationError{}

	if g.Latitude < -90 || g.Latitude > 90 || g.Longitude < -180 || g.Longitude > 180 {
		errors = append(errors, ValidationError{
			Type:    AnomalyGPSPosition,
			Message: fmt.Sprintf("GPS position out of range (lat=%.7f, lon=%.7f)", g.Latitude, g.Longitude),
			Details: map[string]interface{}{"latitude": g.Latitude, "longitude": g.Longitude},
		})
	}

	return errors
}
