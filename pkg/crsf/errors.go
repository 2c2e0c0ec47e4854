// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the ways a byte stream can fail to form a valid frame.
type ErrorKind int

const (
	// ErrorResync is an unrecognised byte while idle. Silently skipped.
	ErrorResync ErrorKind = iota
	// ErrorInvalidLength is a declared length below MinFrameLength.
	ErrorInvalidLength
	ErrorUnrecognizedType
	ErrorLengthMismatch
	ErrorCRCFailure
	// ErrorDecodeFault is a payload that cannot be interpreted. The frame is
	// discarded and reported with an ErrorEvent.
	ErrorDecodeFault
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorResync:
		return "resync"
	case ErrorInvalidLength:
		return "invalid length"
	case ErrorUnrecognizedType:
		return "unrecognized type"
	case ErrorLengthMismatch:
		return "length mismatch"
	case ErrorCRCFailure:
		return "CRC failure"
	case ErrorDecodeFault:
		return "decode fault"
	default:
		return "unknown"
	}
}

var (
	ErrTruncatedPayload    = errors.New("payload too short")
	ErrUnterminatedString  = errors.New("string not NUL-terminated")
	ErrPayloadOverflow     = errors.New("payload exceeds declared length")
	ErrPayloadTooLarge     = errors.New("payload too large")
	errUnexpectedFrameType = errors.New("frame type byte missing")
)

// DecodeError describes a failure while processing a frame.
type DecodeError struct {
	Kind      ErrorKind
	FrameType uint8
	Err       error
}

func (e *DecodeError) Error() string {
	name, _ := FrameTypeName(e.FrameType)
	return fmt.Sprintf("%s in %s frame (0x%02X): %v", e.Kind, name, e.FrameType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeFault(frameType uint8, err error) error {
	return &DecodeError{Kind: ErrorDecodeFault, FrameType: frameType, Err: err}
}

func truncated(need, have int) error {
	return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedPayload, need, have)
}
