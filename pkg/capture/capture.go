// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture stores timestamped CRSF byte streams as CBOR sequences.
//
// A capture file is a Header followed by one Record per received byte. Times
// are nanoseconds relative to Header.Started so records stay small.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the capture format written by this package.
const FormatVersion = 1

// ErrUnsupportedVersion is returned for captures written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported capture version")

// encMode keeps nanosecond precision on Header.Started.
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Header describes where and when a capture was taken.
type Header struct {
	Version  int       `cbor:"0,keyasint"`
	Source   string    `cbor:"1,keyasint"`
	BaudRate int       `cbor:"2,keyasint,omitempty"`
	Started  time.Time `cbor:"3,keyasint"`
}

// Record is one captured byte.
type Record struct {
	Value byte  `cbor:"0,keyasint"`
	Start int64 `cbor:"1,keyasint"` // ns since Header.Started
	End   int64 `cbor:"2,keyasint"`
}

// Writer writes a capture to an underlying stream.
type Writer struct {
	enc    *cbor.Encoder
	header Header
	count  int
}

// NewWriter writes the header and returns a Writer for the records.
func NewWriter(w io.Writer, header Header) (*Writer, error) {
	header.Version = FormatVersion
	if header.Started.IsZero() {
		header.Started = time.Now()
	}
	enc := encMode.NewEncoder(w)
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return &Writer{enc: enc, header: header}, nil
}

// Header returns the header written to the capture.
func (w *Writer) Header() Header {
	return w.header
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// Write appends one sample.
func (w *Writer) Write(s crsf.ByteSample) error {
	rec := Record{
		Value: s.Value,
		Start: s.Start.Sub(w.header.Started).Nanoseconds(),
		End:   s.End.Sub(w.header.Started).Nanoseconds(),
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// WriteAll appends samples in order.
func (w *Writer) WriteAll(samples []crsf.ByteSample) error {
	for _, s := range samples {
		if err := w.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// Reader reads a capture written by Writer.
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the capture header.
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)
	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}
	if header.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, header.Version, FormatVersion)
	}
	return &Reader{dec: dec, header: header}, nil
}

// Header returns the capture header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next sample, or io.EOF after the last one.
func (r *Reader) Next() (crsf.ByteSample, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return crsf.ByteSample{}, io.EOF
		}
		return crsf.ByteSample{}, fmt.Errorf("failed to read capture record: %w", err)
	}
	return crsf.ByteSample{
		Value: rec.Value,
		Start: r.header.Started.Add(time.Duration(rec.Start)),
		End:   r.header.Started.Add(time.Duration(rec.End)),
	}, nil
}

// ReadAll returns every remaining sample.
func (r *Reader) ReadAll() ([]crsf.ByteSample, error) {
	var samples []crsf.ByteSample
	for {
		s, err := r.Next()
		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return samples, err
		}
		samples = append(samples, s)
	}
}
