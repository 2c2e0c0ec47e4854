// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import "fmt"

// BEUint interprets the first bitWidth/8 bytes of b as a big-endian unsigned
// integer. bitWidth must be a multiple of 8 between 8 and 64 and b must hold
// enough bytes; violations panic.
func BEUint(b []byte, bitWidth int) uint64 {
	n := byteWidth(bitWidth)
	if len(b) < n {
		panic(fmt.Sprintf("crsf: BEUint needs %d bytes, have %d", n, len(b)))
	}
	var v uint64
	for _, x := range b[:n] {
		v = v<<8 | uint64(x)
	}
	return v
}

// BEInt is BEUint followed by two's-complement sign extension at bitWidth.
func BEInt(b []byte, bitWidth int) int64 {
	v := BEUint(b, bitWidth)
	if bitWidth == 64 {
		return int64(v)
	}
	if v&(1<<(bitWidth-1)) != 0 {
		v |= ^uint64(0) << bitWidth
	}
	return int64(v)
}

// LEBitfield extracts bitWidth bits starting at bitOffset from a stream packed
// least significant bit first: bit 0 is the LSB of b[0], bit 8 the LSB of b[1].
func LEBitfield(b []byte, bitOffset, bitWidth int) uint32 {
	if bitWidth <= 0 || bitWidth > 32 || bitOffset < 0 || bitOffset+bitWidth > 8*len(b) {
		panic(fmt.Sprintf("crsf: LEBitfield offset %d width %d out of range for %d bytes",
			bitOffset, bitWidth, len(b)))
	}

	var v uint64
	first := bitOffset / 8
	last := (bitOffset + bitWidth - 1) / 8
	for i := last; i >= first; i-- {
		v = v<<8 | uint64(b[i])
	}
	v >>= uint(bitOffset % 8)
	return uint32(v & (1<<uint(bitWidth) - 1))
}

// PackLEBitfields packs values of bitWidth bits each contiguously, LSB first.
// Excess high bits in a value are discarded.
func PackLEBitfields(values []uint32, bitWidth int) []byte {
	if bitWidth <= 0 || bitWidth > 32 {
		panic(fmt.Sprintf("crsf: PackLEBitfields width %d out of range", bitWidth))
	}
	out := make([]byte, (len(values)*bitWidth+7)/8)
	mask := uint64(1)<<uint(bitWidth) - 1

	var acc uint64
	var accBits, idx int
	for _, v := range values {
		acc |= (uint64(v) & mask) << uint(accBits)
		accBits += bitWidth
		for accBits >= 8 {
			out[idx] = byte(acc)
			idx++
			acc >>= 8
			accBits -= 8
		}
	}
	if accBits > 0 {
		out[idx] = byte(acc)
	}
	return out
}

func byteWidth(bitWidth int) int {
	if bitWidth < 8 || bitWidth > 64 || bitWidth%8 != 0 {
		panic(fmt.Sprintf("crsf: unsupported bit width %d", bitWidth))
	}
	return bitWidth / 8
}
