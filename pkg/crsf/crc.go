// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

// CalculateCRC computes the CRC-8/DVB-S2 checksum (polynomial 0xD5, MSB first,
// no reflection, no final XOR) for the given data. CRSF frames carry it over
// the type byte and payload.
func CalculateCRC(data []byte) uint8 {
	return updateCRC(crcInitial, data)
}

// frameCRC computes the CRC of a frame from its type and payload without
// concatenating them.
func frameCRC(frameType uint8, payload []byte) uint8 {
	return updateCRC(updateCRC(crcInitial, []byte{frameType}), payload)
}

func updateCRC(crc uint8, data []byte) uint8 {
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
