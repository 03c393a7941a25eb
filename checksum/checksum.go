// SPDX-License-Identifier: EPL-2.0

// Package checksum provides running checksums that can observe a byte stream
// as it is read.
package checksum

// Monitor observes bytes as they are consumed.
type Monitor interface {
	ProcessByte(b byte)
	Process(p []byte)
}

var (
	crc8Table    [256]uint8
	crc16Table   [256]uint16
	crc16LeTable [256]uint16
	crc32Table   [256]uint32
)

func init() {
	for i := 0; i < 256; i++ {
		c8 := uint8(i)
		for j := 0; j < 8; j++ {
			if c8&0x80 != 0 {
				c8 = (c8 << 1) ^ 0x07
			} else {
				c8 <<= 1
			}
		}
		crc8Table[i] = c8

		c16 := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if c16&0x8000 != 0 {
				c16 = (c16 << 1) ^ 0x8005
			} else {
				c16 <<= 1
			}
		}
		crc16Table[i] = c16

		c16le := uint16(i)
		for j := 0; j < 8; j++ {
			if c16le&1 != 0 {
				c16le = (c16le >> 1) ^ 0xA001
			} else {
				c16le >>= 1
			}
		}
		crc16LeTable[i] = c16le

		c32 := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c32&0x80000000 != 0 {
				c32 = (c32 << 1) ^ 0x04C11DB7
			} else {
				c32 <<= 1
			}
		}
		crc32Table[i] = c32
	}
}
