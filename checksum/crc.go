// SPDX-License-Identifier: EPL-2.0

package checksum

// Crc8Ccitt is CRC-8 with polynomial 0x07, as used by FLAC frame headers.
type Crc8Ccitt struct {
	init uint8
	crc  uint8
}

func NewCrc8Ccitt(init uint8) *Crc8Ccitt {
	return &Crc8Ccitt{init: init, crc: init}
}

func (c *Crc8Ccitt) ProcessByte(b byte) {
	c.crc = crc8Table[c.crc^b]
}

func (c *Crc8Ccitt) Process(p []byte) {
	for _, b := range p {
		c.crc = crc8Table[c.crc^b]
	}
}

func (c *Crc8Ccitt) Sum() uint8 { return c.crc }
func (c *Crc8Ccitt) Reset()     { c.crc = c.init }

// Crc16Ansi is the MSB-first CRC-16 with polynomial 0x8005, as used by FLAC
// frame footers.
type Crc16Ansi struct {
	init uint16
	crc  uint16
}

func NewCrc16Ansi(init uint16) *Crc16Ansi {
	return &Crc16Ansi{init: init, crc: init}
}

func (c *Crc16Ansi) ProcessByte(b byte) {
	c.crc = (c.crc << 8) ^ crc16Table[byte(c.crc>>8)^b]
}

func (c *Crc16Ansi) Process(p []byte) {
	for _, b := range p {
		c.crc = (c.crc << 8) ^ crc16Table[byte(c.crc>>8)^b]
	}
}

func (c *Crc16Ansi) Sum() uint16 { return c.crc }
func (c *Crc16Ansi) Reset()      { c.crc = c.init }

// Crc16AnsiLe is the reflected form of Crc16Ansi, as used by MPEG audio.
type Crc16AnsiLe struct {
	init uint16
	crc  uint16
}

func NewCrc16AnsiLe(init uint16) *Crc16AnsiLe {
	return &Crc16AnsiLe{init: init, crc: init}
}

func (c *Crc16AnsiLe) ProcessByte(b byte) {
	c.crc = (c.crc >> 8) ^ crc16LeTable[byte(c.crc)^b]
}

func (c *Crc16AnsiLe) Process(p []byte) {
	for _, b := range p {
		c.crc = (c.crc >> 8) ^ crc16LeTable[byte(c.crc)^b]
	}
}

func (c *Crc16AnsiLe) Sum() uint16 { return c.crc }
func (c *Crc16AnsiLe) Reset()      { c.crc = c.init }

// Crc32 is the MSB-first CRC-32 with polynomial 0x04C11DB7. An initial value
// of 0 gives the Ogg page checksum, 0xffffffff the MPEG-2 one.
type Crc32 struct {
	init uint32
	crc  uint32
}

func NewCrc32(init uint32) *Crc32 {
	return &Crc32{init: init, crc: init}
}

func (c *Crc32) ProcessByte(b byte) {
	c.crc = (c.crc << 8) ^ crc32Table[byte(c.crc>>24)^b]
}

func (c *Crc32) Process(p []byte) {
	for _, b := range p {
		c.crc = (c.crc << 8) ^ crc32Table[byte(c.crc>>24)^b]
	}
}

func (c *Crc32) Sum() uint32 { return c.crc }
func (c *Crc32) Reset()      { c.crc = c.init }
