// SPDX-License-Identifier: EPL-2.0

package checksum

import (
	"crypto/md5"
	"hash"
)

// Md5 is a running MD5 digest.
type Md5 struct {
	h hash.Hash
}

func NewMd5() *Md5 {
	return &Md5{h: md5.New()}
}

func (m *Md5) ProcessByte(b byte) {
	_, _ = m.h.Write([]byte{b})
}

func (m *Md5) Process(p []byte) {
	_, _ = m.h.Write(p)
}

// Sum returns the digest of everything processed so far.
func (m *Md5) Sum() [16]byte {
	var out [16]byte
	m.h.Sum(out[:0])

	return out
}

func (m *Md5) Reset() { m.h.Reset() }

var (
	_ Monitor = (*Crc8Ccitt)(nil)
	_ Monitor = (*Crc16Ansi)(nil)
	_ Monitor = (*Crc16AnsiLe)(nil)
	_ Monitor = (*Crc32)(nil)
	_ Monitor = (*Md5)(nil)
)
