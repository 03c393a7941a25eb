// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"encoding/binary"
	"math"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

var be = binary.BigEndian

const (
	headerLen      = 8
	largeHeaderLen = 16
	fullHeaderLen  = 4

	// maxConfigAtomLen bounds decoder configuration atoms copied whole.
	maxConfigAtomLen = 1 << 10
)

var errAtomSize = media.DecodeError("atom size is invalid")

// AtomHeader describes one atom. The payload starts at Pos+HeaderLen.
type AtomHeader struct {
	Type FourCC
	// Pos is the stream position of the size field.
	Pos uint64
	// HeaderLen grows by 4 once the full box header has been read.
	HeaderLen uint64
	// AtomLen is the total atom length. Zero means the atom extends to the
	// end of its parent, or of the stream at the top level.
	AtomLen uint64
}

// ReadAtomHeader reads a compact or 64-bit atom header. The atom type must
// be a printable FourCC.
func ReadAtomHeader(r stream.ByteReader) (AtomHeader, error) {
	return readAtomHeader(r, false)
}

func readAtomHeader(r stream.ByteReader, anyType bool) (AtomHeader, error) {
	pos := r.Pos()
	size, err := r.ReadBeU32()
	if err != nil {
		return AtomHeader{}, err
	}
	typ, err := r.ReadQuadBytes()
	if err != nil {
		return AtomHeader{}, err
	}

	h := AtomHeader{Type: FourCC(typ), Pos: pos, HeaderLen: headerLen}
	if !anyType && !h.Type.Valid() {
		return AtomHeader{}, media.DecodeError("invalid atom type")
	}

	switch size {
	case 0:
	case 1:
		large, err := r.ReadBeU64()
		if err != nil {
			return AtomHeader{}, err
		}
		if large < largeHeaderLen {
			return AtomHeader{}, errAtomSize
		}
		h.HeaderLen = largeHeaderLen
		h.AtomLen = large
	default:
		if size < headerLen {
			return AtomHeader{}, errAtomSize
		}
		h.AtomLen = uint64(size)
	}

	return h, nil
}

// Bounded reports whether the atom length is known.
func (h AtomHeader) Bounded() bool {
	return h.AtomLen != 0
}

// DataPos is the position of the first payload byte.
func (h AtomHeader) DataPos() uint64 {
	return h.Pos + h.HeaderLen
}

// DataLen is the payload length, unknown for unbounded atoms.
func (h AtomHeader) DataLen() (uint64, bool) {
	if !h.Bounded() {
		return 0, false
	}

	return h.AtomLen - h.HeaderLen, true
}

// DataUnreadAt is the number of payload bytes at or after pos.
func (h AtomHeader) DataUnreadAt(pos uint64) (uint64, bool) {
	n, ok := h.DataLen()
	if !ok {
		return 0, false
	}

	start := h.DataPos()
	switch {
	case pos >= start+n:
		return 0, true
	case pos >= start:
		return n - (pos - start), true
	default:
		return n, true
	}
}

// ReadFullHeader reads the version and flags that prefix a full box payload.
func (h *AtomHeader) ReadFullHeader(r stream.ByteReader) (uint8, uint32, error) {
	if n, ok := h.DataLen(); ok && n < fullHeaderLen {
		return 0, 0, media.DecodeError("atom too small for a full box header")
	}

	v, err := r.ReadBeU32()
	if err != nil {
		return 0, 0, err
	}
	h.HeaderLen += fullHeaderLen

	return uint8(v >> 24), v & 0xffffff, nil
}

// AppendAtomHeader encodes a header for an atom of size total bytes,
// promoting to the 64-bit form when size does not fit 32 bits. A size of
// zero encodes an unbounded atom.
func AppendAtomHeader(dst []byte, typ FourCC, size uint64) []byte {
	if size > math.MaxUint32 {
		dst = be.AppendUint32(dst, 1)
		dst = append(dst, typ[:]...)
		return be.AppendUint64(dst, size)
	}

	dst = be.AppendUint32(dst, uint32(size))
	return append(dst, typ[:]...)
}

// Encode returns the header bytes, 16 bytes when the header was read in the
// 64-bit form or AtomLen needs it.
func (h AtomHeader) Encode() []byte {
	if h.HeaderLen >= largeHeaderLen || h.AtomLen > math.MaxUint32 {
		dst := be.AppendUint32(nil, 1)
		dst = append(dst, h.Type[:]...)
		return be.AppendUint64(dst, h.AtomLen)
	}

	return AppendAtomHeader(nil, h.Type, h.AtomLen)
}

// fields reads big-endian payload fields and keeps the first error, so a
// parser can read a fixed layout and check once.
type fields struct {
	r   stream.ByteReader
	err error
}

func (f *fields) u8() uint8 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadU8()
	f.err = err

	return v
}

func (f *fields) u16() uint16 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadBeU16()
	f.err = err

	return v
}

func (f *fields) u24() uint32 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadBeU24()
	f.err = err

	return v
}

func (f *fields) u32() uint32 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadBeU32()
	f.err = err

	return v
}

func (f *fields) u64() uint64 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadBeU64()
	f.err = err

	return v
}

func (f *fields) f64() float64 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadBeF64()
	f.err = err

	return v
}

func (f *fields) fourcc() FourCC {
	if f.err != nil {
		return FourCC{}
	}
	v, err := f.r.ReadQuadBytes()
	f.err = err

	return FourCC(v)
}

func (f *fields) bytes(n uint64) []byte {
	if f.err != nil {
		return nil
	}
	if n > math.MaxInt32 {
		f.err = media.LimitError("atom payload", n)
		return nil
	}
	v, err := f.r.ReadBoxedSliceExact(int(n))
	f.err = err

	return v
}

func (f *fields) skip(n uint64) {
	if f.err != nil {
		return
	}
	f.err = f.r.IgnoreBytes(n)
}
