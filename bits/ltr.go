// SPDX-License-Identifier: EPL-2.0

package bits

import (
	"io"

	"github.com/ik5/mediakit/media"
)

var errOutOfBits = media.IOError(io.ErrUnexpectedEOF)

// ReaderLtr reads bits MSB-first. The cache holds up to 64 bits aligned to its
// top.
type ReaderLtr struct {
	buf   []byte
	src   io.ByteReader
	cache uint64
	n     uint
}

// NewReaderLtr reads from buf.
func NewReaderLtr(buf []byte) *ReaderLtr {
	return &ReaderLtr{buf: buf}
}

// NewStreamLtr reads from src one byte at a time, never pulling more bytes
// than the bits requested need.
func NewStreamLtr(src io.ByteReader) *ReaderLtr {
	return &ReaderLtr{src: src}
}

func (r *ReaderLtr) push(b byte) {
	r.cache |= uint64(b) << (56 - r.n)
	r.n += 8
}

func (r *ReaderLtr) ensure(bits uint) error {
	if r.src != nil {
		for r.n < bits {
			b, err := r.src.ReadByte()
			if err != nil {
				return errOutOfBits
			}
			r.push(b)
		}
		return nil
	}

	for r.n <= 56 && len(r.buf) > 0 {
		r.push(r.buf[0])
		r.buf = r.buf[1:]
	}
	if r.n < bits {
		return errOutOfBits
	}

	return nil
}

func (r *ReaderLtr) take(bits uint) uint32 {
	v := uint32(r.cache >> (64 - bits))
	r.cache <<= bits
	r.n -= bits

	return v
}

// ReadBit returns the next bit as 0 or 1.
func (r *ReaderLtr) ReadBit() (uint32, error) {
	return r.ReadBitsLeq32(1)
}

func (r *ReaderLtr) ReadBool() (bool, error) {
	v, err := r.ReadBitsLeq32(1)
	return v == 1, err
}

// ReadBitsLeq32 reads n bits, 0 <= n <= 32.
func (r *ReaderLtr) ReadBitsLeq32(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 32 {
		panic("bits: ReadBitsLeq32 with more than 32 bits")
	}
	if err := r.ensure(n); err != nil {
		return 0, err
	}

	return r.take(n), nil
}

// ReadBitsLeq64 reads n bits, 0 <= n <= 64.
func (r *ReaderLtr) ReadBitsLeq64(n uint) (uint64, error) {
	if n <= 32 {
		v, err := r.ReadBitsLeq32(n)
		return uint64(v), err
	}
	if n > 64 {
		panic("bits: ReadBitsLeq64 with more than 64 bits")
	}

	hi, err := r.ReadBitsLeq32(n - 32)
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadBitsLeq32(32)
	if err != nil {
		return 0, err
	}

	return uint64(hi)<<32 | uint64(lo), nil
}

// ReadBitsLeq32Signed reads n bits as a two's complement value.
func (r *ReaderLtr) ReadBitsLeq32Signed(n uint) (int32, error) {
	v, err := r.ReadBitsLeq32(n)
	if err != nil || n == 0 {
		return 0, err
	}
	shift := 32 - n

	return int32(v<<shift) >> shift, nil
}

// PeekBits returns the next n bits, n <= 32, without consuming them.
func (r *ReaderLtr) PeekBits(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := r.ensure(n); err != nil {
		return 0, err
	}

	return uint32(r.cache >> (64 - n)), nil
}

func (r *ReaderLtr) IgnoreBits(n uint) error {
	for n > 0 {
		step := min(n, 32)
		if _, err := r.ReadBitsLeq32(step); err != nil {
			return err
		}
		n -= step
	}

	return nil
}

// ReadUnaryZeros counts zero bits up to and including the terminating one.
// The terminating bit is not counted.
func (r *ReaderLtr) ReadUnaryZeros() (uint32, error) {
	var count uint32
	for {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			return count, nil
		}
		count++
	}
}

// ReadUnaryOnes is ReadUnaryZeros with the roles of the bits swapped.
func (r *ReaderLtr) ReadUnaryOnes() (uint32, error) {
	var count uint32
	for {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == 0 {
			return count, nil
		}
		count++
	}
}

// AlignToByte drops the bits left in the current byte.
func (r *ReaderLtr) AlignToByte() {
	drop := r.n % 8
	r.cache <<= drop
	r.n -= drop
}

// BitsLeft is the number of unread bits. For a stream reader only the cached
// bits are known.
func (r *ReaderLtr) BitsLeft() uint64 {
	return uint64(r.n) + 8*uint64(len(r.buf))
}
