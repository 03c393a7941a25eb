// SPDX-License-Identifier: EPL-2.0

package bits

// ReaderRtl reads bits LSB-first from a byte slice. The cache is aligned to
// its bottom.
type ReaderRtl struct {
	buf   []byte
	cache uint64
	n     uint
}

func NewReaderRtl(buf []byte) *ReaderRtl {
	return &ReaderRtl{buf: buf}
}

func (r *ReaderRtl) ensure(bits uint) error {
	for r.n <= 56 && len(r.buf) > 0 {
		r.cache |= uint64(r.buf[0]) << r.n
		r.n += 8
		r.buf = r.buf[1:]
	}
	if r.n < bits {
		return errOutOfBits
	}

	return nil
}

func (r *ReaderRtl) ReadBit() (uint32, error) {
	return r.ReadBitsLeq32(1)
}

func (r *ReaderRtl) ReadBool() (bool, error) {
	v, err := r.ReadBitsLeq32(1)
	return v == 1, err
}

// ReadBitsLeq32 reads n bits, 0 <= n <= 32.
func (r *ReaderRtl) ReadBitsLeq32(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 32 {
		panic("bits: ReadBitsLeq32 with more than 32 bits")
	}
	if err := r.ensure(n); err != nil {
		return 0, err
	}

	v := uint32(r.cache & (1<<n - 1))
	r.cache >>= n
	r.n -= n

	return v, nil
}

// ReadBitsLeq64 reads n bits, 0 <= n <= 64. The first 32 bits read are the
// low half of the result.
func (r *ReaderRtl) ReadBitsLeq64(n uint) (uint64, error) {
	if n <= 32 {
		v, err := r.ReadBitsLeq32(n)
		return uint64(v), err
	}
	if n > 64 {
		panic("bits: ReadBitsLeq64 with more than 64 bits")
	}

	lo, err := r.ReadBitsLeq32(32)
	if err != nil {
		return 0, err
	}
	hi, err := r.ReadBitsLeq32(n - 32)
	if err != nil {
		return 0, err
	}

	return uint64(hi)<<32 | uint64(lo), nil
}

func (r *ReaderRtl) PeekBits(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := r.ensure(n); err != nil {
		return 0, err
	}

	return uint32(r.cache & (1<<n - 1)), nil
}

func (r *ReaderRtl) IgnoreBits(n uint) error {
	for n > 0 {
		step := min(n, 32)
		if _, err := r.ReadBitsLeq32(step); err != nil {
			return err
		}
		n -= step
	}

	return nil
}

// AlignToByte drops the bits left in the current byte.
func (r *ReaderRtl) AlignToByte() {
	drop := r.n % 8
	r.cache >>= drop
	r.n -= drop
}

func (r *ReaderRtl) BitsLeft() uint64 {
	return uint64(r.n) + 8*uint64(len(r.buf))
}
