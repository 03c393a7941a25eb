// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"encoding/binary"
	"math"
)

// ByteReader is the read surface shared by MediaSourceStream, ScopedStream
// and MonitorStream.
type ByteReader interface {
	Read(p []byte) (int, error)
	ReadByte() (byte, error)
	ReadFull(p []byte) error
	ReadU8() (uint8, error)
	ReadBeU16() (uint16, error)
	ReadBeU24() (uint32, error)
	ReadBeU32() (uint32, error)
	ReadBeU64() (uint64, error)
	ReadBeI16() (int16, error)
	ReadBeI32() (int32, error)
	ReadBeI64() (int64, error)
	ReadBeF32() (float32, error)
	ReadBeF64() (float64, error)
	ReadU16() (uint16, error)
	ReadU24() (uint32, error)
	ReadU32() (uint32, error)
	ReadU64() (uint64, error)
	ReadQuadBytes() ([4]byte, error)
	ReadBoxedSliceExact(n int) ([]byte, error)
	IgnoreBytes(n uint64) error
	Pos() uint64
}

type fullReader interface {
	ReadFull(p []byte) error
}

// scalars implements the fixed width readers on top of ReadFull.
type scalars struct {
	src     fullReader
	scratch [8]byte
}

func (s *scalars) fill(n int) ([]byte, error) {
	b := s.scratch[:n]
	if err := s.src.ReadFull(b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *scalars) ReadByte() (byte, error) {
	b, err := s.fill(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (s *scalars) ReadU8() (uint8, error) {
	return s.ReadByte()
}

func (s *scalars) ReadBeU16() (uint16, error) {
	b, err := s.fill(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

func (s *scalars) ReadBeU24() (uint32, error) {
	b, err := s.fill(3)
	if err != nil {
		return 0, err
	}

	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

func (s *scalars) ReadBeU32() (uint32, error) {
	b, err := s.fill(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

func (s *scalars) ReadBeU64() (uint64, error) {
	b, err := s.fill(8)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(b), nil
}

func (s *scalars) ReadBeI16() (int16, error) {
	v, err := s.ReadBeU16()
	return int16(v), err
}

func (s *scalars) ReadBeI32() (int32, error) {
	v, err := s.ReadBeU32()
	return int32(v), err
}

func (s *scalars) ReadBeI64() (int64, error) {
	v, err := s.ReadBeU64()
	return int64(v), err
}

func (s *scalars) ReadBeF32() (float32, error) {
	v, err := s.ReadBeU32()
	return math.Float32frombits(v), err
}

func (s *scalars) ReadBeF64() (float64, error) {
	v, err := s.ReadBeU64()
	return math.Float64frombits(v), err
}

func (s *scalars) ReadU16() (uint16, error) {
	b, err := s.fill(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

func (s *scalars) ReadU24() (uint32, error) {
	b, err := s.fill(3)
	if err != nil {
		return 0, err
	}

	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

func (s *scalars) ReadU32() (uint32, error) {
	b, err := s.fill(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

func (s *scalars) ReadU64() (uint64, error) {
	b, err := s.fill(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

func (s *scalars) ReadQuadBytes() ([4]byte, error) {
	var q [4]byte
	b, err := s.fill(4)
	if err != nil {
		return q, err
	}
	copy(q[:], b)

	return q, nil
}

func (s *scalars) ReadBoxedSliceExact(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := s.src.ReadFull(b); err != nil {
		return nil, err
	}

	return b, nil
}
