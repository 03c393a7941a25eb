// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"io"

	"github.com/ik5/mediakit/media"
)

// ScopedStream limits reads from an inner ByteReader to a fixed number of
// bytes. Reads past the limit fail without touching the inner reader.
type ScopedStream struct {
	scalars

	inner ByteReader
	start uint64
	limit uint64
	read  uint64
}

func NewScopedStream(inner ByteReader, limit uint64) *ScopedStream {
	s := &ScopedStream{
		inner: inner,
		start: inner.Pos(),
		limit: limit,
	}
	s.scalars.src = s

	return s
}

// Remaining is the number of bytes left in the scope.
func (s *ScopedStream) Remaining() uint64 { return s.limit - s.read }

func (s *ScopedStream) Limit() uint64 { return s.limit }

func (s *ScopedStream) Pos() uint64 { return s.inner.Pos() }

// Start is the inner position the scope began at.
func (s *ScopedStream) Start() uint64 { return s.start }

func (s *ScopedStream) Inner() ByteReader { return s.inner }

// Read implements io.Reader and returns io.EOF at the scope's end.
func (s *ScopedStream) Read(p []byte) (int, error) {
	left := s.Remaining()
	if left == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > left {
		p = p[:left]
	}

	n, err := s.inner.Read(p)
	s.read += uint64(n)

	return n, err
}

// ReadFull fails up front when p extends past the scope.
func (s *ScopedStream) ReadFull(p []byte) error {
	left := s.Remaining()
	if left == 0 && len(p) > 0 {
		return media.EndOfFile()
	}
	if uint64(len(p)) > left {
		return media.IOError(io.ErrUnexpectedEOF)
	}

	if err := s.inner.ReadFull(p); err != nil {
		return err
	}
	s.read += uint64(len(p))

	return nil
}

func (s *ScopedStream) IgnoreBytes(n uint64) error {
	if n > s.Remaining() {
		return media.IOError(io.ErrUnexpectedEOF)
	}
	if err := s.inner.IgnoreBytes(n); err != nil {
		return err
	}
	s.read += n

	return nil
}

// Ignore skips whatever is left in the scope.
func (s *ScopedStream) Ignore() error {
	return s.IgnoreBytes(s.Remaining())
}

var _ ByteReader = (*ScopedStream)(nil)
