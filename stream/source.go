// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/ik5/mediakit/media"
)

var (
	ErrNotSeekable = errors.New("source is not seekable")
)

// ReadOnlySource adapts any io.Reader into a forward only media.MediaSource.
type ReadOnlySource struct {
	r io.Reader
}

func NewReadOnlySource(r io.Reader) *ReadOnlySource {
	return &ReadOnlySource{r: r}
}

func (s *ReadOnlySource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *ReadOnlySource) IsSeekable() bool           { return false }
func (s *ReadOnlySource) ByteLen() (uint64, bool)    { return 0, false }

func (s *ReadOnlySource) Seek(int64, int) (int64, error) {
	return 0, ErrNotSeekable
}

// Close closes the wrapped reader when it is an io.Closer.
func (s *ReadOnlySource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// FileSource is a seekable source backed by an *os.File.
type FileSource struct {
	*os.File
}

func NewFileSource(f *os.File) *FileSource {
	return &FileSource{File: f}
}

func (s *FileSource) IsSeekable() bool {
	info, err := s.Stat()
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}

func (s *FileSource) ByteLen() (uint64, bool) {
	info, err := s.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}

	return uint64(info.Size()), true
}

// BytesSource is a seekable in-memory source.
type BytesSource struct {
	*bytes.Reader
}

func NewBytesSource(b []byte) *BytesSource {
	return &BytesSource{Reader: bytes.NewReader(b)}
}

func (s *BytesSource) IsSeekable() bool { return true }

func (s *BytesSource) ByteLen() (uint64, bool) {
	return uint64(s.Size()), true
}

var (
	_ media.MediaSource = (*ReadOnlySource)(nil)
	_ media.MediaSource = (*FileSource)(nil)
	_ media.MediaSource = (*BytesSource)(nil)
)
