// SPDX-License-Identifier: EPL-2.0

package pcmbridge

import (
	"io"

	"github.com/ik5/mediakit/stream"
)

// Section presents a MediaSourceStream from a base offset onwards as an
// io.ReadSeeker whose position 0 is the base.
type Section struct {
	mss  *stream.MediaSourceStream
	base int64
}

// NewSection starts a section at the current position of mss.
func NewSection(mss *stream.MediaSourceStream) *Section {
	return &Section{mss: mss, base: int64(mss.Pos())}
}

// Read fills p unless the stream ends or fails first.
func (s *Section) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		k, err := s.mss.Read(p[n:])
		n += k
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
	}

	return n, nil
}

func (s *Section) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		offset += s.base
	}

	pos, err := s.mss.Seek(offset, whence)
	if err != nil {
		return pos - s.base, err
	}
	if pos < s.base {
		_, _ = s.mss.Seek(s.base, io.SeekStart)
		return 0, errBeforeSection
	}

	return pos - s.base, nil
}

// forwardOnly hides Seek so that libraries which probe for io.Seeker read a
// non-seekable stream sequentially.
type forwardOnly struct {
	io.Reader
}
