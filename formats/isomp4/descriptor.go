// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"bytes"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
	"github.com/ik5/mediakit/stream"
)

// Descriptor registers the reader with a probe.
func Descriptor() probe.Descriptor {
	return probe.Descriptor{
		ShortName:  "isomp4",
		LongName:   "ISO Base Media File Format",
		Extensions: []string{"mp4", "m4a", "m4p", "m4b", "m4r", "m4v", "mov"},
		MimeTypes:  []string{"video/mp4", "audio/m4a"},
		Markers:    [][]byte{[]byte("ftyp")},
		Score:      score,
		Inst: func(mss *stream.MediaSourceStream, opts media.FormatOptions) (media.FormatReader, error) {
			return NewReader(mss, opts)
		},
	}
}

// score favours windows that open with an ftyp atom.
func score(window []byte) uint8 {
	if len(window) >= 8 && bytes.Equal(window[4:8], TypeFtyp[:]) {
		return 50
	}

	return 0
}
