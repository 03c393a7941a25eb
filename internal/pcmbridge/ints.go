// SPDX-License-Identifier: EPL-2.0

package pcmbridge

import (
	"io"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/mediakit/media"
)

// IntDecoder is the go-audio decoder surface the wav and aiff bridges use.
type IntDecoder interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type encodeFunc func(dst []byte, v int) []byte

var intEncoders = map[media.CodecType]encodeFunc{
	media.CodecPCMU8: func(dst []byte, v int) []byte { return append(dst, byte(v)) },
	media.CodecPCMS8: func(dst []byte, v int) []byte { return append(dst, byte(int8(v))) },
	media.CodecPCMS16LE: func(dst []byte, v int) []byte {
		return append(dst, byte(v), byte(v>>8))
	},
	media.CodecPCMS24LE: func(dst []byte, v int) []byte {
		return append(dst, byte(v), byte(v>>8), byte(v>>16))
	},
	media.CodecPCMS32LE: func(dst []byte, v int) []byte {
		return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	},
}

// IntCodec picks the little-endian PCM codec that holds samples of bitDepth.
// unsigned8 selects unsigned 8-bit samples, as WAV stores them.
func IntCodec(bitDepth int, unsigned8 bool) (media.CodecType, bool) {
	switch bitDepth {
	case 8:
		if unsigned8 {
			return media.CodecPCMU8, true
		}
		return media.CodecPCMS8, true
	case 16:
		return media.CodecPCMS16LE, true
	case 24:
		return media.CodecPCMS24LE, true
	case 32:
		return media.CodecPCMS32LE, true
	default:
		return media.CodecNull, false
	}
}

// IntSource re-encodes the integer samples of a go-audio decoder.
type IntSource struct {
	dec      IntDecoder
	channels int
	encode   encodeFunc
	ints     *goaudio.IntBuffer
	out      []byte
}

func NewIntSource(dec IntDecoder, format *goaudio.Format, codec media.CodecType) (*IntSource, error) {
	encode, ok := intEncoders[codec]
	if !ok {
		return nil, media.Unsupported("pcm bridge: no encoder for codec")
	}
	if format == nil || format.NumChannels < 1 {
		return nil, media.DecodeError("pcm bridge: missing channel count")
	}

	return &IntSource{
		dec:      dec,
		channels: format.NumChannels,
		encode:   encode,
		ints:     &goaudio.IntBuffer{Format: format},
	}, nil
}

// ReadFrames drops a trailing partial frame.
func (s *IntSource) ReadFrames(n int) ([]byte, error) {
	want := n * s.channels
	if cap(s.ints.Data) < want {
		s.ints.Data = make([]int, want)
	}
	s.ints.Data = s.ints.Data[:want]

	k, err := s.dec.PCMBuffer(s.ints)
	k -= k % s.channels

	s.out = s.out[:0]
	for _, v := range s.ints.Data[:k] {
		s.out = s.encode(s.out, v)
	}
	if k == 0 && err == nil {
		err = io.EOF
	}

	return s.out, err
}
