// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"errors"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/internal/pcmbridge"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
	"github.com/ik5/mediakit/stream"
)

// go-mp3 always emits 16-bit stereo.
const bytesPerFrame = 4

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Seeker interface {
	mp3Reader
	Seek(offset int64, whence int) (int64, error)
}

func Descriptor() probe.Descriptor {
	return probe.Descriptor{
		ShortName:  "mp3",
		LongName:   "MPEG-1/2 Audio Layer III",
		Extensions: []string{"mp3"},
		MimeTypes:  []string{"audio/mpeg", "audio/mp3"},
		Markers: [][]byte{
			[]byte("ID3"),
			{0xff, 0xfb}, {0xff, 0xfa},
			{0xff, 0xf3}, {0xff, 0xf2},
		},
		Score: score,
		Inst: func(mss *stream.MediaSourceStream, opts media.FormatOptions) (media.FormatReader, error) {
			return NewReader(mss, opts)
		},
	}
}

func score(window []byte) uint8 {
	if isMP3(window) {
		return 25
	}

	return 0
}

// NewReader decodes the whole stream with go-mp3 and emits 16-bit stereo PCM
// packets. Mono files are duplicated into both channels. Seeking jumps
// straight to the target frame when the stream is seekable.
func NewReader(mss *stream.MediaSourceStream, opts media.FormatOptions) (*pcmbridge.Reader, error) {
	return pcmbridge.NewReader(mss, opts, pcmbridge.Config{
		Name:     "mp3",
		Sniff:    isMP3,
		SniffLen: 3,
		Open:     open,
	})
}

// isMP3 accepts an ID3v2 tag or a layer III frame sync.
func isMP3(head []byte) bool {
	if bytes.HasPrefix(head, []byte("ID3")) {
		return true
	}

	return len(head) >= 2 && head[0] == 0xff && head[1]&0xe0 == 0xe0 && head[1]&0x06 == 0x02
}

func open(r io.Reader) (*pcmbridge.Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	_, seekable := r.(io.Seeker)

	return newStream(dec, dec.Length(), seekable)
}

func newStream(dec mp3Reader, length int64, seekable bool) (*pcmbridge.Stream, error) {
	rate := dec.SampleRate()
	if rate <= 0 {
		return nil, media.DecodeError("mp3: invalid sample rate")
	}

	params := media.NewCodecParameters(media.CodecPCMS16LE).
		WithSampleRate(uint32(rate)).
		WithChannels(audio.FrontLeft | audio.FrontRight).
		WithBitsPerSample(16)
	if length >= 0 {
		params.WithNFrames(uint64(length / bytesPerFrame))
	}

	src := &source{dec: dec}
	if s, ok := dec.(mp3Seeker); ok && seekable && length >= 0 {
		return &pcmbridge.Stream{Source: &seekSource{source: src, dec: s}, Params: params}, nil
	}

	return &pcmbridge.Stream{Source: src, Params: params}, nil
}

type source struct {
	dec mp3Reader
	buf []byte
}

func (s *source) ReadFrames(n int) ([]byte, error) {
	need := n * bytesPerFrame
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}

	k, err := io.ReadFull(s.dec, s.buf[:need])
	k -= k % bytesPerFrame
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if k == 0 && err == nil {
		err = io.EOF
	}

	return s.buf[:k], err
}

type seekSource struct {
	*source
	dec mp3Seeker
}

func (s *seekSource) SeekFrame(frame uint64) error {
	_, err := s.dec.Seek(int64(frame)*bytesPerFrame, io.SeekStart)
	return err
}
