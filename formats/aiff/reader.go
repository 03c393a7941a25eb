// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/internal/pcmbridge"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
	"github.com/ik5/mediakit/stream"
)

// aiffReader is the part of aiff.Decoder the reader needs, so tests can fake it.
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

func Descriptor() probe.Descriptor {
	return probe.Descriptor{
		ShortName:  "aiff",
		LongName:   "Audio Interchange File Format",
		Extensions: []string{"aiff", "aif", "aifc"},
		MimeTypes:  []string{"audio/aiff", "audio/x-aiff"},
		Markers:    [][]byte{[]byte("FORM"), []byte("AIFF"), []byte("AIFC")},
		Inst: func(mss *stream.MediaSourceStream, opts media.FormatOptions) (media.FormatReader, error) {
			return NewReader(mss, opts)
		},
	}
}

// NewReader reads an AIFF or AIFF-C file. Samples are re-encoded as signed
// little-endian PCM of the file's bit depth.
func NewReader(mss *stream.MediaSourceStream, opts media.FormatOptions) (*pcmbridge.Reader, error) {
	return pcmbridge.NewReader(mss, opts, pcmbridge.Config{
		Name:        "aiff",
		Sniff:       isAiff,
		SniffLen:    12,
		NeedsSeeker: true,
		Open:        open,
	})
}

func isAiff(head []byte) bool {
	if len(head) < 12 || !bytes.Equal(head[:4], []byte("FORM")) {
		return false
	}
	form := head[8:12]

	return bytes.Equal(form, []byte("AIFF")) || bytes.Equal(form, []byte("AIFC"))
}

func open(r io.Reader) (*pcmbridge.Stream, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, ErrNotSeekable
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	return newStream(dec, int(dec.BitDepth), uint64(dec.NumSampleFrames))
}

func newStream(dec aiffReader, bitDepth int, frames uint64) (*pcmbridge.Stream, error) {
	format := dec.Format()
	if format == nil {
		return nil, ErrUnsupportedAiffLayout
	}

	codec, ok := pcmbridge.IntCodec(bitDepth, false)
	if !ok {
		return nil, ErrUnsupportedBitDepth
	}
	channels, ok := audio.ChannelsFromCount(format.NumChannels)
	if !ok {
		return nil, ErrUnsupportedAiffLayout
	}
	if format.SampleRate <= 0 {
		return nil, ErrNotAiffFile
	}

	src, err := pcmbridge.NewIntSource(dec, format, codec)
	if err != nil {
		return nil, err
	}

	params := media.NewCodecParameters(codec).
		WithSampleRate(uint32(format.SampleRate)).
		WithChannels(channels).
		WithBitsPerSample(uint32(bitDepth)).
		WithBitsPerCodedSample(uint32(bitDepth)).
		WithNFrames(frames)

	return &pcmbridge.Stream{Source: src, Params: params}, nil
}
