// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/internal/pcmbridge"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
	"github.com/ik5/mediakit/stream"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type oggSeeker interface {
	oggReader
	SetPosition(pos int64) error
}

var commentKeys = map[string]media.StandardTag{
	"TITLE":       media.TagTrackTitle,
	"ARTIST":      media.TagArtist,
	"ALBUM":       media.TagAlbum,
	"ALBUMARTIST": media.TagAlbumArtist,
	"DATE":        media.TagDate,
	"GENRE":       media.TagGenre,
	"TRACKNUMBER": media.TagTrackNumber,
	"DISCNUMBER":  media.TagDiscNumber,
	"COMMENT":     media.TagComment,
	"DESCRIPTION": media.TagComment,
	"COMPOSER":    media.TagComposer,
	"ENCODER":     media.TagEncoder,
}

func Descriptor() probe.Descriptor {
	return probe.Descriptor{
		ShortName:  "ogg",
		LongName:   "Ogg Vorbis",
		Extensions: []string{"ogg", "oga"},
		MimeTypes:  []string{"audio/ogg", "audio/vorbis"},
		Markers:    [][]byte{[]byte("OggS"), []byte("\x01vorbis")},
		Inst: func(mss *stream.MediaSourceStream, opts media.FormatOptions) (media.FormatReader, error) {
			return NewReader(mss, opts)
		},
	}
}

// NewReader decodes an Ogg Vorbis stream and emits 32-bit float PCM packets.
func NewReader(mss *stream.MediaSourceStream, opts media.FormatOptions) (*pcmbridge.Reader, error) {
	return pcmbridge.NewReader(mss, opts, pcmbridge.Config{
		Name:     "ogg",
		Sniff:    func(head []byte) bool { return bytes.HasPrefix(head, []byte("OggS")) },
		SniffLen: 4,
		Open:     open,
	})
}

func open(r io.Reader) (*pcmbridge.Stream, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}

	ch := dec.CommentHeader()
	st, err := newStream(dec, dec.Length())
	if err != nil {
		return nil, err
	}
	st.Tags = commentTags(ch.Vendor, ch.Comments)

	return st, nil
}

func newStream(dec oggReader, length int64) (*pcmbridge.Stream, error) {
	channels, ok := audio.ChannelsFromCount(dec.Channels())
	if !ok {
		return nil, media.Unsupported("ogg: unsupported channel count")
	}
	if dec.SampleRate() <= 0 {
		return nil, media.DecodeError("ogg: invalid sample rate")
	}

	params := media.NewCodecParameters(media.CodecPCMF32LE).
		WithSampleRate(uint32(dec.SampleRate())).
		WithChannels(channels).
		WithBitsPerSample(32)
	if length > 0 {
		params.WithNFrames(uint64(length))
	}

	src := &source{dec: dec, channels: dec.Channels()}
	if s, ok := dec.(oggSeeker); ok && length > 0 {
		return &pcmbridge.Stream{Source: &seekSource{source: src, dec: s}, Params: params}, nil
	}

	return &pcmbridge.Stream{Source: src, Params: params}, nil
}

// commentTags maps "KEY=value" user comments. Keys are case insensitive.
func commentTags(vendor string, comments []string) []media.Tag {
	var tags []media.Tag
	if vendor != "" {
		tags = append(tags, media.Tag{Key: "VENDOR", Value: vendor})
	}
	for _, c := range comments {
		key, value, ok := strings.Cut(c, "=")
		if !ok || key == "" {
			continue
		}
		key = strings.ToUpper(key)
		tags = append(tags, media.Tag{Key: key, StdKey: commentKeys[key], Value: value})
	}

	return tags
}

type source struct {
	dec      oggReader
	channels int
	pcm      []float32
	out      []byte
}

// ReadFrames keeps reading until n frames are buffered or the stream ends.
func (s *source) ReadFrames(n int) ([]byte, error) {
	want := n * s.channels
	if cap(s.pcm) < want {
		s.pcm = make([]float32, want)
	}
	s.pcm = s.pcm[:want]

	got := 0
	var err error
	for got < want && err == nil {
		var k int
		k, err = s.dec.Read(s.pcm[got:])
		got += k
		if k == 0 && err == nil {
			break
		}
	}
	got -= got % s.channels

	s.out = s.out[:0]
	for _, v := range s.pcm[:got] {
		s.out = binary.LittleEndian.AppendUint32(s.out, math.Float32bits(v))
	}
	if got > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	if got == 0 && err == nil {
		err = io.EOF
	}

	return s.out, err
}

type seekSource struct {
	*source
	dec oggSeeker
}

func (s *seekSource) SeekFrame(frame uint64) error {
	return s.dec.SetPosition(int64(frame))
}
