// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/internal/pcmbridge"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
	"github.com/ik5/mediakit/stream"
)

const (
	formatPCM        = 0x0001
	formatExtensible = 0xfffe
)

func Descriptor() probe.Descriptor {
	return probe.Descriptor{
		ShortName:  "wav",
		LongName:   "Waveform Audio File Format",
		Extensions: []string{"wav", "wave"},
		MimeTypes:  []string{"audio/wav", "audio/x-wav", "audio/vnd.wave"},
		Markers:    [][]byte{[]byte("RIFF"), []byte("WAVE")},
		Inst: func(mss *stream.MediaSourceStream, opts media.FormatOptions) (media.FormatReader, error) {
			return NewReader(mss, opts)
		},
	}
}

// NewReader reads integer PCM from a RIFF WAVE stream. A non-seekable stream
// is loaded into memory first.
func NewReader(mss *stream.MediaSourceStream, opts media.FormatOptions) (*pcmbridge.Reader, error) {
	return pcmbridge.NewReader(mss, opts, pcmbridge.Config{
		Name:        "wav",
		Sniff:       isWave,
		SniffLen:    12,
		NeedsSeeker: true,
		Open:        open,
	})
}

func isWave(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WAVE"))
}

func open(r io.Reader) (*pcmbridge.Stream, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, ErrNotSeekable
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, &media.Error{Kind: media.KindDecode, Msg: "wav: malformed RIFF header", Err: err}
		}
		return nil, ErrNotWavFile
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, ErrOnlyIntegerPCM
	}

	codec, ok := pcmbridge.IntCodec(int(dec.BitDepth), true)
	if !ok {
		return nil, ErrUnsupportedBitDepth
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, ErrMissingDataChunk
	}

	channels, ok := audio.ChannelsFromCount(int(dec.NumChans))
	if !ok {
		return nil, ErrUnsupportedChannels
	}

	format := &goaudio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)}
	src, err := pcmbridge.NewIntSource(dec, format, codec)
	if err != nil {
		return nil, err
	}

	frameLen := codec.SampleSize() * int(dec.NumChans)
	params := media.NewCodecParameters(codec).
		WithSampleRate(dec.SampleRate).
		WithChannels(channels).
		WithBitsPerSample(uint32(dec.BitDepth)).
		WithBitsPerCodedSample(uint32(dec.BitDepth)).
		WithNFrames(uint64(dec.PCMSize / frameLen))

	return &pcmbridge.Stream{
		Source: src,
		Params: params,
		Tags:   tags(dec.Metadata),
	}, nil
}

// tags maps the INFO list that precedes the data chunk.
func tags(md *wav.Metadata) []media.Tag {
	if md == nil {
		return nil
	}

	fields := []struct {
		key   string
		std   media.StandardTag
		value string
	}{
		{"INAM", media.TagTrackTitle, md.Title},
		{"IART", media.TagArtist, md.Artist},
		{"IPRD", media.TagAlbum, md.Product},
		{"IGNR", media.TagGenre, md.Genre},
		{"ICRD", media.TagDate, md.CreationDate},
		{"ICMT", media.TagComment, md.Comments},
		{"ITRK", media.TagTrackNumber, md.TrackNbr},
		{"ISFT", media.TagEncoder, md.Software},
		{"ICOP", media.TagUnknown, md.Copyright},
		{"IENG", media.TagUnknown, md.Engineer},
	}

	var out []media.Tag
	for _, f := range fields {
		if f.value != "" {
			out = append(out, media.Tag{Key: f.key, StdKey: f.std, Value: f.value})
		}
	}

	return out
}
