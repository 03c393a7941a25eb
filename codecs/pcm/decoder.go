// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"encoding/binary"
	"math"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
)

// sampleFunc converts the sample at the start of b to [-1, 1].
type sampleFunc func(b []byte) float32

var converters = map[media.CodecType]sampleFunc{
	media.CodecPCMU8: func(b []byte) float32 { return (float32(b[0]) - 128) / 128 },
	media.CodecPCMS8: func(b []byte) float32 { return float32(int8(b[0])) / 128 },
	media.CodecPCMS16LE: func(b []byte) float32 {
		return float32(int16(binary.LittleEndian.Uint16(b))) / 32768
	},
	media.CodecPCMS16BE: func(b []byte) float32 {
		return float32(int16(binary.BigEndian.Uint16(b))) / 32768
	},
	media.CodecPCMS24LE: func(b []byte) float32 {
		return float32(goaudio.Int24LETo32(b[:3])) / 8388608
	},
	media.CodecPCMS24BE: func(b []byte) float32 {
		return float32(goaudio.Int24BETo32(b[:3])) / 8388608
	},
	media.CodecPCMS32LE: func(b []byte) float32 {
		return float32(float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31))
	},
	media.CodecPCMS32BE: func(b []byte) float32 {
		return float32(float64(int32(binary.BigEndian.Uint32(b))) / (1 << 31))
	},
	media.CodecPCMF32LE: func(b []byte) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	},
	media.CodecPCMF32BE: func(b []byte) float32 {
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	},
	media.CodecPCMF64LE: func(b []byte) float32 {
		return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	},
	media.CodecPCMF64BE: func(b []byte) float32 {
		return float32(math.Float64frombits(binary.BigEndian.Uint64(b)))
	},
}

// Decoder converts interleaved PCM packets into planar float32.
type Decoder struct {
	params     media.CodecParameters
	convert    sampleFunc
	sampleSize int
	channels   int
	buf        *audio.Buffer
}

// NewDecoder validates params and returns a decoder for them.
func NewDecoder(params *media.CodecParameters, _ media.DecoderOptions) (*Decoder, error) {
	convert, ok := converters[params.Codec]
	if !ok {
		return nil, media.Unsupported("pcm: invalid codec type")
	}
	if params.SampleRate == 0 {
		return nil, media.Unsupported("pcm: sample rate is required")
	}
	channels := params.Channels.Count()
	if channels == 0 {
		return nil, media.Unsupported("pcm: channels are required")
	}

	d := &Decoder{
		params:     *params,
		convert:    convert,
		sampleSize: params.Codec.SampleSize(),
		channels:   channels,
	}

	capacity := int(params.MaxFramesPerPacket)
	if capacity == 0 {
		capacity = 4096
	}
	d.buf = audio.NewBuffer(capacity, audio.NewSignalSpec(params.SampleRate, params.Channels))

	return d, nil
}

// Decode converts pkt.Data. A trailing partial frame is a decode error.
func (d *Decoder) Decode(pkt *media.Packet) (*audio.Buffer, error) {
	frameLen := d.sampleSize * d.channels
	if len(pkt.Data)%frameLen != 0 {
		return nil, media.DecodeError("pcm: packet is not a whole number of frames")
	}

	frames := len(pkt.Data) / frameLen
	if frames > d.buf.Capacity() {
		d.buf = audio.NewBuffer(frames, d.buf.Spec())
	}

	d.buf.Clear()
	if _, err := d.buf.Render(frames); err != nil {
		return nil, media.DecodeError("pcm: buffer too small")
	}

	planes := d.buf.Planes()
	off := 0
	for f := range frames {
		for ch := range d.channels {
			planes[ch][f] = d.convert(pkt.Data[off:])
			off += d.sampleSize
		}
	}

	return d.buf, nil
}

func (d *Decoder) Reset() {}

func (d *Decoder) Finalize() media.FinalizeResult { return media.FinalizeResult{} }

func (d *Decoder) CodecParams() *media.CodecParameters { return &d.params }

var _ media.Decoder = (*Decoder)(nil)

var longNames = map[media.CodecType]string{
	media.CodecPCMU8:    "PCM unsigned 8-bit",
	media.CodecPCMS8:    "PCM signed 8-bit",
	media.CodecPCMS16LE: "PCM signed 16-bit little-endian",
	media.CodecPCMS16BE: "PCM signed 16-bit big-endian",
	media.CodecPCMS24LE: "PCM signed 24-bit little-endian",
	media.CodecPCMS24BE: "PCM signed 24-bit big-endian",
	media.CodecPCMS32LE: "PCM signed 32-bit little-endian",
	media.CodecPCMS32BE: "PCM signed 32-bit big-endian",
	media.CodecPCMF32LE: "PCM 32-bit float little-endian",
	media.CodecPCMF32BE: "PCM 32-bit float big-endian",
	media.CodecPCMF64LE: "PCM 64-bit float little-endian",
	media.CodecPCMF64BE: "PCM 64-bit float big-endian",
}

// Descriptors returns one codec descriptor per supported PCM codec.
func Descriptors() []probe.CodecDescriptor {
	out := make([]probe.CodecDescriptor, 0, len(longNames))
	for codec := media.CodecPCMS8; codec <= media.CodecPCMF64BE; codec++ {
		out = append(out, probe.CodecDescriptor{
			Codec:    codec,
			LongName: longNames[codec],
			Make:     makeDecoder,
		})
	}

	return out
}

func makeDecoder(params *media.CodecParameters, opts media.DecoderOptions) (media.Decoder, error) {
	return NewDecoder(params, opts)
}
