// SPDX-License-Identifier: EPL-2.0

package media

import (
	"fmt"

	"github.com/ik5/mediakit/audio"
)

// CodecType identifies a codec.
type CodecType uint32

const (
	CodecNull CodecType = iota

	CodecPCMS8
	CodecPCMU8
	CodecPCMS16LE
	CodecPCMS16BE
	CodecPCMS24LE
	CodecPCMS24BE
	CodecPCMS32LE
	CodecPCMS32BE
	CodecPCMF32LE
	CodecPCMF32BE
	CodecPCMF64LE
	CodecPCMF64BE
)

const (
	CodecAAC CodecType = 0x1000 + iota
	CodecALAC
	CodecFLAC
	CodecOpus
	CodecMP1
	CodecMP2
	CodecMP3
	CodecVorbis
	CodecAC3
	CodecEAC3
)

const (
	CodecH264 CodecType = 0x2000 + iota
	CodecHEVC
)

var codecNames = map[CodecType]string{
	CodecNull:     "null",
	CodecPCMS8:    "pcm_s8",
	CodecPCMU8:    "pcm_u8",
	CodecPCMS16LE: "pcm_s16le",
	CodecPCMS16BE: "pcm_s16be",
	CodecPCMS24LE: "pcm_s24le",
	CodecPCMS24BE: "pcm_s24be",
	CodecPCMS32LE: "pcm_s32le",
	CodecPCMS32BE: "pcm_s32be",
	CodecPCMF32LE: "pcm_f32le",
	CodecPCMF32BE: "pcm_f32be",
	CodecPCMF64LE: "pcm_f64le",
	CodecPCMF64BE: "pcm_f64be",
	CodecAAC:      "aac",
	CodecALAC:     "alac",
	CodecFLAC:     "flac",
	CodecOpus:     "opus",
	CodecMP1:      "mp1",
	CodecMP2:      "mp2",
	CodecMP3:      "mp3",
	CodecVorbis:   "vorbis",
	CodecAC3:      "ac3",
	CodecEAC3:     "eac3",
	CodecH264:     "h264",
	CodecHEVC:     "hevc",
}

func (c CodecType) String() string {
	if n, ok := codecNames[c]; ok {
		return n
	}

	return fmt.Sprintf("codec(0x%x)", uint32(c))
}

// IsPCM reports whether c is one of the uncompressed PCM codecs.
func (c CodecType) IsPCM() bool {
	return c >= CodecPCMS8 && c <= CodecPCMF64BE
}

// SampleSize is the width in bytes of one PCM sample, or 0 when c is not PCM.
func (c CodecType) SampleSize() int {
	switch c {
	case CodecPCMS8, CodecPCMU8:
		return 1
	case CodecPCMS16LE, CodecPCMS16BE:
		return 2
	case CodecPCMS24LE, CodecPCMS24BE:
		return 3
	case CodecPCMS32LE, CodecPCMS32BE, CodecPCMF32LE, CodecPCMF32BE:
		return 4
	case CodecPCMF64LE, CodecPCMF64BE:
		return 8
	default:
		return 0
	}
}

// IsVideo reports whether c is a video codec.
func (c CodecType) IsVideo() bool {
	return c >= CodecH264 && c < 0x3000
}

// Verification is the checksum a decoder can verify its output against.
type Verification struct {
	MD5 [16]byte
}

// CodecParameters describe a track's codec. The container builds them and the
// decoder consumes them. ExtraData is shared and must not be modified.
type CodecParameters struct {
	Codec              CodecType
	SampleRate         uint32
	TimeBase           TimeBase
	NFrames            uint64
	StartTS            uint64
	SampleFormat       audio.SampleFormat
	BitsPerSample      uint32
	BitsPerCodedSample uint32
	Channels           audio.Channels
	MaxFramesPerPacket uint64
	FramesPerBlock     uint64
	Delay              uint32
	Padding            uint32
	ExtraData          []byte
	Verification       *Verification
	Width              int
	Height             int
}

// NewCodecParameters returns parameters for codec with every other field unset.
func NewCodecParameters(codec CodecType) *CodecParameters {
	return &CodecParameters{Codec: codec}
}

func (p *CodecParameters) WithSampleRate(rate uint32) *CodecParameters {
	p.SampleRate = rate
	return p
}

func (p *CodecParameters) WithTimeBase(tb TimeBase) *CodecParameters {
	p.TimeBase = tb
	return p
}

func (p *CodecParameters) WithNFrames(n uint64) *CodecParameters {
	p.NFrames = n
	return p
}

func (p *CodecParameters) WithChannels(ch audio.Channels) *CodecParameters {
	p.Channels = ch
	return p
}

func (p *CodecParameters) WithBitsPerSample(bits uint32) *CodecParameters {
	p.BitsPerSample = bits
	return p
}

func (p *CodecParameters) WithBitsPerCodedSample(bits uint32) *CodecParameters {
	p.BitsPerCodedSample = bits
	return p
}

func (p *CodecParameters) WithSampleFormat(f audio.SampleFormat) *CodecParameters {
	p.SampleFormat = f
	return p
}

func (p *CodecParameters) WithFramesPerBlock(n uint64) *CodecParameters {
	p.FramesPerBlock = n
	return p
}

func (p *CodecParameters) WithMaxFramesPerPacket(n uint64) *CodecParameters {
	p.MaxFramesPerPacket = n
	return p
}

func (p *CodecParameters) WithExtraData(b []byte) *CodecParameters {
	p.ExtraData = b
	return p
}

func (p *CodecParameters) WithVerification(v Verification) *CodecParameters {
	p.Verification = &v
	return p
}

func (p *CodecParameters) WithDelay(n uint32) *CodecParameters {
	p.Delay = n
	return p
}

func (p *CodecParameters) WithPadding(n uint32) *CodecParameters {
	p.Padding = n
	return p
}

func (p *CodecParameters) WithDimensions(width, height int) *CodecParameters {
	p.Width = width
	p.Height = height
	return p
}
