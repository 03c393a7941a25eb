// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"math"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

type sampleDesc struct {
	entry  FourCC
	params *media.CodecParameters
}

func (p *parser) readStsd(r stream.ByteReader, h AtomHeader) (*sampleDesc, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}
	count, err := r.ReadBeU32()
	if err != nil {
		return nil, err
	}
	switch {
	case count == 0:
		return nil, media.DecodeError("stsd atom has no entries")
	case count > 1:
		return nil, media.Unsupported("more than one sample description")
	}

	it := NewAtomIterator(r, h)
	entry, err := it.Next()
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, media.DecodeError("stsd entry is missing")
	}

	var params *media.CodecParameters
	switch {
	case isAudioEntry(entry.Type):
		params, err = ReadAtom(it, p.readAudioEntry)
	case isVisualEntry(entry.Type):
		params, err = ReadAtom(it, p.readVisualEntry)
	default:
		p.log.Info("isomp4: unsupported sample entry", "entry", entry.Type.String())
		params = media.NewCodecParameters(media.CodecNull)
	}
	if err != nil {
		return nil, err
	}

	return &sampleDesc{entry: entry.Type, params: params}, nil
}

// pcmEntryCodecs maps fixed layout PCM sample entries to codecs.
var pcmEntryCodecs = map[FourCC]media.CodecType{
	TypeRaw:  media.CodecPCMU8,
	TypeSowt: media.CodecPCMS16LE,
	TypeTwos: media.CodecPCMS16BE,
	TypeIn24: media.CodecPCMS24BE,
	TypeIn32: media.CodecPCMS32BE,
	TypeFl32: media.CodecPCMF32BE,
	TypeFl64: media.CodecPCMF64BE,
}

func isAudioEntry(t FourCC) bool {
	if _, ok := pcmEntryCodecs[t]; ok {
		return true
	}
	switch t {
	case TypeMp4a, TypeAlac, TypeFlac, TypeOpus, TypeMp3, TypeAc3, TypeEc3, TypeLpcm:
		return true
	}

	return false
}

func isVisualEntry(t FourCC) bool {
	switch t {
	case TypeAvc1, TypeAvc3, TypeHvc1, TypeHev1, TypeMp4v:
		return true
	}

	return false
}

// Linear PCM format flags of version 2 sound entries.
const (
	lpcmFloat     = 0x1
	lpcmBigEndian = 0x2
	lpcmSigned    = 0x4
)

const lpcmMarker = 0x7f000000

type audioEntry struct {
	typ            FourCC
	version        uint16
	channels       uint32
	sampleSize     uint32
	sampleRate     float64
	bytesPerSample uint32
	lpcmFlags      uint32
}

func (p *parser) readAudioEntry(r stream.ByteReader, h AtomHeader) (*media.CodecParameters, error) {
	e := audioEntry{typ: h.Type}

	f := fields{r: r}
	f.skip(6)
	f.u16()
	e.version = f.u16()
	f.skip(6)
	e.channels = uint32(f.u16())
	e.sampleSize = uint32(f.u16())
	f.skip(4)
	e.sampleRate = float64(f.u32()) / 65536

	switch e.version {
	case 0:
	case 1:
		f.u32()
		e.bytesPerSample = f.u32()
		f.u32()
		f.u32()
	case 2:
		f.skip(4)
		e.sampleRate = f.f64()
		e.channels = f.u32()
		if marker := f.u32(); f.err == nil && marker != lpcmMarker {
			return nil, media.DecodeError("invalid sound sample description")
		}
		e.sampleSize = f.u32()
		e.lpcmFlags = f.u32()
		f.u32()
		f.u32()
	default:
		return nil, media.Unsupported("sound sample description version")
	}
	if f.err != nil {
		return nil, f.err
	}

	var (
		params *media.CodecParameters
		esds   *esDescriptor
		err    error
	)
	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}

		switch child.Type {
		case TypeEsds:
			esds, err = ReadAtom(it, readEsds)
		case TypeWave:
			var d *esDescriptor
			if d, err = ReadAtom(it, readWave); d != nil {
				esds = d
			}
		case TypeAlac:
			params, err = ReadAtom(it, readAlac)
		case TypeDfLa:
			params, err = ReadAtom(it, readDfLa)
		case TypeDOps:
			params, err = ReadAtom(it, readDOps)
		case TypeDac3:
			params, err = ReadAtom(it, readDac3)
		case TypeDec3:
			params, err = ReadAtom(it, readDec3)
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case params != nil:
	case esds != nil:
		if params, err = esds.audioParams(); err != nil {
			return nil, err
		}
	case e.typ == TypeLpcm:
		if params, err = e.lpcmParams(); err != nil {
			return nil, err
		}
	case e.typ == TypeMp3:
		params = media.NewCodecParameters(media.CodecMP3).WithFramesPerBlock(1152)
	default:
		codec, ok := pcmEntryCodecs[e.typ]
		if !ok {
			p.log.Warn("isomp4: sound entry has no decoder configuration", "entry", e.typ.String())
			params = media.NewCodecParameters(media.CodecNull)
			break
		}
		if params, err = e.pcmParams(codec); err != nil {
			return nil, err
		}
	}

	if params.SampleRate == 0 && e.sampleRate >= 1 {
		params.WithSampleRate(uint32(math.Round(e.sampleRate)))
	}
	if params.Channels == 0 {
		if ch, ok := audio.ChannelsFromCount(int(e.channels)); ok {
			params.WithChannels(ch)
		}
	}

	return params, nil
}

var pcmCodecFormats = map[media.CodecType]audio.SampleFormat{
	media.CodecPCMU8:    audio.SampleFormatU8,
	media.CodecPCMS8:    audio.SampleFormatS8,
	media.CodecPCMS16LE: audio.SampleFormatS16,
	media.CodecPCMS16BE: audio.SampleFormatS16,
	media.CodecPCMS24LE: audio.SampleFormatS24,
	media.CodecPCMS24BE: audio.SampleFormatS24,
	media.CodecPCMS32LE: audio.SampleFormatS32,
	media.CodecPCMS32BE: audio.SampleFormatS32,
	media.CodecPCMF32LE: audio.SampleFormatF32,
	media.CodecPCMF32BE: audio.SampleFormatF32,
	media.CodecPCMF64LE: audio.SampleFormatF64,
	media.CodecPCMF64BE: audio.SampleFormatF64,
}

func newPCMParams(codec media.CodecType, ch audio.Channels) *media.CodecParameters {
	format := pcmCodecFormats[codec]
	bits := uint32(format.BitDepth())

	return media.NewCodecParameters(codec).
		WithSampleFormat(format).
		WithBitsPerSample(bits).
		WithBitsPerCodedSample(bits).
		WithChannels(ch).
		WithFramesPerBlock(1).
		WithMaxFramesPerPacket(1)
}

func (e *audioEntry) pcmParams(codec media.CodecType) (*media.CodecParameters, error) {
	// twos also carries 8-bit signed samples.
	if codec == media.CodecPCMS16BE && e.sampleSize == 8 {
		codec = media.CodecPCMS8
	}
	bits := uint32(pcmCodecFormats[codec].BitDepth())

	switch e.version {
	case 0:
		if e.sampleSize != bits {
			return nil, media.DecodeError("invalid pcm sample size")
		}
	case 1:
		if e.bytesPerSample*8 != bits {
			return nil, media.DecodeError("invalid pcm sample size")
		}
	}

	var ch audio.Channels
	switch e.channels {
	case 1:
		ch = audio.FrontLeft
	case 2:
		ch = audio.FrontLeft | audio.FrontRight
	default:
		return nil, media.DecodeError("invalid number of channels")
	}

	return newPCMParams(codec, ch), nil
}

func (e *audioEntry) lpcmParams() (*media.CodecParameters, error) {
	if e.version != 2 {
		return nil, media.DecodeError("lpcm entry is not a version 2 description")
	}
	if e.channels > 32 {
		return nil, media.Unsupported("lpcm channel count")
	}
	ch, ok := audio.ChannelsFromCount(int(e.channels))
	if !ok {
		return nil, media.DecodeError("invalid number of channels")
	}

	bigEndian := e.lpcmFlags&lpcmBigEndian != 0
	pick := func(le, be media.CodecType) media.CodecType {
		if bigEndian {
			return be
		}
		return le
	}

	var codec media.CodecType
	if e.lpcmFlags&lpcmFloat != 0 {
		switch e.sampleSize {
		case 32:
			codec = pick(media.CodecPCMF32LE, media.CodecPCMF32BE)
		case 64:
			codec = pick(media.CodecPCMF64LE, media.CodecPCMF64BE)
		}
	} else {
		signed := e.lpcmFlags&lpcmSigned != 0
		switch {
		case e.sampleSize == 8 && signed:
			codec = media.CodecPCMS8
		case e.sampleSize == 8:
			codec = media.CodecPCMU8
		case !signed:
		case e.sampleSize == 16:
			codec = pick(media.CodecPCMS16LE, media.CodecPCMS16BE)
		case e.sampleSize == 24:
			codec = pick(media.CodecPCMS24LE, media.CodecPCMS24BE)
		case e.sampleSize == 32:
			codec = pick(media.CodecPCMS32LE, media.CodecPCMS32BE)
		}
	}
	if codec == media.CodecNull {
		return nil, media.Unsupported("lpcm sample format")
	}

	return newPCMParams(codec, ch), nil
}

func (p *parser) readVisualEntry(r stream.ByteReader, h AtomHeader) (*media.CodecParameters, error) {
	f := fields{r: r}
	f.skip(6)
	f.u16()
	f.skip(16)
	width := int(f.u16())
	height := int(f.u16())
	f.u32()
	f.u32()
	f.u32()
	f.u16()
	f.skip(32)
	f.u16()
	f.u16()
	if f.err != nil {
		return nil, f.err
	}

	var (
		cfg  *videoConfig
		esds *esDescriptor
	)
	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}

		switch child.Type {
		case TypeAvcC:
			cfg, err = ReadAtom(it, readAvcC)
		case TypeHvcC:
			cfg, err = ReadAtom(it, readHvcC)
		case TypeEsds:
			esds, err = ReadAtom(it, readEsds)
		}
		if err != nil {
			return nil, err
		}
	}

	var params *media.CodecParameters
	switch {
	case cfg != nil:
		params = media.NewCodecParameters(cfg.codec).WithExtraData(cfg.record)
		if cfg.width > 0 && cfg.height > 0 {
			width, height = cfg.width, cfg.height
		}
	case h.Type == TypeAvc1 || h.Type == TypeAvc3:
		params = media.NewCodecParameters(media.CodecH264)
	case h.Type == TypeHvc1 || h.Type == TypeHev1:
		params = media.NewCodecParameters(media.CodecHEVC)
	case esds != nil && esds.codec().IsVideo():
		params = media.NewCodecParameters(esds.codec()).WithExtraData(esds.specificInfo)
	default:
		p.log.Info("isomp4: unsupported visual sample entry", "entry", h.Type.String())
		params = media.NewCodecParameters(media.CodecNull)
	}

	return params.WithDimensions(width, height), nil
}
