// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/bits"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

const (
	maxEsdsLen = 64 << 10
	maxAvcCLen = 64 << 10
)

// bitFields is the bit level counterpart of fields.
type bitFields struct {
	r   *bits.ReaderLtr
	err error
}

func (b *bitFields) read(n uint) uint32 {
	if b.err != nil {
		return 0
	}
	v, err := b.r.ReadBitsLeq32(n)
	b.err = err

	return v
}

func (b *bitFields) read64(n uint) uint64 {
	if b.err != nil {
		return 0
	}
	v, err := b.r.ReadBitsLeq64(n)
	b.err = err

	return v
}

// readPayload reads the rest of an atom, refusing payloads above limit.
func readPayload(r stream.ByteReader, h AtomHeader, limit uint64, name string) ([]byte, error) {
	n, ok := h.DataUnreadAt(r.Pos())
	if !ok {
		return nil, media.DecodeError(name + " atom size is unknown")
	}
	if n > limit {
		return nil, media.LimitError(name+" size", n)
	}
	f := fields{r: r}
	b := f.bytes(n)

	return b, f.err
}

// MPEG-4 object type indications.
const (
	otiH264       = 0x21
	otiHEVC       = 0x23
	otiAAC        = 0x40
	otiAACMain    = 0x66
	otiAACLC      = 0x67
	otiAACSSR     = 0x68
	otiMPEG2Audio = 0x69
	otiMPEG1Audio = 0x6b
	otiAC3        = 0xa5
	otiEAC3       = 0xa6
	otiOpus       = 0xad
	otiVorbis     = 0xdd
)

var objectTypeCodecs = map[uint8]media.CodecType{
	otiH264:       media.CodecH264,
	otiHEVC:       media.CodecHEVC,
	otiAAC:        media.CodecAAC,
	otiAACMain:    media.CodecAAC,
	otiAACLC:      media.CodecAAC,
	otiAACSSR:     media.CodecAAC,
	otiMPEG2Audio: media.CodecMP3,
	otiMPEG1Audio: media.CodecMP3,
	otiAC3:        media.CodecAC3,
	otiEAC3:       media.CodecEAC3,
	otiOpus:       media.CodecOpus,
	otiVorbis:     media.CodecVorbis,
}

// esDescriptor is the part of an esds atom a decoder needs.
type esDescriptor struct {
	esID          uint16
	objectType    uint8
	streamType    uint8
	bufferSize    uint32
	maxBitrate    uint32
	avgBitrate    uint32
	specificInfo  []byte
	hasDecoderCfg bool
}

func (d *esDescriptor) codec() media.CodecType {
	return objectTypeCodecs[d.objectType]
}

// descriptors walks MPEG-4 descriptors held in a byte slice.
type descriptors struct {
	b []byte
}

func (d *descriptors) next() (uint8, []byte, error) {
	if len(d.b) < 2 {
		return 0, nil, media.DecodeError("esds descriptor is truncated")
	}
	tag := d.b[0]
	d.b = d.b[1:]

	var size int
	for i := 0; ; i++ {
		if i == 4 || len(d.b) == 0 {
			return 0, nil, media.DecodeError("esds descriptor length is invalid")
		}
		c := d.b[0]
		d.b = d.b[1:]
		size = size<<7 | int(c&0x7f)
		if c&0x80 == 0 {
			break
		}
	}
	if size > len(d.b) {
		return 0, nil, media.DecodeError("esds descriptor is truncated")
	}
	body := d.b[:size]
	d.b = d.b[size:]

	return tag, body, nil
}

const (
	tagESDescriptor     = 0x03
	tagDecoderConfig    = 0x04
	tagDecoderSpecific  = 0x05
	esFlagStreamDepends = 0x80
	esFlagURL           = 0x40
	esFlagOCRStream     = 0x20
)

func readEsds(r stream.ByteReader, h AtomHeader) (*esDescriptor, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}
	b, err := readPayload(r, h, maxEsdsLen, "esds")
	if err != nil {
		return nil, err
	}

	top := descriptors{b: b}
	tag, body, err := top.next()
	if err != nil {
		return nil, err
	}
	if tag != tagESDescriptor {
		return nil, media.DecodeError("esds does not start with an es descriptor")
	}
	if len(body) < 3 {
		return nil, media.DecodeError("es descriptor is truncated")
	}

	d := &esDescriptor{esID: be.Uint16(body)}
	flags := body[2]
	body = body[3:]
	if flags&esFlagStreamDepends != 0 {
		if len(body) < 2 {
			return nil, media.DecodeError("es descriptor is truncated")
		}
		body = body[2:]
	}
	if flags&esFlagURL != 0 {
		if len(body) < 1 || len(body) < 1+int(body[0]) {
			return nil, media.DecodeError("es descriptor is truncated")
		}
		body = body[1+int(body[0]):]
	}
	if flags&esFlagOCRStream != 0 {
		if len(body) < 2 {
			return nil, media.DecodeError("es descriptor is truncated")
		}
		body = body[2:]
	}

	inner := descriptors{b: body}
	for len(inner.b) > 0 {
		tag, sub, err := inner.next()
		if err != nil {
			return nil, err
		}

		if tag != tagDecoderConfig {
			continue
		}
		if err := d.readDecoderConfig(sub); err != nil {
			return nil, err
		}
	}

	if !d.hasDecoderCfg {
		return nil, media.DecodeError("esds is missing a decoder config descriptor")
	}

	return d, nil
}

func (d *esDescriptor) readDecoderConfig(b []byte) error {
	if len(b) < 13 {
		return media.DecodeError("decoder config descriptor is truncated")
	}
	d.hasDecoderCfg = true
	d.objectType = b[0]
	d.streamType = b[1] >> 2
	d.bufferSize = uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])
	d.maxBitrate = be.Uint32(b[5:])
	d.avgBitrate = be.Uint32(b[9:])

	sub := descriptors{b: b[13:]}
	for len(sub.b) > 0 {
		tag, body, err := sub.next()
		if err != nil {
			return err
		}
		if tag == tagDecoderSpecific {
			d.specificInfo = body
		}
	}

	return nil
}

// audioParams builds the parameters of an esds described audio stream.
func (d *esDescriptor) audioParams() (*media.CodecParameters, error) {
	codec := d.codec()
	if codec.IsVideo() {
		return nil, media.DecodeError("esds object type is not audio")
	}
	params := media.NewCodecParameters(codec)

	switch codec {
	case media.CodecAAC:
		if len(d.specificInfo) == 0 {
			return params.WithFramesPerBlock(1024), nil
		}
		var asc mpeg4audio.AudioSpecificConfig
		if err := asc.Unmarshal(d.specificInfo); err != nil {
			return nil, media.DecodeError("invalid aac audio specific config")
		}
		params.WithExtraData(d.specificInfo).WithFramesPerBlock(1024)
		if asc.FrameLengthFlag {
			params.WithFramesPerBlock(960)
		}
		if asc.SampleRate > 0 {
			params.WithSampleRate(uint32(asc.SampleRate))
		}
		if ch, ok := audio.ChannelsFromCount(asc.ChannelCount); ok {
			params.WithChannels(ch)
		}
	case media.CodecMP3:
		params.WithFramesPerBlock(1152)
	case media.CodecAC3, media.CodecEAC3:
		params.WithFramesPerBlock(1536)
	default:
		if len(d.specificInfo) > 0 {
			params.WithExtraData(d.specificInfo)
		}
	}

	return params, nil
}

// ALAC channel layouts for 1 to 8 channels.
var alacLayouts = [...]audio.Channels{
	audio.FrontCentre,
	audio.FrontLeft | audio.FrontRight,
	audio.FrontCentre | audio.FrontLeft | audio.FrontRight,
	audio.FrontCentre | audio.FrontLeft | audio.FrontRight | audio.RearCentre,
	audio.FrontCentre | audio.FrontLeft | audio.FrontRight | audio.RearLeft | audio.RearRight,
	audio.FrontCentre | audio.FrontLeft | audio.FrontRight | audio.RearLeft | audio.RearRight | audio.LFE1,
	audio.FrontCentre | audio.FrontLeft | audio.FrontRight | audio.RearLeft | audio.RearRight | audio.RearCentre | audio.LFE1,
	audio.FrontCentre | audio.FrontLeftCentre | audio.FrontRightCentre | audio.FrontLeft | audio.FrontRight |
		audio.RearLeft | audio.RearRight | audio.LFE1,
}

const alacConfigLen = 24

func readAlac(r stream.ByteReader, h AtomHeader) (*media.CodecParameters, error) {
	version, flags, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, media.Unsupported("alac version")
	}
	if flags != 0 {
		return nil, media.DecodeError("alac flags not zero")
	}

	b, err := readPayload(r, h, maxConfigAtomLen, "alac")
	if err != nil {
		return nil, err
	}
	switch len(b) {
	case alacConfigLen:
	case 2 * alacConfigLen:
		b = b[alacConfigLen:]
	default:
		return nil, media.DecodeError("invalid alac atom length")
	}

	frameLength := be.Uint32(b)
	bitDepth := b[5]
	channels := b[9]
	sampleRate := be.Uint32(b[20:])

	if frameLength == 0 {
		return nil, media.DecodeError("alac frame length is zero")
	}
	switch bitDepth {
	case 16, 20, 24, 32:
	default:
		return nil, media.DecodeError("invalid alac bit depth")
	}
	if channels == 0 || int(channels) > len(alacLayouts) {
		return nil, media.Unsupported("alac channel count")
	}

	return media.NewCodecParameters(media.CodecALAC).
		WithSampleRate(sampleRate).
		WithChannels(alacLayouts[channels-1]).
		WithBitsPerSample(uint32(bitDepth)).
		WithMaxFramesPerPacket(uint64(frameLength)).
		WithFramesPerBlock(uint64(frameLength)).
		WithExtraData(b), nil
}

const (
	flacBlockStreamInfo = 0
	flacStreamInfoLen   = 34
)

func readDfLa(r stream.ByteReader, h AtomHeader) (*media.CodecParameters, error) {
	version, flags, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, media.Unsupported("dfla version")
	}
	if flags != 0 {
		return nil, media.DecodeError("dfla flags not zero")
	}

	f := fields{r: r}
	blockType := f.u8() & 0x7f
	blockLen := f.u24()
	if f.err != nil {
		return nil, f.err
	}
	if blockType != flacBlockStreamInfo || blockLen != flacStreamInfoLen {
		return nil, media.DecodeError("dfla first block is not streaminfo")
	}
	info := f.bytes(flacStreamInfoLen)
	if f.err != nil {
		return nil, f.err
	}

	return parseStreamInfo(info)
}

// parseStreamInfo decodes a FLAC STREAMINFO block.
func parseStreamInfo(info []byte) (*media.CodecParameters, error) {
	b := bitFields{r: bits.NewReaderLtr(info)}
	minBlock := b.read(16)
	maxBlock := b.read(16)
	b.read(24)
	b.read(24)
	rate := b.read(20)
	channels := b.read(3) + 1
	bps := b.read(5) + 1
	total := b.read64(36)
	if b.err != nil {
		return nil, b.err
	}

	if minBlock < 16 || maxBlock < minBlock {
		return nil, media.DecodeError("flac block sizes are invalid")
	}
	if rate == 0 {
		return nil, media.DecodeError("flac sample rate is zero")
	}
	if bps < 4 {
		return nil, media.DecodeError("flac bits per sample is invalid")
	}

	ch, _ := audio.ChannelsFromCount(int(channels))
	params := media.NewCodecParameters(media.CodecFLAC).
		WithSampleRate(rate).
		WithChannels(ch).
		WithBitsPerSample(bps).
		WithMaxFramesPerPacket(uint64(maxBlock)).
		WithExtraData(info)
	if total > 0 {
		params.WithNFrames(total)
	}

	var v media.Verification
	copy(v.MD5[:], info[18:])
	if v.MD5 != [16]byte{} {
		params.WithVerification(v)
	}

	return params, nil
}

const opusRate = 48000

func readDOps(r stream.ByteReader, h AtomHeader) (*media.CodecParameters, error) {
	n, ok := h.DataLen()
	if !ok || n < 11 || n > 268 {
		return nil, media.DecodeError("invalid dops atom length")
	}
	f := fields{r: r}
	b := f.bytes(n)
	if f.err != nil {
		return nil, f.err
	}
	if b[0] != 0 {
		return nil, media.Unsupported("dops version")
	}

	channels := int(b[1])
	preSkip := be.Uint16(b[2:])
	inputRate := be.Uint32(b[4:])
	gain := be.Uint16(b[8:])
	family := b[10]

	ch, ok := audio.ChannelsFromCount(channels)
	if !ok {
		return nil, media.Unsupported("opus channel count")
	}

	// Rebuild the little-endian OpusHead packet decoders expect.
	head := make([]byte, 0, 19+len(b)-11)
	head = append(head, "OpusHead"...)
	head = append(head, 1, b[1])
	head = append(head, byte(preSkip), byte(preSkip>>8))
	head = append(head, byte(inputRate), byte(inputRate>>8), byte(inputRate>>16), byte(inputRate>>24))
	head = append(head, byte(gain), byte(gain>>8), family)
	head = append(head, b[11:]...)

	return media.NewCodecParameters(media.CodecOpus).
		WithSampleRate(opusRate).
		WithChannels(ch).
		WithDelay(uint32(preSkip)).
		WithExtraData(head), nil
}

var ac3Rates = [3]uint32{48000, 44100, 32000}

// ac3Modes maps acmod to its channel layout.
var ac3Modes = [8]audio.Channels{
	audio.FrontLeft | audio.FrontRight,
	audio.FrontCentre,
	audio.FrontLeft | audio.FrontRight,
	audio.FrontLeft | audio.FrontCentre | audio.FrontRight,
	audio.FrontLeft | audio.FrontRight | audio.RearCentre,
	audio.FrontLeft | audio.FrontCentre | audio.FrontRight | audio.RearCentre,
	audio.FrontLeft | audio.FrontRight | audio.SideLeft | audio.SideRight,
	audio.FrontLeft | audio.FrontCentre | audio.FrontRight | audio.SideLeft | audio.SideRight,
}

const ac3FramesPerBlock = 1536

func ac3Params(codec media.CodecType, fscod, acmod, lfe uint32, extra []byte) (*media.CodecParameters, error) {
	params := media.NewCodecParameters(codec).
		WithFramesPerBlock(ac3FramesPerBlock).
		WithExtraData(extra)
	if fscod < uint32(len(ac3Rates)) {
		params.WithSampleRate(ac3Rates[fscod])
	} else if codec == media.CodecAC3 {
		return nil, media.DecodeError("invalid ac3 sample rate code")
	}

	ch := ac3Modes[acmod]
	if lfe != 0 {
		ch |= audio.LFE1
	}

	return params.WithChannels(ch), nil
}

func readDac3(r stream.ByteReader, h AtomHeader) (*media.CodecParameters, error) {
	n, ok := h.DataLen()
	if !ok || n != 3 {
		return nil, media.DecodeError("invalid dac3 atom length")
	}
	f := fields{r: r}
	extra := f.bytes(3)
	if f.err != nil {
		return nil, f.err
	}

	b := bitFields{r: bits.NewReaderLtr(extra)}
	fscod := b.read(2)
	b.read(5)
	b.read(3)
	acmod := b.read(3)
	lfe := b.read(1)
	if b.err != nil {
		return nil, b.err
	}

	return ac3Params(media.CodecAC3, fscod, acmod, lfe, extra)
}

func readDec3(r stream.ByteReader, h AtomHeader) (*media.CodecParameters, error) {
	extra, err := readPayload(r, h, maxConfigAtomLen, "dec3")
	if err != nil {
		return nil, err
	}

	b := bitFields{r: bits.NewReaderLtr(extra)}
	b.read(13)
	b.read(3)
	fscod := b.read(2)
	b.read(5)
	b.read(1)
	b.read(1)
	b.read(3)
	acmod := b.read(3)
	lfe := b.read(1)
	if b.err != nil {
		return nil, media.DecodeError("dec3 atom is truncated")
	}

	return ac3Params(media.CodecEAC3, fscod, acmod, lfe, extra)
}

// videoConfig is what a video decoder configuration record yields.
type videoConfig struct {
	codec  media.CodecType
	record []byte
	width  int
	height int
}

func readAvcC(r stream.ByteReader, h AtomHeader) (*videoConfig, error) {
	b, err := readPayload(r, h, maxAvcCLen, "avcC")
	if err != nil {
		return nil, err
	}
	if len(b) < 6 || b[0] != 1 {
		return nil, media.DecodeError("unexpected avc decoder configuration record version")
	}

	cfg := &videoConfig{codec: media.CodecH264, record: b}
	numSPS := int(b[5] & 0x1f)
	rest := b[6:]
	for range numSPS {
		if len(rest) < 2 {
			return nil, media.DecodeError("avc decoder configuration record is truncated")
		}
		n := int(be.Uint16(rest))
		if len(rest) < 2+n {
			return nil, media.DecodeError("avc decoder configuration record is truncated")
		}
		nalu := rest[2 : 2+n]
		rest = rest[2+n:]

		if cfg.width == 0 {
			var sps h264.SPS
			if err := sps.Unmarshal(nalu); err == nil {
				cfg.width, cfg.height = sps.Width(), sps.Height()
			}
		}
	}

	return cfg, nil
}

const (
	hvcCHeaderLen = 22
	hevcNALSPS    = 33
)

func readHvcC(r stream.ByteReader, h AtomHeader) (*videoConfig, error) {
	b, err := readPayload(r, h, maxConfigAtomLen, "hvcC")
	if err != nil {
		return nil, err
	}
	if len(b) < hvcCHeaderLen+1 || b[0] != 1 {
		return nil, media.DecodeError("unexpected hevc decoder configuration record version")
	}

	cfg := &videoConfig{codec: media.CodecHEVC, record: b}
	numArrays := int(b[hvcCHeaderLen])
	rest := b[hvcCHeaderLen+1:]
	for range numArrays {
		if len(rest) < 3 {
			return nil, media.DecodeError("hevc decoder configuration record is truncated")
		}
		typ := rest[0] & 0x3f
		numNalus := int(be.Uint16(rest[1:]))
		rest = rest[3:]

		for range numNalus {
			if len(rest) < 2 {
				return nil, media.DecodeError("hevc decoder configuration record is truncated")
			}
			n := int(be.Uint16(rest))
			if len(rest) < 2+n {
				return nil, media.DecodeError("hevc decoder configuration record is truncated")
			}
			nalu := rest[2 : 2+n]
			rest = rest[2+n:]

			if typ == hevcNALSPS && cfg.width == 0 {
				var sps h265.SPS
				if err := sps.Unmarshal(nalu); err == nil {
					cfg.width, cfg.height = sps.Width(), sps.Height()
				}
			}
		}
	}

	return cfg, nil
}

// readWave finds the esds atom QuickTime nests in a wave atom.
func readWave(r stream.ByteReader, h AtomHeader) (*esDescriptor, error) {
	it := NewAtomIterator(r, h)
	it.anyType = true
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, nil
		}
		if child.Type == TypeEsds {
			return ReadAtom(it, readEsds)
		}
	}
}
