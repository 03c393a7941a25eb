// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"github.com/jfreymuth/vorbis"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
)

// Decoder decodes Vorbis audio packets. The three setup headers come from the
// track's extra data in Xiph lacing.
type Decoder struct {
	params   media.CodecParameters
	dec      vorbis.Decoder
	channels int
	pcm      []float32
	buf      *audio.Buffer
}

func NewDecoder(params *media.CodecParameters, _ media.DecoderOptions) (*Decoder, error) {
	if params.Codec != media.CodecVorbis {
		return nil, media.Unsupported("vorbis: invalid codec type")
	}

	headers, err := splitXiphLacing(params.ExtraData)
	if err != nil {
		return nil, err
	}
	if len(headers) != 3 {
		return nil, media.DecodeError("vorbis: expected three setup headers")
	}

	d := &Decoder{params: *params}
	for _, h := range headers {
		if err := d.dec.ReadHeader(h); err != nil {
			return nil, media.DecodeError("vorbis: invalid setup header")
		}
	}
	if !d.dec.HeadersRead() {
		return nil, media.DecodeError("vorbis: missing setup header")
	}

	d.channels = d.dec.Channels()
	if d.channels == 0 {
		return nil, media.DecodeError("vorbis: stream has no channels")
	}
	mask := params.Channels
	if mask.Count() != d.channels {
		var ok bool
		if mask, ok = audio.ChannelsFromCount(d.channels); !ok {
			return nil, media.Unsupported("vorbis: unsupported channel count")
		}
	}
	rate := uint32(d.dec.SampleRate())
	d.params.SampleRate = rate
	d.params.Channels = mask

	d.pcm = make([]float32, d.dec.BufferSize())
	d.buf = audio.NewBuffer(d.dec.BufferSize()/d.channels, audio.NewSignalSpec(rate, mask))

	return d, nil
}

// splitXiphLacing splits b into the packets it holds. The first byte is the
// packet count minus one, followed by the lace values of every packet but the
// last, which takes the remaining bytes.
func splitXiphLacing(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, media.DecodeError("vorbis: missing extra data")
	}

	count := int(b[0]) + 1
	b = b[1:]
	sizes := make([]int, count-1)
	for i := range sizes {
		for {
			if len(b) == 0 {
				return nil, media.DecodeError("vorbis: truncated lacing")
			}
			v := b[0]
			b = b[1:]
			sizes[i] += int(v)
			if v != 255 {
				break
			}
		}
	}

	packets := make([][]byte, 0, count)
	for _, n := range sizes {
		if n > len(b) {
			return nil, media.DecodeError("vorbis: truncated lacing")
		}
		packets = append(packets, b[:n])
		b = b[n:]
	}

	return append(packets, b), nil
}

func (d *Decoder) Decode(pkt *media.Packet) (*audio.Buffer, error) {
	out, err := d.dec.DecodeInto(pkt.Data, d.pcm)
	if err != nil {
		return nil, media.DecodeError("vorbis: invalid packet")
	}

	frames := len(out) / d.channels
	d.buf.Clear()
	if _, err := d.buf.Render(frames); err != nil {
		return nil, media.DecodeError("vorbis: packet exceeds block size")
	}

	planes := d.buf.Planes()
	for f := range frames {
		for ch := range d.channels {
			planes[ch][f] = out[f*d.channels+ch]
		}
	}

	return d.buf, nil
}

// Reset drops the overlap from the previous packet.
func (d *Decoder) Reset() {
	d.dec.Clear()
}

func (d *Decoder) Finalize() media.FinalizeResult { return media.FinalizeResult{} }

func (d *Decoder) CodecParams() *media.CodecParameters { return &d.params }

// Comments are the user comments from the comment header.
func (d *Decoder) Comments() []string { return d.dec.Comments }

var _ media.Decoder = (*Decoder)(nil)

func Descriptor() probe.CodecDescriptor {
	return probe.CodecDescriptor{
		Codec:    media.CodecVorbis,
		LongName: "Vorbis",
		Make: func(params *media.CodecParameters, opts media.DecoderOptions) (media.Decoder, error) {
			return NewDecoder(params, opts)
		},
	}
}
