// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"errors"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
)

// go-mp3 always produces interleaved stereo signed 16-bit samples.
const bytesPerOutputFrame = 4

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// feed hands packets to go-mp3 one at a time.
type feed struct {
	data []byte
}

func (f *feed) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]

	return n, nil
}

// Decoder decodes MPEG-1 and MPEG-2 layer III packets, one frame per packet.
type Decoder struct {
	params media.CodecParameters
	open   func(io.Reader) (mp3Reader, error)
	dec    mp3Reader
	in     feed
	out    []byte
	buf    *audio.Buffer
}

func NewDecoder(params *media.CodecParameters, _ media.DecoderOptions) (*Decoder, error) {
	if params.Codec != media.CodecMP3 {
		return nil, media.Unsupported("mp3: invalid codec type")
	}

	d := &Decoder{
		params: *params,
		open: func(r io.Reader) (mp3Reader, error) {
			return gomp3.NewDecoder(r)
		},
	}
	if params.SampleRate > 0 && params.Channels.Count() > 0 {
		d.buf = audio.NewBuffer(1152, audio.NewSignalSpec(params.SampleRate, params.Channels))
	}

	return d, nil
}

// frameSamples reads the frame header at the start of data and returns the
// number of samples per channel the frame decodes to.
func frameSamples(data []byte) (int, error) {
	if len(data) < 4 || data[0] != 0xff || data[1]&0xe0 != 0xe0 {
		return 0, media.DecodeError("mp3: missing frame sync")
	}
	if data[1]&0x06 != 0x02 {
		return 0, media.Unsupported("mp3: only layer III is supported")
	}

	switch data[1] & 0x18 {
	case 0x18:
		return 1152, nil
	case 0x10:
		return 576, nil
	default:
		return 0, media.Unsupported("mp3: mpeg 2.5 is not supported")
	}
}

func (d *Decoder) Decode(pkt *media.Packet) (*audio.Buffer, error) {
	samples, err := frameSamples(pkt.Data)
	if err != nil {
		return nil, err
	}

	d.in.data = pkt.Data
	if d.dec == nil {
		dec, err := d.open(&d.in)
		if err != nil {
			return nil, media.DecodeError("mp3: invalid frame")
		}
		d.dec = dec
	}

	need := samples * bytesPerOutputFrame
	if cap(d.out) < need {
		d.out = make([]byte, need)
	}
	d.out = d.out[:need]

	// Reading exactly one frame of output keeps go-mp3 from pulling on the
	// empty feed, which would drop its bit reservoir.
	if _, err := io.ReadFull(d.dec, d.out); err != nil {
		d.dec = nil
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, media.DecodeError("mp3: truncated frame")
		}
		return nil, media.DecodeError("mp3: invalid frame")
	}

	if err := d.ensureBuffer(samples); err != nil {
		return nil, err
	}
	d.fill(samples)

	return d.buf, nil
}

func (d *Decoder) ensureBuffer(samples int) error {
	if d.buf != nil && d.buf.Capacity() >= samples {
		return nil
	}

	spec := audio.NewSignalSpec(d.params.SampleRate, d.params.Channels)
	if spec.Rate == 0 {
		spec.Rate = uint32(d.dec.SampleRate())
	}
	if spec.Channels.Count() == 0 {
		spec.Channels = audio.FrontLeft | audio.FrontRight
	}
	if spec.Channels.Count() > 2 {
		return media.Unsupported("mp3: more than two channels")
	}
	d.buf = audio.NewBuffer(max(samples, 1152), spec)

	return nil
}

// fill converts d.out into the buffer, folding to mono when the track is mono.
func (d *Decoder) fill(samples int) {
	d.buf.Clear()
	_, _ = d.buf.Render(samples)

	planes := d.buf.Planes()
	for i := range samples {
		l := float32(int16(binary.LittleEndian.Uint16(d.out[4*i:]))) / 32768
		r := float32(int16(binary.LittleEndian.Uint16(d.out[4*i+2:]))) / 32768
		if len(planes) == 1 {
			planes[0][i] = (l + r) * 0.5
			continue
		}
		planes[0][i] = l
		planes[1][i] = r
	}
}

// Reset drops the bit reservoir. The next packet starts a new decoder.
func (d *Decoder) Reset() {
	d.dec = nil
	d.in.data = nil
}

func (d *Decoder) Finalize() media.FinalizeResult { return media.FinalizeResult{} }

func (d *Decoder) CodecParams() *media.CodecParameters { return &d.params }

var _ media.Decoder = (*Decoder)(nil)

// Descriptor registers the decoder with a probe.CodecRegistry.
func Descriptor() probe.CodecDescriptor {
	return probe.CodecDescriptor{
		Codec:    media.CodecMP3,
		LongName: "MPEG Audio Layer III",
		Make: func(params *media.CodecParameters, opts media.DecoderOptions) (media.Decoder, error) {
			return NewDecoder(params, opts)
		},
	}
}
