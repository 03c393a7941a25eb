// SPDX-License-Identifier: EPL-2.0

package audio

import (
	goaudio "github.com/go-audio/audio"
)

// SignalSpec describes the sample rate and channel arrangement of decoded audio.
type SignalSpec struct {
	Rate     uint32
	Channels Channels
}

// NewSignalSpec returns a SignalSpec for the given rate and channel mask.
func NewSignalSpec(rate uint32, channels Channels) SignalSpec {
	return SignalSpec{Rate: rate, Channels: channels}
}

// Format converts the spec into the go-audio representation.
func (s SignalSpec) Format() *goaudio.Format {
	return &goaudio.Format{
		NumChannels: s.Channels.Count(),
		SampleRate:  int(s.Rate),
	}
}

// Buffer holds planar float32 audio, one plane per channel. A decoder owns its
// Buffer and the contents stay valid only until the next call into the decoder.
type Buffer struct {
	spec     SignalSpec
	planes   [][]float32
	frames   int
	capacity int
}

// NewBuffer allocates a Buffer that can hold capacity frames of spec.
func NewBuffer(capacity int, spec SignalSpec) *Buffer {
	n := spec.Channels.Count()
	planes := make([][]float32, n)
	backing := make([]float32, n*capacity)
	for i := range planes {
		planes[i] = backing[i*capacity : (i+1)*capacity : (i+1)*capacity]
	}

	return &Buffer{
		spec:     spec,
		planes:   planes,
		capacity: capacity,
	}
}

func (b *Buffer) Spec() SignalSpec { return b.spec }
func (b *Buffer) Frames() int      { return b.frames }
func (b *Buffer) Capacity() int    { return b.capacity }

// Clear drops all buffered frames but keeps the allocation.
func (b *Buffer) Clear() {
	b.frames = 0
}

// Render extends the buffer by n zeroed frames and returns the first new frame index.
func (b *Buffer) Render(n int) (int, error) {
	if n < 0 || b.frames+n > b.capacity {
		return 0, ErrCapacityExceeded
	}

	start := b.frames
	for _, p := range b.planes {
		clear(p[start : start+n])
	}
	b.frames += n

	return start, nil
}

// Chan returns the written frames of channel ch.
func (b *Buffer) Chan(ch int) []float32 {
	return b.planes[ch][:b.frames]
}

// Planes returns every channel plane, trimmed to the written frames.
func (b *Buffer) Planes() [][]float32 {
	out := make([][]float32, len(b.planes))
	for i, p := range b.planes {
		out[i] = p[:b.frames]
	}

	return out
}

// Trim removes start frames from the front and end frames from the back.
func (b *Buffer) Trim(start, end int) error {
	if start < 0 || end < 0 || start+end > b.frames {
		return ErrInvalidTrim
	}
	if start > 0 {
		for _, p := range b.planes {
			copy(p, p[start:b.frames])
		}
	}
	b.frames -= start + end

	return nil
}

// Truncate keeps at most n frames.
func (b *Buffer) Truncate(n int) {
	if n < b.frames {
		b.frames = max(n, 0)
	}
}

// CopyInterleaved writes interleaved samples to dst and returns the number of
// frames written.
func (b *Buffer) CopyInterleaved(dst []float32) (int, error) {
	n := len(b.planes)
	if n == 0 {
		return 0, ErrInvalidChannels
	}
	if len(dst)%n != 0 {
		return 0, ErrInvalidDstSize
	}

	frames := min(len(dst)/n, b.frames)
	for f := range frames {
		for ch, p := range b.planes {
			dst[f*n+ch] = p[f]
		}
	}

	return frames, nil
}

// CopyInterleavedS16 is CopyInterleaved with 16-bit output.
func (b *Buffer) CopyInterleavedS16(dst []int16) (int, error) {
	n := len(b.planes)
	if n == 0 {
		return 0, ErrInvalidChannels
	}
	if len(dst)%n != 0 {
		return 0, ErrInvalidDstSize
	}

	frames := min(len(dst)/n, b.frames)
	for f := range frames {
		for ch, p := range b.planes {
			dst[f*n+ch] = FloatToS16(p[f])
		}
	}

	return frames, nil
}

// AsFloat32Buffer returns an interleaved copy in go-audio form.
func (b *Buffer) AsFloat32Buffer() *goaudio.Float32Buffer {
	data := make([]float32, b.frames*len(b.planes))
	if len(b.planes) > 0 {
		_, _ = b.CopyInterleaved(data)
	}

	return &goaudio.Float32Buffer{
		Format:         b.spec.Format(),
		Data:           data,
		SourceBitDepth: 32,
	}
}

// AsIntBuffer returns an interleaved copy scaled to bitDepth signed integers.
func (b *Buffer) AsIntBuffer(bitDepth int) *goaudio.IntBuffer {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		bitDepth = 16
	}
	scale := float64(goaudio.IntMaxSignedValue(bitDepth))

	n := len(b.planes)
	data := make([]int, b.frames*n)
	for f := 0; f < b.frames; f++ {
		for ch, p := range b.planes {
			x := float64(p[f])
			if x > 1 {
				x = 1
			} else if x < -1 {
				x = -1
			}
			data[f*n+ch] = int(x * scale)
		}
	}

	return &goaudio.IntBuffer{
		Format:         b.spec.Format(),
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}
