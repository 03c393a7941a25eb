// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// lowpassAlpha is the coefficient of the one-pole filter applied to the input
// when downsampling.
const lowpassAlpha = 0.5

// Resampler converts a Source to another sample rate with Catmull-Rom
// interpolation. The channel count is preserved.
//
// When downsampling the input first goes through a one-pole low-pass. It is a
// light anti-aliasing measure, not a brick wall filter.
type Resampler struct {
	src      Source
	srcRate  int64
	rate     int
	channels int

	// win holds interleaved source frames, the first one being frame base.
	win  []float32
	base int64
	// out counts output frames. Frame k sits at source frame k*srcRate/rate.
	out int64

	chunk []float32
	eof   bool
	err   error

	lowpass bool
	primed  bool
	state   []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	ch := src.Channels()

	return &Resampler{
		src:      src,
		srcRate:  int64(src.SampleRate()),
		rate:     dstRate,
		channels: ch,
		chunk:    make([]float32, max(src.BufSize()/ch, 1)*ch),
		lowpass:  src.SampleRate() > dstRate,
		state:    make([]float32, ch),
	}
}

func (r *Resampler) SampleRate() int { return r.rate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	return r.src.Close()
}

// ReadSamples fills dst, whose length must be a multiple of the channel count,
// with interleaved samples at the target rate.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	ch := r.channels
	rate := int64(r.rate)
	n := 0
	for n < len(dst) {
		pos := r.out * r.srcRate
		i := pos / rate

		r.compact(i - 1)
		for r.err == nil && !r.eof && r.end() <= i+2 {
			r.err = r.fill()
		}
		if r.err != nil || i >= r.end() {
			break
		}

		x := float32(float64(pos%rate) / float64(rate))
		for c := range ch {
			dst[n+c] = catmullRom(r.at(i-1, c), r.at(i, c), r.at(i+1, c), r.at(i+2, c), x)
		}
		n += ch
		r.out++
	}

	switch {
	case n > 0:
		return n, nil
	case r.err != nil:
		return 0, r.err
	default:
		return 0, io.EOF
	}
}

// end is the index one past the last buffered source frame.
func (r *Resampler) end() int64 {
	return r.base + int64(len(r.win)/r.channels)
}

// at returns channel c of frame i, repeating the edge frames past either end.
func (r *Resampler) at(i int64, c int) float32 {
	i = min(max(i, r.base), r.end()-1)
	return r.win[int(i-r.base)*r.channels+c]
}

// compact drops the buffered frames before frame keep.
func (r *Resampler) compact(keep int64) {
	drop := int(keep - r.base)
	if drop <= 0 || drop*r.channels < len(r.chunk) {
		return
	}

	drop *= r.channels
	r.win = r.win[:copy(r.win, r.win[drop:])]
	r.base = keep
}

func (r *Resampler) fill() error {
	n, err := r.src.ReadSamples(r.chunk)
	n -= n % r.channels
	in := r.chunk[:n]

	if r.lowpass && n > 0 {
		if !r.primed {
			copy(r.state, in)
			r.primed = true
		}
		for f := 0; f < n; f += r.channels {
			for c := range r.channels {
				y := lowpassAlpha*in[f+c] + (1-lowpassAlpha)*r.state[c]
				in[f+c], r.state[c] = y, y
			}
		}
	}
	r.win = append(r.win, in...)

	switch {
	case err == io.EOF:
		r.eof = true
	case err != nil:
		return fmt.Errorf("resampler: %w", err)
	}

	return nil
}

// catmullRom interpolates between y1 and y2 at x in [0, 1].
func catmullRom(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2

	return ((a0*x+a1)*x+a2)*x + y1
}

var _ Source = (*Resampler)(nil)
