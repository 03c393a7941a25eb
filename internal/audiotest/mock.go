// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds fixtures shared by the tests of several packages.
package audiotest

import (
	"io"
	"math"
)

// Wave returns the sample of channel ch at frame i.
type Wave func(i, ch int) float32

func Silence(int, int) float32 { return 0 }

func Constant(v float32) Wave {
	return func(int, int) float32 { return v }
}

// Sine is a full scale sine of freq Hz at the given sample rate.
func Sine(rate int, freq float64) Wave {
	return func(i, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
	}
}

// Source generates a fixed number of frames from a Wave. It satisfies
// audio.Source without importing it.
type Source struct {
	rate     int
	channels int
	frames   int
	wave     Wave

	// Chunk caps the frames returned by one read, like a packet based decoder
	// would. Zero means no cap.
	Chunk int
	// Err, when set, is returned after the last frame instead of io.EOF.
	Err error

	pos    int
	closed bool
}

func NewSource(rate, channels, frames int, wave Wave) *Source {
	return &Source{rate: rate, channels: channels, frames: frames, wave: wave}
}

func NewSilentSource(rate, channels, frames int) *Source {
	return NewSource(rate, channels, frames, Silence)
}

func NewSineSource(rate, channels, frames int, freq float64) *Source {
	return NewSource(rate, channels, frames, Sine(rate, freq))
}

func NewConstantSource(rate, channels, frames int, v float32) *Source {
	return NewSource(rate, channels, frames, Constant(v))
}

func (s *Source) SampleRate() int { return s.rate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BufSize() int    { return 4096 }
func (s *Source) Closed() bool    { return s.closed }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Rewind starts the signal over.
func (s *Source) Rewind() {
	s.pos = 0
}

// ReadSamples writes whole frames only. The last frames come with a nil error,
// the read after them reports the end.
func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.pos >= s.frames {
		if s.Err != nil {
			return 0, s.Err
		}
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.pos)
	if s.Chunk > 0 {
		n = min(n, s.Chunk)
	}
	for f := range n {
		for c := range s.channels {
			dst[f*s.channels+c] = s.wave(s.pos+f, c)
		}
	}
	s.pos += n

	return n * s.channels, nil
}
