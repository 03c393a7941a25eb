// SPDX-License-Identifier: EPL-2.0

package audio

import "math"

// SampleFormat is the on-wire representation of a PCM sample.
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatU8
	SampleFormatS8
	SampleFormatS16
	SampleFormatS24
	SampleFormatS32
	SampleFormatF32
	SampleFormatF64
)

// BitDepth is the storage width of one sample in bits.
func (f SampleFormat) BitDepth() int {
	switch f {
	case SampleFormatU8, SampleFormatS8:
		return 8
	case SampleFormatS16:
		return 16
	case SampleFormatS24:
		return 24
	case SampleFormatS32, SampleFormatF32:
		return 32
	case SampleFormatF64:
		return 64
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS8:
		return "s8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS24:
		return "s24"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "f32"
	case SampleFormatF64:
		return "f64"
	default:
		return "unknown"
	}
}

// FloatToS16 converts a sample in [-1, 1] to 16-bit PCM. Values outside the
// range are clipped.
func FloatToS16(x float32) int16 {
	switch {
	case x > 1:
		x = 1
	case x < -1:
		x = -1
	}

	return int16(x * math.MaxInt16)
}
