// SPDX-License-Identifier: EPL-2.0

package media

import (
	"math"
	"math/bits"
	"time"
)

// TimeBase is the duration of one timestamp unit, Numer/Denom seconds.
type TimeBase struct {
	Numer uint32
	Denom uint32
}

// NewTimeBase panics when either term is zero.
func NewTimeBase(numer, denom uint32) TimeBase {
	if numer == 0 || denom == 0 {
		panic("media: time base terms must be non-zero")
	}

	return TimeBase{Numer: numer, Denom: denom}
}

// TimeBaseFromRate returns the time base of a stream sampled at rate Hz.
func TimeBaseFromRate(rate uint32) TimeBase {
	return NewTimeBase(1, rate)
}

func (tb TimeBase) IsZero() bool {
	return tb.Numer == 0 || tb.Denom == 0
}

// CalcTime converts ts into a duration, rounding half away from zero.
func (tb TimeBase) CalcTime(ts uint64) time.Duration {
	if tb.IsZero() {
		return 0
	}

	hi, lo := bits.Mul64(ts, uint64(tb.Numer)*uint64(time.Second))
	if hi >= uint64(tb.Denom) {
		return time.Duration(math.MaxInt64)
	}
	q, r := bits.Div64(hi, lo, uint64(tb.Denom))
	if 2*r >= uint64(tb.Denom) {
		q++
	}
	if q > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(q)
}

// CalcTimestamp converts d into a timestamp, rounding half away from zero.
// Negative durations map to zero.
func (tb TimeBase) CalcTimestamp(d time.Duration) uint64 {
	if tb.IsZero() || d <= 0 {
		return 0
	}

	div := uint64(tb.Numer) * uint64(time.Second)
	hi, lo := bits.Mul64(uint64(d), uint64(tb.Denom))
	if hi >= div {
		return math.MaxUint64
	}
	q, r := bits.Div64(hi, lo, div)
	if r >= div-r {
		q++
	}

	return q
}
