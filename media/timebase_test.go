// SPDX-License-Identifier: EPL-2.0

package media

import (
	"testing"
	"time"
)

func TestTimeBase_CalcTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tb   TimeBase
		ts   uint64
		want time.Duration
	}{
		{TimeBaseFromRate(44100), 44100, time.Second},
		{TimeBaseFromRate(1000), 1500, 1500 * time.Millisecond},
		{TimeBaseFromRate(3), 1, 333333333 * time.Nanosecond},
		{TimeBaseFromRate(3), 2, 666666667 * time.Nanosecond},
		{TimeBase{}, 10, 0},
	}

	for _, tt := range tests {
		if got := tt.tb.CalcTime(tt.ts); got != tt.want {
			t.Errorf("%+v.CalcTime(%d) = %v, want %v", tt.tb, tt.ts, got, tt.want)
		}
	}
}

func TestTimeBase_CalcTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tb   TimeBase
		d    time.Duration
		want uint64
	}{
		{TimeBaseFromRate(48000), time.Second, 48000},
		{TimeBaseFromRate(2), 250 * time.Millisecond, 1},
		{TimeBaseFromRate(2), 249 * time.Millisecond, 0},
		{TimeBaseFromRate(1000), -time.Second, 0},
		{NewTimeBase(1001, 30000), time.Second, 30},
	}

	for _, tt := range tests {
		if got := tt.tb.CalcTimestamp(tt.d); got != tt.want {
			t.Errorf("%+v.CalcTimestamp(%v) = %d, want %d", tt.tb, tt.d, got, tt.want)
		}
	}
}

func TestTimeBase_RoundTrip(t *testing.T) {
	t.Parallel()

	tb := TimeBaseFromRate(90000)
	for _, ts := range []uint64{0, 1, 3003, 90000, 1 << 40} {
		if got := tb.CalcTimestamp(tb.CalcTime(ts)); got != ts {
			t.Errorf("round trip of %d = %d", ts, got)
		}
	}
}
