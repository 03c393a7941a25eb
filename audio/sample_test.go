// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"testing"
)

func TestFloatToS16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, math.MaxInt16},
		{-1, -math.MaxInt16},
		{0.5, 16383},
		{-0.25, -8191},
		{1.5, math.MaxInt16},
		{-100, -math.MaxInt16},
	}
	for _, tt := range tests {
		if got := FloatToS16(tt.in); got != tt.want {
			t.Errorf("FloatToS16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCatmullRom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		y0, y1, y2, y3 float32
		x              float32
		want           float32
	}{
		{"start is y1", 0.3, -0.2, 0.9, 0.1, 0, -0.2},
		{"end is y2", 0.3, -0.2, 0.9, 0.1, 1, 0.9},
		{"linear midpoint", 0, 1, 2, 3, 0.5, 1.5},
		{"linear quarter", 1, 2, 3, 4, 0.25, 2.25},
		{"flat", 0.5, 0.5, 0.5, 0.5, 0.7, 0.5},
	}
	for _, tt := range tests {
		got := catmullRom(tt.y0, tt.y1, tt.y2, tt.y3, tt.x)
		if math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("%s: catmullRom() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func BenchmarkCatmullRom(b *testing.B) {
	var sum float32
	for i := 0; b.Loop(); i++ {
		sum += catmullRom(0.5, 1, 0.8, 0.3, float32(i%100)/100)
	}
	_ = sum
}
