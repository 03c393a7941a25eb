// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math/bits"
	"strings"
)

// Channels is a bit mask of speaker positions. The order of the bits is the
// order of the planes in a Buffer.
type Channels uint32

const (
	FrontLeft Channels = 1 << iota
	FrontRight
	FrontCentre
	LFE1
	RearLeft
	RearRight
	FrontLeftCentre
	FrontRightCentre
	RearCentre
	SideLeft
	SideRight
	TopCentre
	TopFrontLeft
	TopFrontCentre
	TopFrontRight
	TopRearLeft
	TopRearCentre
	TopRearRight
	LFE2
	TopSideLeft
	TopSideRight
)

var channelNames = []string{
	"FL", "FR", "FC", "LFE1", "RL", "RR", "FLC", "FRC", "RC", "SL", "SR",
	"TC", "TFL", "TFC", "TFR", "TRL", "TRC", "TRR", "LFE2", "TSL", "TSR",
}

// Count returns the number of channels in the mask.
func (c Channels) Count() int {
	return bits.OnesCount32(uint32(c))
}

func (c Channels) String() string {
	if c == 0 {
		return "none"
	}

	var parts []string
	for i := 0; i < 32; i++ {
		if c&(1<<i) == 0 {
			continue
		}
		if i < len(channelNames) {
			parts = append(parts, channelNames[i])
		} else {
			parts = append(parts, "?")
		}
	}

	return strings.Join(parts, "|")
}

// ChannelsFromCount returns a mask with the first n positions set. It reports
// false when n is outside 1..32.
func ChannelsFromCount(n int) (Channels, bool) {
	if n < 1 || n > 32 {
		return 0, false
	}
	if n == 32 {
		return Channels(0xffffffff), true
	}

	return Channels(uint32(1)<<uint(n) - 1), true
}

// Layout names a common channel arrangement.
type Layout int

const (
	LayoutMono Layout = iota
	LayoutStereo
	Layout2p1
	Layout5p1
)

// Channels returns the mask of the layout.
func (l Layout) Channels() Channels {
	switch l {
	case LayoutMono:
		return FrontLeft
	case LayoutStereo:
		return FrontLeft | FrontRight
	case Layout2p1:
		return FrontLeft | FrontRight | LFE1
	case Layout5p1:
		return FrontLeft | FrontRight | FrontCentre | RearLeft | RearRight | LFE1
	default:
		return 0
	}
}
