// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"sort"

	"github.com/ik5/mediakit/media"
)

type sampleInfo struct {
	pos  uint64
	size uint32
	ts   uint64
	dur  uint32
	sync bool
}

// trackSamples indexes the samples one segment holds for one track.
type trackSamples interface {
	count() uint64
	at(n uint64) (sampleInfo, error)
	firstTS() uint64
	// endTS is the timestamp just past the last sample.
	endTS() uint64
	// find returns the sample whose span contains ts.
	find(ts uint64) (uint64, bool)
	// syncBefore is the closest sync sample at or before n.
	syncBefore(n uint64) uint64
}

// segment is the moov sample tables, or one movie fragment. tracks is
// indexed like the reader's tracks and holds nil for tracks without samples.
type segment struct {
	seq    uint32
	pos    uint64
	tracks []trackSamples
}

func (s *segment) track(i int) trackSamples {
	if i >= len(s.tracks) || s.tracks[i] == nil {
		return emptySamples{}
	}

	return s.tracks[i]
}

type emptySamples struct{}

func (emptySamples) count() uint64 { return 0 }

func (emptySamples) at(uint64) (sampleInfo, error) {
	return sampleInfo{}, media.DecodeError("sample number out of range")
}

func (emptySamples) firstTS() uint64 { return 0 }

func (emptySamples) endTS() uint64 { return 0 }

func (emptySamples) find(uint64) (uint64, bool) { return 0, false }

func (emptySamples) syncBefore(n uint64) uint64 { return n }

// fragTrack is the flat sample list of one track fragment.
type fragTrack struct {
	samples []sampleInfo
	end     uint64
}

func (f *fragTrack) count() uint64 { return uint64(len(f.samples)) }

func (f *fragTrack) at(n uint64) (sampleInfo, error) {
	if n >= uint64(len(f.samples)) {
		return sampleInfo{}, media.DecodeError("sample number out of range")
	}

	return f.samples[n], nil
}

func (f *fragTrack) firstTS() uint64 {
	if len(f.samples) == 0 {
		return f.end
	}

	return f.samples[0].ts
}

func (f *fragTrack) endTS() uint64 { return f.end }

func (f *fragTrack) find(ts uint64) (uint64, bool) {
	if len(f.samples) == 0 || ts < f.samples[0].ts || ts >= f.end {
		return 0, false
	}
	i := sort.Search(len(f.samples), func(i int) bool { return f.samples[i].ts > ts }) - 1

	return uint64(i), true
}

func (f *fragTrack) syncBefore(n uint64) uint64 {
	if len(f.samples) == 0 {
		return 0
	}
	for i := int(min(n, uint64(len(f.samples)-1))); i >= 0; i-- {
		if f.samples[i].sync {
			return uint64(i)
		}
	}

	return 0
}
