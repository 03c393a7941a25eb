// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"math"
	"math/bits"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

type sidxReference struct {
	// indirect references point at another sidx.
	indirect      bool
	size          uint32
	duration      uint32
	startsWithSAP bool
	sapType       uint8
	sapDeltaTime  uint32
}

type sidx struct {
	pos         uint64
	referenceID uint32
	timescale   uint32
	earliestPTS uint64
	firstOffset uint64
	// anchor is the end of the sidx atom, the origin of firstOffset.
	anchor     uint64
	references []sidxReference
}

func readSidx(r stream.ByteReader, h AtomHeader) (*sidx, error) {
	version, _, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}

	var minLen uint64
	switch version {
	case 0:
		minLen = 20
	case 1:
		minLen = 28
	default:
		return nil, media.Unsupported("sidx version")
	}
	n, ok := h.DataLen()
	if !ok || n < minLen {
		return nil, media.DecodeError("sidx atom size is invalid")
	}

	f := fields{r: r}
	s := &sidx{
		pos:         h.Pos,
		referenceID: f.u32(),
		timescale:   f.u32(),
		anchor:      h.Pos + h.AtomLen,
	}
	if version == 0 {
		s.earliestPTS = uint64(f.u32())
		s.firstOffset = uint64(f.u32())
	} else {
		s.earliestPTS = f.u64()
		s.firstOffset = f.u64()
	}
	f.u16()
	count := f.u16()
	if f.err != nil {
		return nil, f.err
	}
	if uint64(count) != (n-minLen)/12 {
		return nil, media.DecodeError("sidx reference count is invalid")
	}

	s.references = make([]sidxReference, count)
	for i := range s.references {
		typeSize := f.u32()
		dur := f.u32()
		sap := f.u32()
		s.references[i] = sidxReference{
			indirect:      typeSize&0x80000000 != 0,
			size:          typeSize & 0x7fffffff,
			duration:      dur,
			startsWithSAP: sap&0x80000000 != 0,
			sapType:       uint8(sap >> 28 & 0x7),
			sapDeltaTime:  sap & 0x0fffffff,
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	return s, nil
}

// cues lists one cue per direct reference with its start rescaled to the
// given timescale.
func (s *sidx) cues(timescale uint32) []media.Cue {
	cues := make([]media.Cue, 0, len(s.references))
	ts := s.earliestPTS
	for i, ref := range s.references {
		if !ref.indirect {
			cues = append(cues, media.Cue{
				Index:   uint32(i),
				StartTS: rescale(ts, s.timescale, timescale),
			})
		}
		ts += uint64(ref.duration)
	}

	return cues
}

// find returns the start time and stream position of the reference whose
// span holds ts, in the index timescale. Indexes with indirect references
// are not followed.
func (s *sidx) find(ts uint64) (uint64, uint64, bool) {
	start, pos := s.earliestPTS, s.anchor+s.firstOffset
	if ts < start {
		return 0, 0, false
	}
	for _, ref := range s.references {
		if ref.indirect {
			return 0, 0, false
		}
		end := start + uint64(ref.duration)
		if ts < end {
			return start, pos, true
		}
		start = end
		pos += uint64(ref.size)
	}

	return 0, 0, false
}

// rescale converts ts from one timescale to another, rounding down.
func rescale(ts uint64, from, to uint32) uint64 {
	if from == to || from == 0 || to == 0 {
		return ts
	}

	hi, lo := bits.Mul64(ts, uint64(to))
	if hi >= uint64(from) {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, uint64(from))

	return q
}
