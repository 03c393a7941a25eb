// SPDX-License-Identifier: EPL-2.0

package media

// Packet is one unit of compressed data for a single track. TS and Dur are in
// the track's time base.
type Packet struct {
	TrackID uint32
	TS      uint64
	Dur     uint64
	// TrimStart and TrimEnd are frames the decoder output should drop for
	// gapless playback.
	TrimStart uint32
	TrimEnd   uint32
	Data      []byte
}

func NewPacket(trackID uint32, ts, dur uint64, data []byte) *Packet {
	return &Packet{
		TrackID: trackID,
		TS:      ts,
		Dur:     dur,
		Data:    data,
	}
}

// BlockDur is the duration of the packet before trimming.
func (p *Packet) BlockDur() uint64 {
	return p.Dur
}

// TrimmedDur is the duration left after gapless trimming.
func (p *Packet) TrimmedDur() uint64 {
	trim := uint64(p.TrimStart) + uint64(p.TrimEnd)
	if trim >= p.Dur {
		return 0
	}

	return p.Dur - trim
}
