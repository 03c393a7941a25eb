// SPDX-License-Identifier: EPL-2.0

package media

import (
	"io"
	"time"
)

// MediaSource is the byte source underneath a MediaSourceStream.
type MediaSource interface {
	io.Reader
	io.Seeker
	// IsSeekable reports whether Seek can be used. A false result means the
	// source may only be read forward.
	IsSeekable() bool
	// ByteLen is the total length of the source when known.
	ByteLen() (uint64, bool)
}

type SeekMode int

const (
	// SeekCoarse lands on the closest preceding sync sample.
	SeekCoarse SeekMode = iota
	// SeekAccurate lands at or before the target and reports the required
	// timestamp so the caller can drop pre-roll.
	SeekAccurate
)

func (m SeekMode) String() string {
	if m == SeekAccurate {
		return "accurate"
	}

	return "coarse"
}

// SeekTo is a seek target: either a time on the default track, or a
// timestamp on a given track.
type SeekTo struct {
	Time        time.Duration
	TS          uint64
	TrackID     uint32
	ByTimestamp bool
}

func SeekToTime(d time.Duration) SeekTo {
	return SeekTo{Time: d}
}

func SeekToTimestamp(ts uint64, trackID uint32) SeekTo {
	return SeekTo{TS: ts, TrackID: trackID, ByTimestamp: true}
}

// OnTrack selects the track a time target is resolved against.
func (s SeekTo) OnTrack(trackID uint32) SeekTo {
	s.TrackID = trackID
	return s
}

// SeekedTo is the outcome of a seek.
type SeekedTo struct {
	TrackID    uint32
	RequiredTS uint64
	ActualTS   uint64
}

// Cue marks a point of interest in the stream.
type Cue struct {
	Index   uint32
	StartTS uint64
	Tags    []Tag
}

// FormatReader demultiplexes a container into packets. A reader is owned by
// a single goroutine.
type FormatReader interface {
	// Tracks is stable for the reader's lifetime.
	Tracks() []Track
	// DefaultTrack is the first audio track, else the first track, else nil.
	DefaultTrack() *Track
	Cues() []Cue
	Metadata() *Metadata
	// NextPacket returns ErrEndOfFile after the last packet.
	NextPacket() (*Packet, error)
	Seek(mode SeekMode, to SeekTo) (SeekedTo, error)
	// IntoInner releases the underlying source.
	IntoInner() MediaSource
}

// DefaultTrack picks the first track with an audio codec, falling back to the
// first track.
func DefaultTrack(tracks []Track) *Track {
	for i := range tracks {
		c := tracks[i].CodecParams.Codec
		if c != CodecNull && !c.IsVideo() {
			return &tracks[i]
		}
	}
	if len(tracks) > 0 {
		return &tracks[0]
	}

	return nil
}
