// SPDX-License-Identifier: EPL-2.0

package mediakit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/media"
)

const (
	defaultBufSize = 4096

	// maxDecodeErrors is the number of consecutive malformed packets
	// tolerated before decoding gives up.
	maxDecodeErrors = 32
)

// PacketSource turns the packets of one track into an audio.Source. Packets
// of other tracks are skipped. Decode errors on single packets are logged and
// the packet dropped; everything else ends the stream.
//
// The FormatReader's underlying source is not closed by Close.
type PacketSource struct {
	reader  media.FormatReader
	dec     media.Decoder
	trackID uint32
	tb      media.TimeBase

	spec     audio.SignalSpec
	channels int

	pending []float32
	off     int

	// skip is pre-roll left over from an accurate seek, in frames.
	skip uint64

	errors int
	err    error
	log    *slog.Logger

	final     media.FinalizeResult
	finalized bool
}

// NewPacketSource reads trackID from reader through dec.
func NewPacketSource(reader media.FormatReader, dec media.Decoder, trackID uint32, log *slog.Logger) (*PacketSource, error) {
	track := media.FindTrack(reader.Tracks(), trackID)
	if track == nil {
		return nil, media.SeekError(media.SeekInvalidTrack)
	}

	params := dec.CodecParams()
	if log == nil {
		log = slog.Default()
	}

	tb := track.CodecParams.TimeBase
	if tb.IsZero() {
		tb = media.TimeBaseFromRate(params.SampleRate)
	}

	s := &PacketSource{
		reader:  reader,
		dec:     dec,
		trackID: trackID,
		tb:      tb,
		pending: make([]float32, 0, defaultBufSize),
		log:     log.With("track", trackID, "codec", params.Codec.String()),
	}

	// Some decoders only learn the signal from the first packet.
	if params.SampleRate > 0 && params.Channels.Count() > 0 {
		s.setSpec(audio.NewSignalSpec(params.SampleRate, params.Channels))
	} else if err := s.fill(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrUnknownSignal
		}
		return nil, err
	}

	return s, nil
}

func (s *PacketSource) setSpec(spec audio.SignalSpec) {
	s.spec = spec
	s.channels = spec.Channels.Count()
}

// Decode opens the default track of reader with a decoder from opts.
func Decode(reader media.FormatReader, opts Options) (*PacketSource, error) {
	track := reader.DefaultTrack()
	if track == nil || track.CodecParams.Codec.IsVideo() {
		return nil, ErrNoTrack
	}

	dec, err := NewDecoder(track, opts)
	if err != nil {
		return nil, err
	}

	return NewPacketSource(reader, dec, track.ID, opts.log())
}

func (s *PacketSource) SampleRate() int            { return int(s.spec.Rate) }
func (s *PacketSource) Channels() int              { return s.channels }
func (s *PacketSource) Spec() audio.SignalSpec     { return s.spec }
func (s *PacketSource) Decoder() media.Decoder     { return s.dec }
func (s *PacketSource) Reader() media.FormatReader { return s.reader }
func (s *PacketSource) TrackID() uint32            { return s.trackID }

func (s *PacketSource) BufSize() int {
	return max(cap(s.pending), defaultBufSize)
}

// ReadSamples fills dst with interleaved samples. It returns io.EOF once the
// track is exhausted.
func (s *PacketSource) ReadSamples(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if s.off < len(s.pending) {
			c := copy(dst[n:], s.pending[s.off:])
			s.off += c
			n += c
			continue
		}

		if s.err != nil {
			break
		}
		s.err = s.fill()
	}

	if n > 0 {
		return n, nil
	}

	return 0, s.err
}

// fill decodes packets until one yields frames.
func (s *PacketSource) fill() error {
	for {
		pkt, err := s.reader.NextPacket()
		if err != nil {
			if media.IsEndOfStream(err) {
				s.finalize()
				return io.EOF
			}

			return err
		}
		if pkt.TrackID != s.trackID {
			continue
		}

		buf, err := s.decode(pkt)
		if err != nil {
			if media.IsKind(err, media.KindDecode) && s.errors < maxDecodeErrors {
				s.errors++
				s.log.Warn("mediakit: dropping malformed packet", "ts", pkt.TS, "error", err)
				continue
			}

			return err
		}
		s.errors = 0

		switch {
		case s.channels == 0:
			s.setSpec(buf.Spec())
		case buf.Spec() != s.spec:
			return ErrSignalChanged
		}
		if err := s.trim(buf, pkt); err != nil {
			return err
		}
		if buf.Frames() == 0 {
			continue
		}

		need := buf.Frames() * s.channels
		if cap(s.pending) < need {
			s.pending = make([]float32, need)
		}
		s.pending = s.pending[:need]
		if _, err := buf.CopyInterleaved(s.pending); err != nil {
			return err
		}
		s.off = 0

		return nil
	}
}

func (s *PacketSource) decode(pkt *media.Packet) (*audio.Buffer, error) {
	buf, err := s.dec.Decode(pkt)
	if errors.Is(err, media.ErrResetRequired) {
		s.log.Debug("mediakit: decoder reset", "ts", pkt.TS)
		s.dec.Reset()
		buf, err = s.dec.Decode(pkt)
	}

	return buf, err
}

// trim applies gapless trimming and seek pre-roll to buf.
func (s *PacketSource) trim(buf *audio.Buffer, pkt *media.Packet) error {
	frames := buf.Frames()
	start := min(int(pkt.TrimStart), frames)
	end := min(int(pkt.TrimEnd), frames-start)

	if s.skip > 0 {
		extra := min(s.skip, uint64(frames-start-end))
		start += int(extra)
		s.skip -= extra
	}

	if start == 0 && end == 0 {
		return nil
	}

	return buf.Trim(start, end)
}

func (s *PacketSource) finalize() {
	res := s.dec.Finalize()
	s.final, s.finalized = res, true
	if !res.Verified {
		return
	}
	if res.VerifyOK {
		s.log.Debug("mediakit: decoded audio verified")
	} else {
		s.log.Warn("mediakit: decoded audio failed verification")
	}
}

// Finalized returns the decoder's final result once the track has been read
// to the end.
func (s *PacketSource) Finalized() (media.FinalizeResult, bool) {
	return s.final, s.finalized
}

// Seek moves to d on the source track and drops the pre-roll an accurate seek
// leaves in front of the target.
func (s *PacketSource) Seek(d time.Duration) error {
	to, err := s.reader.Seek(media.SeekAccurate, media.SeekToTime(d).OnTrack(s.trackID))
	if err != nil {
		return fmt.Errorf("mediakit: seek to %s: %w", d, err)
	}

	s.dec.Reset()
	s.pending = s.pending[:0]
	s.off = 0
	s.err = nil
	s.finalized = false
	s.skip = 0
	if to.RequiredTS > to.ActualTS {
		gap := s.tb.CalcTime(to.RequiredTS - to.ActualTS)
		s.skip = media.TimeBaseFromRate(s.spec.Rate).CalcTimestamp(gap)
	}

	return nil
}

func (s *PacketSource) Close() error {
	s.dec.Reset()
	s.pending = nil
	s.off = 0
	s.err = io.EOF

	return nil
}

var _ audio.Source = (*PacketSource)(nil)
