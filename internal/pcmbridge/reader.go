// SPDX-License-Identifier: EPL-2.0

package pcmbridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// MaxPacketFrames bounds the frames carried by one packet.
const MaxPacketFrames = 4096

var errBeforeSection = errors.New("seek before start of section")

// Source yields interleaved PCM encoded as the track's codec.
type Source interface {
	// ReadFrames returns up to n frames. It returns io.EOF once no frames
	// are left.
	ReadFrames(n int) ([]byte, error)
}

// FrameSeeker is implemented by sources that can jump to a frame without
// decoding everything before it.
type FrameSeeker interface {
	SeekFrame(frame uint64) error
}

// Stream is what an Opener found.
type Stream struct {
	Source Source
	// Params describe the single PCM track. Codec must be a PCM codec.
	Params *media.CodecParameters
	Tags   []media.Tag
}

// Opener decodes a container from its first byte. r implements io.Seeker
// only when seeking is possible.
type Opener func(r io.Reader) (*Stream, error)

// Config describes a bridged format.
type Config struct {
	// Name prefixes error messages and logs.
	Name string
	// Sniff checks the leading bytes before anything is consumed, so a
	// rejected stream can still be handed to another reader.
	Sniff    func(head []byte) bool
	SniffLen int
	// NeedsSeeker loads a non-seekable stream into memory before opening.
	NeedsSeeker bool
	Open        Opener
}

// Reader exposes a decoding library as a single track media.FormatReader.
type Reader struct {
	cfg    Config
	opts   media.FormatOptions
	mss    *stream.MediaSourceStream
	rs     io.ReadSeeker
	src    Source
	tracks []media.Track
	meta   media.Metadata
	frame  int
	ts     uint64
}

func NewReader(mss *stream.MediaSourceStream, opts media.FormatOptions, cfg Config) (*Reader, error) {
	if cfg.Sniff != nil {
		if err := sniff(mss, cfg); err != nil {
			return nil, err
		}
	}

	r := &Reader{cfg: cfg, opts: opts, mss: mss}

	var in io.Reader
	switch {
	case mss.IsSeekable():
		r.rs = NewSection(mss)
		in = r.rs
	case cfg.NeedsSeeker:
		data, err := io.ReadAll(mss)
		if err != nil {
			return nil, media.IOError(err)
		}
		opts.Log().Debug(cfg.Name+": buffered non-seekable stream", "bytes", len(data))
		r.rs = bytes.NewReader(data)
		in = r.rs
	default:
		in = forwardOnly{mss}
	}

	st, err := r.open(in)
	if err != nil {
		return nil, err
	}

	p := st.Params
	if !p.Codec.IsPCM() {
		return nil, media.Unsupported(cfg.Name + ": source is not pcm")
	}
	if p.Channels.Count() == 0 || p.SampleRate == 0 {
		return nil, media.DecodeError(cfg.Name + ": missing channels or sample rate")
	}
	if p.TimeBase.IsZero() {
		p.TimeBase = media.TimeBaseFromRate(p.SampleRate)
	}
	p.MaxFramesPerPacket = MaxPacketFrames
	p.FramesPerBlock = 1

	r.src = st.Source
	r.frame = p.Codec.SampleSize() * p.Channels.Count()
	r.tracks = []media.Track{{ID: 0, CodecParams: *p}}

	if len(st.Tags) > 0 {
		b := media.NewRevisionBuilder(opts.Metadata)
		for _, tag := range st.Tags {
			if err := b.AddTag(tag); err != nil {
				opts.Log().Warn(cfg.Name+": dropping tags", "error", err)
				break
			}
		}
		if !b.Empty() {
			r.meta.Push(b.Build())
		}
	}

	return r, nil
}

func sniff(mss *stream.MediaSourceStream, cfg Config) error {
	mark := mss.Mark()
	head := make([]byte, cfg.SniffLen)
	n, err := io.ReadFull(mss, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return media.IOError(err)
	}
	if err := mss.RewindTo(mark); err != nil {
		return err
	}
	if !cfg.Sniff(head[:n]) {
		return media.Unsupported(cfg.Name + ": missing file signature")
	}

	return nil
}

func (r *Reader) open(in io.Reader) (*Stream, error) {
	st, err := r.cfg.Open(in)
	if err != nil {
		var me *media.Error
		if errors.As(err, &me) {
			return nil, err
		}
		return nil, &media.Error{Kind: media.KindDecode, Msg: r.cfg.Name + ": invalid stream", Err: err}
	}

	return st, nil
}

func (r *Reader) Tracks() []media.Track { return r.tracks }

func (r *Reader) DefaultTrack() *media.Track { return &r.tracks[0] }

func (r *Reader) Cues() []media.Cue { return nil }

func (r *Reader) Metadata() *media.Metadata { return &r.meta }

func (r *Reader) NextPacket() (*media.Packet, error) {
	data, err := r.src.ReadFrames(MaxPacketFrames)
	if len(data) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, media.EndOfFile()
		}
		return nil, r.wrap(err)
	}
	if len(data)%r.frame != 0 {
		return nil, media.DecodeError(r.cfg.Name + ": partial pcm frame")
	}

	frames := uint64(len(data) / r.frame)
	pkt := media.NewPacket(0, r.ts, frames, bytes.Clone(data))
	r.ts += frames

	return pkt, nil
}

func (r *Reader) wrap(err error) error {
	var me *media.Error
	if errors.As(err, &me) {
		return err
	}

	return &media.Error{Kind: media.KindDecode, Msg: r.cfg.Name + ": read failed", Err: err}
}

// Seek is sample exact: RequiredTS and ActualTS are always the target.
func (r *Reader) Seek(_ media.SeekMode, to media.SeekTo) (media.SeekedTo, error) {
	track := &r.tracks[0]

	if to.TrackID != track.ID {
		return media.SeekedTo{}, media.SeekError(media.SeekInvalidTrack)
	}

	ts := to.TS
	if !to.ByTimestamp {
		if to.Time < 0 {
			return media.SeekedTo{}, media.SeekError(media.SeekOutOfRange)
		}
		ts = track.CodecParams.TimeBase.CalcTimestamp(to.Time)
	}

	if n := track.NFrames(); n > 0 && ts >= n {
		return media.SeekedTo{}, media.SeekError(media.SeekOutOfRange)
	}

	if err := r.seek(ts); err != nil {
		return media.SeekedTo{}, err
	}
	r.opts.Log().Debug(r.cfg.Name+": seeked", "ts", ts)

	return media.SeekedTo{TrackID: track.ID, RequiredTS: ts, ActualTS: ts}, nil
}

func (r *Reader) seek(ts uint64) error {
	switch {
	case r.rs == nil:
		if ts < r.ts {
			return media.SeekError(media.SeekForwardOnly)
		}
	case isFrameSeeker(r.src):
		if err := r.src.(FrameSeeker).SeekFrame(ts); err != nil {
			return r.wrap(err)
		}
		r.ts = ts
		return nil
	case ts < r.ts:
		if err := r.reopen(); err != nil {
			return err
		}
	}

	return r.discard(ts - r.ts)
}

func isFrameSeeker(src Source) bool {
	_, ok := src.(FrameSeeker)
	return ok
}

func (r *Reader) reopen() error {
	if _, err := r.rs.Seek(0, io.SeekStart); err != nil {
		return media.IOError(err)
	}

	st, err := r.open(r.rs)
	if err != nil {
		return err
	}
	r.src = st.Source
	r.ts = 0

	return nil
}

// discard decodes and drops n frames.
func (r *Reader) discard(n uint64) error {
	for n > 0 {
		data, err := r.src.ReadFrames(int(min(n, MaxPacketFrames)))
		got := uint64(len(data) / r.frame)
		r.ts += got
		n -= min(got, n)
		if n == 0 {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return media.SeekError(media.SeekOutOfRange)
			}
			return r.wrap(err)
		}
		if got == 0 {
			return media.SeekError(media.SeekOutOfRange)
		}
	}

	return nil
}

func (r *Reader) IntoInner() media.MediaSource { return r.mss.IntoInner() }

func (r *Reader) String() string {
	return fmt.Sprintf("%s reader (%s)", r.cfg.Name, r.tracks[0].CodecParams.Codec)
}

var _ media.FormatReader = (*Reader)(nil)
