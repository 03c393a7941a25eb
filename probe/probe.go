// SPDX-License-Identifier: EPL-2.0

package probe

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

const (
	DefaultMaxScoreDepth = 64 << 10
	DefaultMaxProbeDepth = 1 << 20

	markerScore    = 100
	extensionScore = 25
	mimeScore      = 25

	id3HeaderLen = 10
)

type Options struct {
	// MaxScoreDepth is the number of leading bytes scanned for markers.
	MaxScoreDepth int
	// MaxProbeDepth bounds the bytes skipped ahead of the container, such as
	// leading ID3v2 tags.
	MaxProbeDepth int
	Logger        *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		MaxScoreDepth: DefaultMaxScoreDepth,
		MaxProbeDepth: DefaultMaxProbeDepth,
	}
}

// Probe selects a format reader for a stream.
type Probe struct {
	reg  *Registry
	opts Options
	log  *slog.Logger
}

func New(reg *Registry, opts Options) *Probe {
	if opts.MaxScoreDepth <= 0 {
		opts.MaxScoreDepth = DefaultMaxScoreDepth
	}
	if opts.MaxProbeDepth <= 0 {
		opts.MaxProbeDepth = DefaultMaxProbeDepth
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Probe{reg: reg, opts: opts, log: log}
}

// Result is a successfully instantiated reader.
type Result struct {
	Format     media.FormatReader
	Descriptor Descriptor
	// Metadata found ahead of the container.
	Metadata *media.Metadata
}

type candidate struct {
	desc  Descriptor
	score int
}

// Format scores every registered descriptor against the leading bytes of
// mss and the hint, then instantiates candidates best first until one
// succeeds. Candidates failing with an unsupported or decode error are
// skipped. On any failure the stream is returned to where it was.
func (p *Probe) Format(hint Hint, mss *stream.MediaSourceStream, fmtOpts media.FormatOptions, metaOpts media.MetadataOptions) (*Result, error) {
	origin := mss.Pos()
	mss.EnsureSeekbackBuffer(p.opts.MaxScoreDepth)

	meta := &media.Metadata{}
	if err := p.skipID3(mss, origin, meta, metaOpts); err != nil {
		return nil, err
	}

	start := mss.Mark()
	window, err := p.scan(mss, start)
	if err != nil {
		return nil, err
	}

	candidates := p.rank(hint, window)
	if fmtOpts.Logger == nil {
		fmtOpts.Logger = p.log
	}
	if fmtOpts.Metadata == (media.MetadataOptions{}) {
		fmtOpts.Metadata = metaOpts
	}

	for _, c := range candidates {
		if err := restore(mss, start); err != nil {
			return nil, err
		}

		reader, err := c.desc.Inst(mss, fmtOpts)
		if err == nil {
			p.log.Debug("probe: format selected", "format", c.desc.ShortName, "score", c.score)
			return &Result{Format: reader, Descriptor: c.desc, Metadata: meta}, nil
		}
		if !errors.Is(err, media.ErrUnsupported) && !errors.Is(err, media.ErrDecode) {
			if rerr := rewind(mss, start, origin); rerr != nil {
				return nil, errors.Join(err, rerr)
			}
			return nil, err
		}

		p.log.Debug("probe: candidate rejected", "format", c.desc.ShortName, "score", c.score, "error", err)
	}

	if err := rewind(mss, start, origin); err != nil {
		return nil, err
	}

	return nil, media.Unsupported("core (probe): no suitable format reader found")
}

// scan reads up to MaxScoreDepth bytes and rewinds.
func (p *Probe) scan(mss *stream.MediaSourceStream, start stream.Mark) ([]byte, error) {
	window := make([]byte, p.opts.MaxScoreDepth)
	n, err := io.ReadFull(mss, window)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, media.IOError(err)
	}
	if err := mss.RewindTo(start); err != nil {
		return nil, err
	}

	return window[:n], nil
}

func (p *Probe) rank(hint Hint, window []byte) []candidate {
	var out []candidate
	for _, d := range p.reg.Descriptors() {
		score := 0
		for _, m := range d.Markers {
			if bytes.Contains(window, m) {
				score += markerScore
			}
		}
		if score > 0 && d.Score != nil {
			score += int(d.Score(window))
		}
		if hint.Extension != "" && slices.Contains(d.Extensions, hint.Extension) {
			score += extensionScore
		}
		if hint.MimeType != "" && slices.Contains(d.MimeTypes, hint.MimeType) {
			score += mimeScore
		}
		if score > 0 {
			out = append(out, candidate{desc: d, score: score})
		}
	}

	slices.SortStableFunc(out, func(a, b candidate) int {
		return b.score - a.score
	})

	return out
}

// skipID3 consumes leading ID3v2 tags.
func (p *Probe) skipID3(mss *stream.MediaSourceStream, origin uint64, meta *media.Metadata, opts media.MetadataOptions) error {
	for {
		mark := mss.Mark()
		var hdr [id3HeaderLen]byte
		if err := mss.ReadFull(hdr[:]); err != nil {
			if media.IsEndOfStream(err) || media.IsKind(err, media.KindIO) {
				return mss.RewindTo(mark)
			}
			return err
		}
		if !bytes.Equal(hdr[:3], []byte("ID3")) || hdr[3] == 0xff || hdr[4] == 0xff {
			return mss.RewindTo(mark)
		}

		size := uint64(0)
		for _, b := range hdr[6:10] {
			if b&0x80 != 0 {
				return mss.RewindTo(mark)
			}
			size = size<<7 | uint64(b)
		}
		if hdr[5]&0x10 != 0 {
			size += id3HeaderLen
		}

		if mss.Pos()+size-origin > uint64(p.opts.MaxProbeDepth) {
			return media.LimitError("probe depth", mss.Pos()+size-origin)
		}
		if err := mss.IgnoreBytes(size); err != nil {
			return err
		}

		b := media.NewRevisionBuilder(opts)
		_ = b.AddTag(media.Tag{Key: "ID3v2", Value: id3Version(hdr[3])})
		meta.Push(b.Build())

		p.log.Debug("probe: skipped id3v2 tag", "bytes", size+id3HeaderLen)
	}
}

func id3Version(major byte) string {
	return "2." + string(rune('0'+major%10))
}

// restore returns the stream to m, seeking the source when m fell out of the
// buffer.
// rewind returns mss to origin, which may precede the mark when leading
// metadata was skipped.
func rewind(mss *stream.MediaSourceStream, start stream.Mark, origin uint64) error {
	if err := restore(mss, start); err != nil {
		return err
	}
	if mss.Pos() == origin {
		return nil
	}
	_, err := mss.Seek(int64(origin), io.SeekStart)

	return err
}

func restore(mss *stream.MediaSourceStream, m stream.Mark) error {
	err := mss.RewindTo(m)
	if err == nil {
		return nil
	}
	if !mss.IsSeekable() {
		return err
	}
	if _, serr := mss.Seek(int64(m.Pos()), io.SeekStart); serr != nil {
		return serr
	}

	return nil
}
