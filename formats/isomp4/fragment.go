// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// Track fragment header flags.
const (
	tfhdBaseDataOffset      = 0x1
	tfhdSampleDescIndex     = 0x2
	tfhdDefaultDuration     = 0x8
	tfhdDefaultSize         = 0x10
	tfhdDefaultFlags        = 0x20
	tfhdDurationIsEmpty     = 0x10000
	sampleIsNonSyncSample   = 0x10000
	trunDataOffset          = 0x1
	trunFirstSampleFlags    = 0x4
	trunSampleDuration      = 0x100
	trunSampleSize          = 0x200
	trunSampleFlags         = 0x400
	trunSampleCompositionTO = 0x800
)

type tfhd struct {
	flags           uint32
	trackID         uint32
	baseDataOffset  uint64
	descIndex       uint32
	defaultDuration uint32
	defaultSize     uint32
	defaultFlags    uint32
}

func (t *tfhd) has(flag uint32) bool { return t.flags&flag != 0 }

func readTfhd(r stream.ByteReader, h AtomHeader) (*tfhd, error) {
	_, flags, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}

	f := fields{r: r}
	t := &tfhd{flags: flags, trackID: f.u32()}
	if t.has(tfhdBaseDataOffset) {
		t.baseDataOffset = f.u64()
	}
	if t.has(tfhdSampleDescIndex) {
		t.descIndex = f.u32()
	}
	if t.has(tfhdDefaultDuration) {
		t.defaultDuration = f.u32()
	}
	if t.has(tfhdDefaultSize) {
		t.defaultSize = f.u32()
	}
	if t.has(tfhdDefaultFlags) {
		t.defaultFlags = f.u32()
	}
	if f.err != nil {
		return nil, f.err
	}

	return t, nil
}

func readTfdt(r stream.ByteReader, h AtomHeader) (uint64, error) {
	version, _, err := h.ReadFullHeader(r)
	if err != nil {
		return 0, err
	}

	f := fields{r: r}
	switch version {
	case 0:
		return uint64(f.u32()), f.err
	case 1:
		return f.u64(), f.err
	default:
		return 0, media.Unsupported("tfdt version")
	}
}

type trunSample struct {
	duration uint32
	size     uint32
	flags    uint32
}

type trun struct {
	flags      uint32
	dataOffset int32
	firstFlags uint32
	samples    []trunSample
}

func (t *trun) has(flag uint32) bool { return t.flags&flag != 0 }

func (p *parser) readTrun(r stream.ByteReader, h AtomHeader) (*trun, error) {
	_, flags, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}

	t := &trun{flags: flags}
	if t.has(trunFirstSampleFlags) && t.has(trunSampleFlags) {
		return nil, media.DecodeError("trun has first sample flags and per sample flags")
	}

	f := fields{r: r}
	count := f.u32()
	if t.has(trunDataOffset) {
		t.dataOffset = int32(f.u32())
	}
	if t.has(trunFirstSampleFlags) {
		t.firstFlags = f.u32()
	}
	if f.err != nil {
		return nil, f.err
	}
	if err := p.checkSamples(uint64(count)); err != nil {
		return nil, err
	}

	var entryLen uint64
	for _, flag := range []uint32{trunSampleDuration, trunSampleSize, trunSampleFlags, trunSampleCompositionTO} {
		if t.has(flag) {
			entryLen += 4
		}
	}
	if err := checkEntries(h, r.Pos(), uint64(count), entryLen, "trun"); err != nil {
		return nil, err
	}

	t.samples = make([]trunSample, count)
	for i := range t.samples {
		s := &t.samples[i]
		if t.has(trunSampleDuration) {
			s.duration = f.u32()
		}
		if t.has(trunSampleSize) {
			s.size = f.u32()
		}
		if t.has(trunSampleFlags) {
			s.flags = f.u32()
		}
		if t.has(trunSampleCompositionTO) {
			f.u32()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	return t, nil
}

type traf struct {
	tfhd    *tfhd
	tfdt    uint64
	hasTfdt bool
	truns   []*trun
}

func (p *parser) readTraf(r stream.ByteReader, h AtomHeader) (*traf, error) {
	t := &traf{}
	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}

		switch child.Type {
		case TypeTfhd:
			t.tfhd, err = ReadAtom(it, readTfhd)
		case TypeTfdt:
			t.tfdt, err = ReadAtom(it, readTfdt)
			t.hasTfdt = true
		case TypeTrun:
			var tr *trun
			if tr, err = ReadAtom(it, p.readTrun); err == nil {
				t.truns = append(t.truns, tr)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if t.tfhd == nil {
		return nil, media.DecodeError("missing tfhd atom")
	}

	return t, nil
}

type moof struct {
	pos   uint64
	seq   uint32
	trafs []*traf
}

func readMfhd(r stream.ByteReader, h AtomHeader) (uint32, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return 0, err
	}

	return r.ReadBeU32()
}

func (p *parser) readMoof(r stream.ByteReader, h AtomHeader) (*moof, error) {
	m := &moof{pos: h.Pos}
	var haveMfhd bool

	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}

		switch child.Type {
		case TypeMfhd:
			m.seq, err = ReadAtom(it, readMfhd)
			haveMfhd = true
		case TypeTraf:
			var t *traf
			if t, err = ReadAtom(it, p.readTraf); err == nil {
				m.trafs = append(m.trafs, t)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if !haveMfhd {
		return nil, media.DecodeError("missing mfhd atom")
	}

	return m, nil
}

// fragmentBuilder turns movie fragments into segments. It carries the decode
// time of each track from one fragment to the next.
type fragmentBuilder struct {
	p       *parser
	mvex    *mvex
	ids     []uint32
	nextDTS []uint64
}

func newFragmentBuilder(p *parser, mv *mvex, ids []uint32, start []uint64) *fragmentBuilder {
	next := make([]uint64, len(ids))
	copy(next, start)

	return &fragmentBuilder{p: p, mvex: mv, ids: ids, nextDTS: next}
}

func (b *fragmentBuilder) trackIndex(id uint32) int {
	for i, v := range b.ids {
		if v == id {
			return i
		}
	}

	return -1
}

func (b *fragmentBuilder) build(m *moof) (*segment, error) {
	seg := &segment{seq: m.seq, pos: m.pos, tracks: make([]trackSamples, len(b.ids))}

	for _, tf := range m.trafs {
		idx := b.trackIndex(tf.tfhd.trackID)
		if idx < 0 {
			b.p.log.Warn("isomp4: track fragment for unknown track", "track_id", tf.tfhd.trackID)
			continue
		}

		if tf.tfhd.has(tfhdDurationIsEmpty) {
			continue
		}

		var defaults trex
		if t := b.mvex.trexFor(tf.tfhd.trackID); t != nil {
			defaults = *t
		}
		hd := tf.tfhd
		if hd.has(tfhdDefaultDuration) {
			defaults.defaultDuration = hd.defaultDuration
		}
		if hd.has(tfhdDefaultSize) {
			defaults.defaultSize = hd.defaultSize
		}
		if hd.has(tfhdDefaultFlags) {
			defaults.defaultFlags = hd.defaultFlags
		}

		ft, _ := seg.tracks[idx].(*fragTrack)
		if ft == nil {
			ft = &fragTrack{}
			seg.tracks[idx] = ft
		}
		if tf.hasTfdt {
			b.nextDTS[idx] = tf.tfdt
		}

		base := m.pos
		if hd.has(tfhdBaseDataOffset) {
			base = hd.baseDataOffset
		}
		pos := base
		for _, run := range tf.truns {
			if run.has(trunDataOffset) {
				off := int64(base) + int64(run.dataOffset)
				if off < 0 {
					return nil, media.DecodeError("trun data offset is out of range")
				}
				pos = uint64(off)
			}

			for i, s := range run.samples {
				dur, size, flags := s.duration, s.size, s.flags
				if !run.has(trunSampleDuration) {
					dur = defaults.defaultDuration
				}
				if !run.has(trunSampleSize) {
					size = defaults.defaultSize
				}
				switch {
				case i == 0 && run.has(trunFirstSampleFlags):
					flags = run.firstFlags
				case !run.has(trunSampleFlags):
					flags = defaults.defaultFlags
				}

				ft.samples = append(ft.samples, sampleInfo{
					pos:  pos,
					size: size,
					ts:   b.nextDTS[idx],
					dur:  dur,
					sync: flags&sampleIsNonSyncSample == 0,
				})
				pos += uint64(size)
				b.nextDTS[idx] += uint64(dur)
			}
		}
		if err := b.p.checkSamples(uint64(len(ft.samples))); err != nil {
			return nil, err
		}
		ft.end = b.nextDTS[idx]
	}

	return seg, nil
}
