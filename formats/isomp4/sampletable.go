// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"sort"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

type stscEntry struct {
	// firstChunk is zero based.
	firstChunk      uint32
	samplesPerChunk uint32
	descIndex       uint32
	firstSample     uint64
}

type sttsEntry struct {
	count       uint32
	delta       uint32
	firstSample uint64
	firstTS     uint64
}

// stbl is the raw sample table of a track.
type stbl struct {
	entry  FourCC
	params *media.CodecParameters

	stts      []sttsEntry
	duration  uint64
	nTimed    uint64
	stsc      []stscEntry
	constSize uint32
	sizes     []uint32
	nSamples  uint64
	offsets   []uint64
	// sync holds zero based sync sample numbers. Nil means every sample
	// is a sync sample.
	sync []uint64
}

func (p *parser) readStbl(r stream.ByteReader, h AtomHeader) (*stbl, error) {
	st := &stbl{}
	var haveStts, haveStsc, haveStsz, haveOffsets bool

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
		case TypeStsd:
			var d *sampleDesc
			if d, err = ReadAtom(it, p.readStsd); err == nil {
				st.entry, st.params = d.entry, d.params
			}
		case TypeStts:
			_, err = ReadAtom(it, func(r stream.ByteReader, h AtomHeader) (struct{}, error) {
				return struct{}{}, p.readStts(r, h, st)
			})
			haveStts = true
		case TypeStsc:
			st.stsc, err = ReadAtom(it, p.readStsc)
			haveStsc = true
		case TypeStsz:
			_, err = ReadAtom(it, func(r stream.ByteReader, h AtomHeader) (struct{}, error) {
				return struct{}{}, p.readStsz(r, h, st)
			})
			haveStsz = true
		case TypeStco:
			st.offsets, err = ReadAtom(it, p.readStco)
			haveOffsets = true
		case TypeCo64:
			st.offsets, err = ReadAtom(it, p.readCo64)
			haveOffsets = true
		case TypeStss:
			st.sync, err = ReadAtom(it, p.readStss)
		case TypeCtts:
			p.log.Debug("isomp4: ignoring composition offsets")
		default:
			p.log.Debug("isomp4: skipping stbl child", "type", child.Type.String())
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case st.params == nil:
		return nil, media.DecodeError("missing stsd atom")
	case !haveStts:
		return nil, media.DecodeError("missing stts atom")
	case !haveStsc:
		return nil, media.DecodeError("missing stsc atom")
	case !haveStsz:
		return nil, media.DecodeError("missing stsz atom")
	}
	if !haveOffsets {
		p.log.Warn("isomp4: missing stco or co64 atom")
	}

	if err := p.resolve(st); err != nil {
		return nil, err
	}

	return st, nil
}

// resolve cross checks the tables and assigns each stsc entry its first
// sample.
func (p *parser) resolve(st *stbl) error {
	if st.nTimed != st.nSamples {
		return media.DecodeError("stts sample count does not match stsz")
	}
	if st.nSamples == 0 {
		return nil
	}
	if len(st.offsets) == 0 {
		return media.DecodeError("missing stco atom")
	}
	if len(st.stsc) == 0 {
		return media.DecodeError("stsc atom is empty")
	}
	if st.stsc[0].firstChunk != 0 {
		return media.DecodeError("stsc does not start at the first chunk")
	}

	nChunks := uint64(len(st.offsets))
	var first uint64
	for i := range st.stsc {
		e := &st.stsc[i]
		if uint64(e.firstChunk) >= nChunks {
			return media.DecodeError("stsc entry first chunk out of range")
		}
		if i > 0 {
			prev := st.stsc[i-1]
			first += uint64(e.firstChunk-prev.firstChunk) * uint64(prev.samplesPerChunk)
		}
		e.firstSample = first
	}

	last := st.stsc[len(st.stsc)-1]
	covered := last.firstSample + (nChunks-uint64(last.firstChunk))*uint64(last.samplesPerChunk)
	switch {
	case covered < st.nSamples:
		return media.DecodeError("stsc covers fewer samples than stsz")
	case covered > st.nSamples:
		p.log.Warn("isomp4: chunks hold more samples than stsz lists",
			"chunk_samples", covered, "samples", st.nSamples)
	}

	if n := len(st.sync); n > 0 && st.sync[n-1] >= st.nSamples {
		return media.DecodeError("stss sample number out of range")
	}

	return nil
}

func (p *parser) readStts(r stream.ByteReader, h AtomHeader, st *stbl) error {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return err
	}
	count, err := r.ReadBeU32()
	if err != nil {
		return err
	}
	if err := checkEntries(h, r.Pos(), uint64(count), 8, "stts"); err != nil {
		return err
	}

	f := fields{r: r}
	st.stts = make([]sttsEntry, 0, min(count, 4096))
	var sample, ts uint64
	for range count {
		e := sttsEntry{count: f.u32(), delta: f.u32(), firstSample: sample, firstTS: ts}
		if f.err != nil {
			return f.err
		}
		sample += uint64(e.count)
		ts += uint64(e.count) * uint64(e.delta)
		if err := p.checkSamples(sample); err != nil {
			return err
		}
		st.stts = append(st.stts, e)
	}
	st.nTimed = sample
	st.duration = ts

	return nil
}

func (p *parser) readStsc(r stream.ByteReader, h AtomHeader) ([]stscEntry, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}
	n, ok := h.DataLen()
	if !ok || n < 4 {
		return nil, media.DecodeError("stsc atom size is invalid")
	}
	count, err := r.ReadBeU32()
	if err != nil {
		return nil, err
	}
	if uint64(count) != (n-4)/12 {
		return nil, media.DecodeError("stsc entry count is invalid")
	}

	f := fields{r: r}
	entries := make([]stscEntry, 0, min(count, 4096))
	for range count {
		first := f.u32()
		e := stscEntry{samplesPerChunk: f.u32(), descIndex: f.u32()}
		if f.err != nil {
			return nil, f.err
		}
		if first == 0 {
			return nil, media.DecodeError("stsc entry first chunk is zero")
		}
		if e.samplesPerChunk == 0 {
			return nil, media.DecodeError("stsc entry has 0 samples per chunk")
		}
		e.firstChunk = first - 1
		if len(entries) > 0 && e.firstChunk <= entries[len(entries)-1].firstChunk {
			return nil, media.DecodeError("stsc entry first chunk not monotonic")
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (p *parser) readStsz(r stream.ByteReader, h AtomHeader, st *stbl) error {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return err
	}

	f := fields{r: r}
	st.constSize = f.u32()
	count := f.u32()
	if f.err != nil {
		return f.err
	}
	if err := p.checkSamples(uint64(count)); err != nil {
		return err
	}
	st.nSamples = uint64(count)
	if st.constSize != 0 {
		return nil
	}

	if err := checkEntries(h, r.Pos(), uint64(count), 4, "stsz"); err != nil {
		return err
	}
	st.sizes = make([]uint32, count)
	for i := range st.sizes {
		st.sizes[i] = f.u32()
	}

	return f.err
}

func (p *parser) readStco(r stream.ByteReader, h AtomHeader) ([]uint64, error) {
	return p.readChunkOffsets(r, h, false)
}

func (p *parser) readCo64(r stream.ByteReader, h AtomHeader) ([]uint64, error) {
	return p.readChunkOffsets(r, h, true)
}

func (p *parser) readChunkOffsets(r stream.ByteReader, h AtomHeader, wide bool) ([]uint64, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}
	count, err := r.ReadBeU32()
	if err != nil {
		return nil, err
	}

	size, name := uint64(4), "stco"
	if wide {
		size, name = 8, "co64"
	}
	if err := checkEntries(h, r.Pos(), uint64(count), size, name); err != nil {
		return nil, err
	}
	if err := p.checkSamples(uint64(count)); err != nil {
		return nil, err
	}

	f := fields{r: r}
	offsets := make([]uint64, count)
	for i := range offsets {
		if wide {
			offsets[i] = f.u64()
		} else {
			offsets[i] = uint64(f.u32())
		}
		if f.err != nil {
			return nil, f.err
		}
		if i > 0 && offsets[i] <= offsets[i-1] {
			return nil, media.DecodeError(name + " offsets not monotonic")
		}
	}

	return offsets, nil
}

func (p *parser) readStss(r stream.ByteReader, h AtomHeader) ([]uint64, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}
	count, err := r.ReadBeU32()
	if err != nil {
		return nil, err
	}
	if err := checkEntries(h, r.Pos(), uint64(count), 4, "stss"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	f := fields{r: r}
	sync := make([]uint64, 0, min(count, 4096))
	for range count {
		n := f.u32()
		if f.err != nil {
			return nil, f.err
		}
		if n == 0 {
			return nil, media.DecodeError("stss sample number is zero")
		}
		if len(sync) > 0 && uint64(n-1) <= sync[len(sync)-1] {
			return nil, media.DecodeError("stss entries not monotonic")
		}
		sync = append(sync, uint64(n-1))
	}

	return sync, nil
}

// sampleTable answers sample queries for a non-fragmented track.
type sampleTable struct {
	st *stbl

	// Position of the last resolved sample, reused by sequential reads.
	lastChunk  uint64
	lastSample uint64
	lastPos    uint64
	cached     bool
}

func newSampleTable(st *stbl) *sampleTable {
	return &sampleTable{st: st}
}

func (t *sampleTable) count() uint64 { return t.st.nSamples }

func (t *sampleTable) firstTS() uint64 { return 0 }

func (t *sampleTable) endTS() uint64 { return t.st.duration }

func (t *sampleTable) size(n uint64) uint32 {
	if t.st.constSize != 0 {
		return t.st.constSize
	}

	return t.st.sizes[n]
}

func (t *sampleTable) timing(n uint64) (uint64, uint32) {
	stts := t.st.stts
	i := sort.Search(len(stts), func(i int) bool { return stts[i].firstSample > n }) - 1
	e := stts[i]

	return e.firstTS + (n-e.firstSample)*uint64(e.delta), e.delta
}

func (t *sampleTable) isSync(n uint64) bool {
	if t.st.sync == nil {
		return true
	}
	i := sort.Search(len(t.st.sync), func(i int) bool { return t.st.sync[i] >= n })

	return i < len(t.st.sync) && t.st.sync[i] == n
}

func (t *sampleTable) at(n uint64) (sampleInfo, error) {
	if n >= t.st.nSamples {
		return sampleInfo{}, media.DecodeError("sample number out of range")
	}

	stsc := t.st.stsc
	i := sort.Search(len(stsc), func(i int) bool { return stsc[i].firstSample > n }) - 1
	e := stsc[i]
	rel := n - e.firstSample
	chunk := uint64(e.firstChunk) + rel/uint64(e.samplesPerChunk)
	if chunk >= uint64(len(t.st.offsets)) {
		return sampleInfo{}, media.DecodeError("sample chunk out of range")
	}

	k := n - rel%uint64(e.samplesPerChunk)
	pos := t.st.offsets[chunk]
	if t.cached && t.lastChunk == chunk && t.lastSample <= n && t.lastSample >= k {
		k, pos = t.lastSample, t.lastPos
	}
	for ; k < n; k++ {
		pos += uint64(t.size(k))
	}
	t.lastChunk, t.lastSample, t.lastPos, t.cached = chunk, n, pos, true

	ts, dur := t.timing(n)

	return sampleInfo{
		pos:  pos,
		size: t.size(n),
		ts:   ts,
		dur:  dur,
		sync: t.isSync(n),
	}, nil
}

func (t *sampleTable) find(ts uint64) (uint64, bool) {
	if ts >= t.st.duration {
		return 0, false
	}

	stts := t.st.stts
	i := sort.Search(len(stts), func(i int) bool { return stts[i].firstTS > ts }) - 1
	if i < 0 {
		return 0, false
	}
	e := stts[i]
	if e.delta == 0 {
		return e.firstSample, true
	}

	return e.firstSample + min((ts-e.firstTS)/uint64(e.delta), uint64(e.count)-1), true
}

func (t *sampleTable) syncBefore(n uint64) uint64 {
	sync := t.st.sync
	if sync == nil {
		return n
	}
	i := sort.Search(len(sync), func(i int) bool { return sync[i] > n }) - 1
	if i < 0 {
		return 0
	}

	return sync[i]
}
