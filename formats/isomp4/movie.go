// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"math"
	"strings"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// maxFtypLen bounds the ftyp payload.
const maxFtypLen = 4 << 10

// Ftyp is the file type atom.
type Ftyp struct {
	Major      FourCC
	Minor      uint32
	Compatible []FourCC
}

// ReadFtyp parses an ftyp payload.
func ReadFtyp(r stream.ByteReader, h AtomHeader) (*Ftyp, error) {
	n, ok := h.DataLen()
	if !ok {
		return nil, media.DecodeError("ftyp atom size is unknown")
	}
	if n < 8 || n%4 != 0 {
		return nil, media.DecodeError("invalid ftyp data length")
	}
	if n > maxFtypLen {
		return nil, media.LimitError("ftyp size", n)
	}

	f := fields{r: r}
	ftyp := &Ftyp{Major: f.fourcc(), Minor: f.u32()}
	for i := uint64(0); i < (n-8)/4; i++ {
		ftyp.Compatible = append(ftyp.Compatible, f.fourcc())
	}
	if f.err != nil {
		return nil, f.err
	}

	return ftyp, nil
}

type mvhd struct {
	ctime     uint64
	mtime     uint64
	timescale uint32
	// duration is math.MaxUint64 when unknown.
	duration uint64
	rate     uint32
	volume   uint16
}

func readMvhd(r stream.ByteReader, h AtomHeader) (*mvhd, error) {
	version, _, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}

	f := fields{r: r}
	m := &mvhd{}
	var want uint64
	switch version {
	case 0:
		want = 96
		m.ctime = uint64(f.u32())
		m.mtime = uint64(f.u32())
		m.timescale = f.u32()
		m.duration = widenDuration(f.u32())
	case 1:
		want = 108
		m.ctime = f.u64()
		m.mtime = f.u64()
		m.timescale = f.u32()
		m.duration = f.u64()
	default:
		return nil, media.Unsupported("mvhd version")
	}
	if n, ok := h.DataLen(); !ok || n != want {
		return nil, media.DecodeError("mvhd atom size is invalid")
	}
	m.rate = f.u32()
	m.volume = f.u16()
	if f.err != nil {
		return nil, f.err
	}
	if m.timescale == 0 {
		return nil, media.DecodeError("mvhd timescale is zero")
	}

	return m, nil
}

// widenDuration maps the 32-bit "unknown" duration to its 64-bit form.
func widenDuration(d uint32) uint64 {
	if d == math.MaxUint32 {
		return math.MaxUint64
	}

	return uint64(d)
}

type tkhd struct {
	flags    uint32
	ctime    uint64
	mtime    uint64
	id       uint32
	duration uint64
	layer    uint16
	altGroup uint16
	volume   uint16
	width    uint32
	height   uint32
}

func readTkhd(r stream.ByteReader, h AtomHeader) (*tkhd, error) {
	version, flags, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}

	f := fields{r: r}
	t := &tkhd{flags: flags}
	var want uint64
	switch version {
	case 0:
		want = 80
		t.ctime = uint64(f.u32())
		t.mtime = uint64(f.u32())
		t.id = f.u32()
		f.skip(4)
		t.duration = widenDuration(f.u32())
	case 1:
		want = 92
		t.ctime = f.u64()
		t.mtime = f.u64()
		t.id = f.u32()
		f.skip(4)
		t.duration = f.u64()
	default:
		return nil, media.Unsupported("tkhd version")
	}
	if n, ok := h.DataLen(); !ok || n < want || n > maxConfigAtomLen {
		return nil, media.DecodeError("tkhd atom size is invalid")
	}
	f.skip(8)
	t.layer = f.u16()
	t.altGroup = f.u16()
	t.volume = f.u16()
	f.skip(2 + 36)
	t.width = f.u32() >> 16
	t.height = f.u32() >> 16
	if f.err != nil {
		return nil, f.err
	}

	return t, nil
}

type mdhd struct {
	ctime     uint64
	mtime     uint64
	timescale uint32
	duration  uint64
	language  string
}

func readMdhd(r stream.ByteReader, h AtomHeader) (*mdhd, error) {
	version, _, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}

	f := fields{r: r}
	m := &mdhd{}
	var want uint64
	switch version {
	case 0:
		want = 20
		m.ctime = uint64(f.u32())
		m.mtime = uint64(f.u32())
		m.timescale = f.u32()
		m.duration = widenDuration(f.u32())
	case 1:
		want = 32
		m.ctime = f.u64()
		m.mtime = f.u64()
		m.timescale = f.u32()
		m.duration = f.u64()
	default:
		return nil, media.Unsupported("mdhd version")
	}
	if n, ok := h.DataLen(); !ok || n != want {
		return nil, media.DecodeError("mdhd atom size is invalid")
	}
	m.language = decodeLanguage(f.u16())
	f.skip(2)
	if f.err != nil {
		return nil, f.err
	}
	if m.timescale == 0 {
		return nil, media.DecodeError("mdhd timescale is zero")
	}

	return m, nil
}

// decodeLanguage unpacks three 5-bit characters offset by 0x60. Codes
// outside the packed ISO 639-2 range decode to an empty string.
func decodeLanguage(code uint16) string {
	if code < 0x400 || code > 0x7fff {
		return ""
	}

	return string([]byte{
		byte(code>>10&0x1f) + 0x60,
		byte(code>>5&0x1f) + 0x60,
		byte(code&0x1f) + 0x60,
	})
}

type hdlr struct {
	handler FourCC
	name    string
}

func (p *parser) readHdlr(r stream.ByteReader, h AtomHeader) (*hdlr, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}
	n, ok := h.DataLen()
	if !ok || n < 20 {
		return nil, media.DecodeError("hdlr atom size is invalid")
	}
	if n > maxConfigAtomLen {
		return nil, media.LimitError("hdlr size", n)
	}

	f := fields{r: r}
	f.skip(4)
	hd := &hdlr{handler: f.fourcc()}
	f.skip(12)
	name := f.bytes(n - 20)
	if f.err != nil {
		return nil, f.err
	}

	switch hd.handler {
	case HandlerVideo, HandlerSound, HandlerMeta, HandlerSubtitle, HandlerText:
	default:
		p.log.Warn("isomp4: unknown handler type", "handler", hd.handler.String())
	}
	hd.name = strings.ToValidUTF8(strings.TrimRight(string(name), "\x00"), "�")

	return hd, nil
}

type elstEntry struct {
	segmentDuration uint64
	mediaTime       int64
	rateInt         int16
	rateFrac        int16
}

func readElst(r stream.ByteReader, h AtomHeader) ([]elstEntry, error) {
	version, _, err := h.ReadFullHeader(r)
	if err != nil {
		return nil, err
	}

	var entryLen uint64
	switch version {
	case 0:
		entryLen = 12
	case 1:
		entryLen = 20
	default:
		return nil, media.Unsupported("elst version")
	}

	n, ok := h.DataLen()
	if !ok || n < 4 {
		return nil, media.DecodeError("elst atom size is invalid")
	}
	f := fields{r: r}
	count := uint64(f.u32())
	if f.err != nil {
		return nil, f.err
	}
	if count != (n-4)/entryLen {
		return nil, media.DecodeError("elst entry count is invalid")
	}

	entries := make([]elstEntry, 0, count)
	for range count {
		var e elstEntry
		if version == 0 {
			e.segmentDuration = uint64(f.u32())
			e.mediaTime = int64(int32(f.u32()))
		} else {
			e.segmentDuration = f.u64()
			e.mediaTime = int64(f.u64())
		}
		e.rateInt = int16(f.u16())
		e.rateFrac = int16(f.u16())
		entries = append(entries, e)
	}
	if f.err != nil {
		return nil, f.err
	}

	return entries, nil
}

func readEdts(r stream.ByteReader, h AtomHeader) ([]elstEntry, error) {
	it := NewAtomIterator(r, h)
	var entries []elstEntry
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			return entries, nil
		}
		if child.Type == TypeElst {
			if entries, err = ReadAtom(it, readElst); err != nil {
				return nil, err
			}
		}
	}
}

type trak struct {
	tkhd *tkhd
	elst []elstEntry
	mdhd *mdhd
	hdlr *hdlr
	stbl *stbl
}

func (p *parser) readTrak(r stream.ByteReader, h AtomHeader) (*trak, error) {
	t := &trak{}
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
		case TypeTkhd:
			t.tkhd, err = ReadAtom(it, readTkhd)
		case TypeEdts:
			t.elst, err = ReadAtom(it, readEdts)
		case TypeMdia:
			_, err = ReadAtom(it, func(r stream.ByteReader, h AtomHeader) (struct{}, error) {
				return struct{}{}, p.readMdia(r, h, t)
			})
		}
		if err != nil {
			return nil, err
		}
	}

	if t.tkhd == nil {
		return nil, media.DecodeError("missing tkhd atom")
	}
	if t.mdhd == nil {
		return nil, media.DecodeError("missing mdia atom")
	}

	return t, nil
}

// readMdia fills the media fields of t.
func (p *parser) readMdia(r stream.ByteReader, h AtomHeader, t *trak) error {
	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return err
		}
		if child == nil {
			break
		}

		switch child.Type {
		case TypeMdhd:
			t.mdhd, err = ReadAtom(it, readMdhd)
		case TypeHdlr:
			t.hdlr, err = ReadAtom(it, p.readHdlr)
		case TypeMinf:
			t.stbl, err = ReadAtom(it, p.readMinf)
		}
		if err != nil {
			return err
		}
	}

	switch {
	case t.mdhd == nil:
		return media.DecodeError("missing mdhd atom")
	case t.hdlr == nil:
		return media.DecodeError("missing hdlr atom")
	case t.stbl == nil:
		return media.DecodeError("missing minf atom")
	}

	return nil
}

func (p *parser) readMinf(r stream.ByteReader, h AtomHeader) (*stbl, error) {
	it := NewAtomIterator(r, h)
	var st *stbl
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		if child.Type == TypeStbl {
			if st, err = ReadAtom(it, p.readStbl); err != nil {
				return nil, err
			}
		}
	}
	if st == nil {
		return nil, media.DecodeError("missing stbl atom")
	}

	return st, nil
}

type trex struct {
	trackID         uint32
	descIndex       uint32
	defaultDuration uint32
	defaultSize     uint32
	defaultFlags    uint32
}

func readTrex(r stream.ByteReader, h AtomHeader) (*trex, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}

	f := fields{r: r}
	t := &trex{
		trackID:         f.u32(),
		descIndex:       f.u32(),
		defaultDuration: f.u32(),
		defaultSize:     f.u32(),
		defaultFlags:    f.u32(),
	}
	if f.err != nil {
		return nil, f.err
	}

	return t, nil
}

type mvex struct {
	// fragmentDuration comes from mehd, zero when absent.
	fragmentDuration uint64
	trexs            []*trex
}

func (m *mvex) trexFor(trackID uint32) *trex {
	for _, t := range m.trexs {
		if t.trackID == trackID {
			return t
		}
	}

	return nil
}

func readMehd(r stream.ByteReader, h AtomHeader) (uint64, error) {
	version, _, err := h.ReadFullHeader(r)
	if err != nil {
		return 0, err
	}

	f := fields{r: r}
	var d, want uint64
	switch version {
	case 0:
		want = 4
		d = uint64(f.u32())
	case 1:
		want = 8
		d = f.u64()
	default:
		return 0, media.Unsupported("mehd version")
	}
	if n, ok := h.DataLen(); !ok || n != want {
		return 0, media.DecodeError("mehd atom size is invalid")
	}

	return d, f.err
}

func readMvex(r stream.ByteReader, h AtomHeader) (*mvex, error) {
	m := &mvex{}
	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			return m, nil
		}

		switch child.Type {
		case TypeMehd:
			m.fragmentDuration, err = ReadAtom(it, readMehd)
		case TypeTrex:
			var t *trex
			if t, err = ReadAtom(it, readTrex); err == nil {
				m.trexs = append(m.trexs, t)
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

type moov struct {
	mvhd  *mvhd
	traks []*trak
	mvex  *mvex
	meta  *media.Revision
}

func (m *moov) fragmented() bool { return m.mvex != nil }

func (p *parser) readMoov(r stream.ByteReader, h AtomHeader) (*moov, error) {
	m := &moov{}
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
		case TypeMvhd:
			m.mvhd, err = ReadAtom(it, readMvhd)
		case TypeTrak:
			var t *trak
			if t, err = ReadAtom(it, p.readTrak); err == nil {
				m.traks = append(m.traks, t)
			}
		case TypeMvex:
			m.mvex, err = ReadAtom(it, readMvex)
		case TypeUdta:
			m.meta, err = ReadAtom(it, p.readUdta)
		case TypeMeta:
			m.meta, err = ReadAtom(it, p.readMeta)
		default:
			p.log.Debug("isomp4: skipping moov child", "type", child.Type.String())
		}
		if err != nil {
			return nil, err
		}
	}

	if m.mvhd == nil {
		return nil, media.DecodeError("missing mvhd atom")
	}
	if m.mvex != nil {
		for _, t := range m.traks {
			if m.mvex.trexFor(t.tkhd.id) == nil {
				return nil, media.DecodeError("mvex and moov track number mismatch")
			}
		}
	}

	return m, nil
}
