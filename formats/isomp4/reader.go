// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"io"
	"log/slog"
	"math"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// maxPacketLen bounds the size of a single sample.
const maxPacketLen = 64 << 20

var errPacketOutOfBounds = media.DecodeError("packet out-of-bounds for a non-seekable stream")

type trackState struct {
	seg    int
	sample uint64
	// delay and padding are the gapless trims in track timescale units.
	delay   uint64
	padding uint64
}

// Reader demultiplexes ISO base media files: MP4, M4A, MOV and their
// fragmented variants.
type Reader struct {
	mss  *stream.MediaSourceStream
	opts media.FormatOptions
	p    *parser
	log  *slog.Logger

	ftyp   *Ftyp
	moov   *moov
	tracks []media.Track
	states []trackState
	cues   []media.Cue
	meta   media.Metadata

	segs  []*segment
	root  *AtomIterator
	frags *fragmentBuilder
	index *sidx
	// done is set once the root iterator has no atoms left.
	done bool
	// partial is set once a seek skipped fragments through the index.
	partial bool
}

var _ media.FormatReader = (*Reader)(nil)

// NewReader parses the movie header of the stream and returns a reader
// positioned at the first packet.
func NewReader(mss *stream.MediaSourceStream, opts media.FormatOptions) (*Reader, error) {
	p := newParser(opts)
	rd := &Reader{mss: mss, opts: p.opts, p: p, log: p.log}

	start := mss.Pos()
	rd.root = rd.newRoot(start)

	var (
		index   *sidx
		sawMoof bool
	)
	for {
		h, err := rd.root.Next()
		if err != nil {
			return nil, err
		}
		if h == nil {
			rd.done = true
			break
		}

		stop := false
		switch h.Type {
		case TypeFtyp:
			rd.ftyp, err = ReadAtom(rd.root, ReadFtyp)
		case TypeMoov:
			rd.moov, err = ReadAtom(rd.root, p.readMoov)
		case TypeSidx:
			var s *sidx
			if s, err = ReadAtom(rd.root, readSidx); err == nil && (index == nil || s.earliestPTS < index.earliestPTS) {
				index = s
			}
			stop = !mss.IsSeekable() && rd.moov != nil
		case TypeMdat, TypeMoof:
			sawMoof = sawMoof || h.Type == TypeMoof
			if !mss.IsSeekable() {
				if rd.moov == nil {
					rd.log.Warn("isomp4: media data precedes the movie atom in a non-seekable stream")
				}
				stop = true
			}
		case TypeMeta:
			var rev *media.Revision
			if rev, err = ReadAtom(rd.root, p.readMeta); rev != nil {
				rd.meta.Push(*rev)
			}
		case TypeFree, TypeSkip, TypeWide:
		default:
			rd.log.Debug("isomp4: skipping top level atom", "type", h.Type.String())
		}
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}

	if rd.ftyp == nil {
		return nil, media.Unsupported("isomp4: missing ftyp atom")
	}
	if rd.moov == nil {
		return nil, media.Unsupported("isomp4: missing moov atom")
	}
	if rd.moov.meta != nil {
		rd.meta.Push(*rd.moov.meta)
	}

	if sawMoof && !rd.moov.fragmented() {
		return nil, media.DecodeError("moof atom present without mvex atom")
	}
	if mss.IsSeekable() {
		if err := rd.rewind(start); err != nil {
			return nil, err
		}
	}

	if err := rd.buildTracks(); err != nil {
		return nil, err
	}
	if index != nil {
		rd.index = index
		rd.cues = rd.sidxCues(index)
	}

	if rd.moov.fragmented() && mss.IsSeekable() && rd.opts.PrebuildSeekIndex {
		for {
			more, err := rd.readMoreSegments()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
	}

	return rd, nil
}

func (rd *Reader) newRoot(start uint64) *AtomIterator {
	if n, ok := rd.mss.ByteLen(); ok && n >= start {
		return NewRootIterator(rd.mss, n-start, true)
	}

	return NewRootIterator(rd.mss, 0, false)
}

// rewind restarts the root iterator and leaves it on the first media data
// or fragment atom.
func (rd *Reader) rewind(start uint64) error {
	if _, err := rd.mss.Seek(int64(start), io.SeekStart); err != nil {
		return err
	}
	rd.root = rd.newRoot(start)
	rd.done = false

	for {
		h, err := rd.root.Next()
		if err != nil {
			return err
		}
		if h == nil {
			rd.done = true
			return nil
		}
		if h.Type == TypeMdat || h.Type == TypeMoof {
			return nil
		}
	}
}

func (rd *Reader) buildTracks() error {
	mv := rd.moov
	seg := &segment{tracks: make([]trackSamples, len(mv.traks))}
	ids := make([]uint32, len(mv.traks))
	ends := make([]uint64, len(mv.traks))

	rd.tracks = make([]media.Track, len(mv.traks))
	rd.states = make([]trackState, len(mv.traks))
	for i, t := range mv.traks {
		params := *t.stbl.params
		timescale := t.mdhd.timescale
		params.WithTimeBase(media.TimeBaseFromRate(timescale))

		nframes := t.mdhd.duration
		switch {
		case nframes == math.MaxUint64:
			nframes = t.stbl.duration
		case nframes == 0 && mv.mvex != nil && mv.mvex.fragmentDuration > 0:
			nframes = rescale(mv.mvex.fragmentDuration, mv.mvhd.timescale, timescale)
		case nframes == 0:
			nframes = t.stbl.duration
		}
		if nframes > 0 {
			params.WithNFrames(nframes)
		}

		if rd.opts.EnableGapless {
			delay, padding := gaplessTrims(t.elst, mv.mvhd.timescale, timescale, nframes)
			params.WithDelay(uint32(min(delay, math.MaxUint32)))
			params.WithPadding(uint32(min(padding, math.MaxUint32)))
			rd.states[i].delay, rd.states[i].padding = delay, padding
		}

		lang := t.mdhd.language
		if lang == "und" {
			lang = ""
		}
		rd.tracks[i] = media.Track{ID: t.tkhd.id, CodecParams: params, Language: lang}

		seg.tracks[i] = newSampleTable(t.stbl)
		ids[i] = t.tkhd.id
		ends[i] = t.stbl.duration
	}
	rd.segs = []*segment{seg}

	if mv.fragmented() {
		rd.frags = newFragmentBuilder(rd.p, mv.mvex, ids, ends)
	}

	return nil
}

// gaplessTrims derives the encoder delay and padding of a track from its edit
// list. Edit durations are in the movie timescale.
func gaplessTrims(edits []elstEntry, movieScale, mediaScale uint32, nframes uint64) (uint64, uint64) {
	var (
		delay  uint64
		edited uint64
		found  bool
	)
	for _, e := range edits {
		if e.mediaTime < 0 {
			continue
		}
		if !found {
			delay = uint64(e.mediaTime)
			found = true
		}
		edited += e.segmentDuration
	}
	if !found {
		return 0, 0
	}

	edited = rescale(edited, movieScale, mediaScale)
	if edited == 0 || delay+edited >= nframes {
		return delay, 0
	}

	return delay, nframes - delay - edited
}

func (rd *Reader) sidxCues(s *sidx) []media.Cue {
	idx := rd.trackIndex(s.referenceID)
	if idx < 0 {
		t := rd.DefaultTrack()
		if t == nil {
			return nil
		}
		idx = rd.trackIndex(t.ID)
	}

	return s.cues(rd.tracks[idx].Timescale())
}

func (rd *Reader) trackIndex(id uint32) int {
	for i := range rd.tracks {
		if rd.tracks[i].ID == id {
			return i
		}
	}

	return -1
}

// Brand is the major brand of the file.
func (rd *Reader) Brand() FourCC { return rd.ftyp.Major }

// Fragmented reports whether the movie is split into movie fragments.
func (rd *Reader) Fragmented() bool { return rd.moov.fragmented() }

func (rd *Reader) Tracks() []media.Track { return rd.tracks }

func (rd *Reader) DefaultTrack() *media.Track { return media.DefaultTrack(rd.tracks) }

func (rd *Reader) Cues() []media.Cue { return rd.cues }

func (rd *Reader) Metadata() *media.Metadata { return &rd.meta }

func (rd *Reader) IntoInner() media.MediaSource { return rd.mss.IntoInner() }

// resync moves the stream back to where the root iterator left off. Packet
// reads move the stream in between.
func (rd *Reader) resync() error {
	pos := rd.root.ResumePos()
	cur := rd.mss.Pos()
	if pos == cur || pos == math.MaxUint64 {
		return nil
	}

	return rd.seekStream(pos, media.DecodeError("atom out-of-bounds for a non-seekable stream"))
}

// seekStream positions the stream at pos, failing with errBack when a
// non-seekable stream would have to go backwards past its buffer.
func (rd *Reader) seekStream(pos uint64, errBack error) error {
	cur := rd.mss.Pos()
	if pos == cur {
		return nil
	}
	if pos < cur && !rd.mss.IsSeekable() && rd.mss.SeekBuffered(pos) != pos {
		return errBack
	}
	if _, err := rd.mss.Seek(int64(pos), io.SeekStart); err != nil {
		return err
	}

	return nil
}

// readMoreSegments reads atoms until the next movie fragment. It reports
// false once the stream has no fragments left.
func (rd *Reader) readMoreSegments() (bool, error) {
	if rd.frags == nil || rd.done {
		return false, nil
	}

	for {
		if err := rd.resync(); err != nil {
			return false, err
		}
		h, err := rd.root.NextNoConsume()
		if err != nil {
			return false, err
		}
		if h == nil {
			rd.done = true
			return false, nil
		}

		if h.Type != TypeMoof {
			rd.root.Consume()
			continue
		}

		m, err := ReadAtom(rd.root, rd.p.readMoof)
		if err != nil {
			return false, err
		}
		seg, err := rd.frags.build(m)
		if err != nil {
			return false, err
		}
		rd.segs = append(rd.segs, seg)
		rd.log.Debug("isomp4: read movie fragment", "sequence", m.seq, "pos", m.pos)

		return true, rd.claimMdat()
	}
}

// claimMdat steps over the header of the media data that follows a fragment
// so the next atom read skips it.
func (rd *Reader) claimMdat() error {
	if err := rd.resync(); err != nil {
		return err
	}
	h, err := rd.root.Next()
	if err != nil {
		return err
	}
	if h == nil {
		rd.done = true
		return nil
	}
	if h.Type == TypeMdat {
		rd.root.Consume()
	}

	return nil
}

// peek returns the next sample of track i in the loaded segments.
func (rd *Reader) peek(i int) (sampleInfo, bool, error) {
	st := &rd.states[i]
	for st.seg < len(rd.segs) && st.sample >= rd.segs[st.seg].track(i).count() {
		st.seg++
		st.sample = 0
	}
	if st.seg >= len(rd.segs) {
		return sampleInfo{}, false, nil
	}

	info, err := rd.segs[st.seg].track(i).at(st.sample)
	if err != nil {
		return sampleInfo{}, false, err
	}

	return info, true, nil
}

// nextSample picks the track whose next sample starts earliest. Ties go to
// the first track.
func (rd *Reader) nextSample() (int, sampleInfo, bool, error) {
	best := -1
	var bestInfo sampleInfo
	for i := range rd.tracks {
		info, ok, err := rd.peek(i)
		if err != nil {
			return 0, sampleInfo{}, false, err
		}
		if !ok {
			continue
		}
		if best < 0 {
			best, bestInfo = i, info
			continue
		}
		t := rd.tracks[i].CodecParams.TimeBase.CalcTime(info.ts)
		if t < rd.tracks[best].CodecParams.TimeBase.CalcTime(bestInfo.ts) {
			best, bestInfo = i, info
		}
	}

	return best, bestInfo, best >= 0, nil
}

// NextPacket returns the next packet in decode order across all tracks.
func (rd *Reader) NextPacket() (*media.Packet, error) {
	for {
		i, info, ok, err := rd.nextSample()
		if err != nil {
			return nil, err
		}
		if ok {
			rd.states[i].sample++
			return rd.readPacket(i, info)
		}

		more, err := rd.readMoreSegments()
		if err != nil {
			return nil, err
		}
		if !more {
			return nil, media.EndOfFile()
		}
	}
}

func (rd *Reader) readPacket(i int, info sampleInfo) (*media.Packet, error) {
	if info.size > maxPacketLen {
		return nil, media.LimitError("packet size", uint64(info.size))
	}
	if err := rd.seekStream(info.pos, errPacketOutOfBounds); err != nil {
		return nil, err
	}

	data := make([]byte, info.size)
	if err := rd.mss.ReadFull(data); err != nil {
		return nil, err
	}

	pkt := media.NewPacket(rd.tracks[i].ID, info.ts, uint64(info.dur), data)
	if rd.opts.EnableGapless {
		rd.trim(i, pkt)
	}

	return pkt, nil
}

// trim sets the gapless trims of a packet from the track's delay and padding.
func (rd *Reader) trim(i int, pkt *media.Packet) {
	st := rd.states[i]
	if pkt.TS < st.delay {
		pkt.TrimStart = uint32(min(st.delay-pkt.TS, pkt.Dur))
	}

	nframes := rd.tracks[i].CodecParams.NFrames
	if st.padding == 0 || nframes < st.padding {
		return
	}
	end := nframes - st.padding
	switch {
	case pkt.TS >= end:
		pkt.TrimEnd = uint32(pkt.Dur)
	case pkt.TS+pkt.Dur > end:
		pkt.TrimEnd = uint32(pkt.TS + pkt.Dur - end)
	}
	if uint64(pkt.TrimStart)+uint64(pkt.TrimEnd) > pkt.Dur {
		pkt.TrimEnd = uint32(pkt.Dur - uint64(pkt.TrimStart))
	}
}

// locate finds the segment and sample of track i that spans ts, reading more
// fragments when needed.
func (rd *Reader) locate(i int, ts uint64) (int, uint64, bool, error) {
	for s := 0; ; s++ {
		if s == len(rd.segs) {
			more, err := rd.readMoreSegments()
			if err != nil {
				return 0, 0, false, err
			}
			if !more {
				return 0, 0, false, nil
			}
		}
		if s >= len(rd.segs) {
			return 0, 0, false, nil
		}

		t := rd.segs[s].track(i)
		if t.count() == 0 {
			continue
		}
		if ts < t.firstTS() {
			return s, 0, true, nil
		}
		if n, ok := t.find(ts); ok {
			return s, t.syncBefore(n), true, nil
		}
	}
}

// covered reports whether a loaded segment holds ts for track i.
func (rd *Reader) covered(i int, ts uint64) bool {
	for _, seg := range rd.segs {
		t := seg.track(i)
		if t.count() > 0 && ts >= t.firstTS() && ts < t.endTS() {
			return true
		}
	}

	return false
}

// jump moves the root iterator to the fragment the segment index places ts
// of track i in, dropping the fragments loaded so far. Nothing happens when
// ts is already loaded or every fragment has been read in order.
func (rd *Reader) jump(i int, ts uint64) error {
	if rd.index == nil || rd.frags == nil || !rd.mss.IsSeekable() || rd.covered(i, ts) || (rd.done && !rd.partial) {
		return nil
	}

	scale := rd.index.timescale
	start, pos, ok := rd.index.find(rescale(ts, rd.tracks[i].Timescale(), scale))
	if !ok {
		return nil
	}
	if n, known := rd.mss.ByteLen(); known && pos >= n {
		return nil
	}

	if _, err := rd.mss.Seek(int64(pos), io.SeekStart); err != nil {
		return err
	}
	rd.root = rd.newRoot(pos)
	rd.done = false
	rd.partial = true
	rd.segs = rd.segs[:1]
	for j := range rd.tracks {
		rd.frags.nextDTS[j] = rescale(start, scale, rd.tracks[j].Timescale())
	}
	rd.log.Debug("isomp4: jumped to indexed fragment", "pos", pos, "start", start)

	return nil
}

// Seek positions every track at the last sync sample at or before the
// target.
func (rd *Reader) Seek(mode media.SeekMode, to media.SeekTo) (media.SeekedTo, error) {
	if len(rd.tracks) == 0 || !rd.mss.IsSeekable() {
		return media.SeekedTo{}, media.SeekError(media.SeekUnseekable)
	}

	var idx int
	switch {
	case to.ByTimestamp || to.TrackID != 0:
		if idx = rd.trackIndex(to.TrackID); idx < 0 {
			return media.SeekedTo{}, media.SeekError(media.SeekInvalidTrack)
		}
	default:
		idx = rd.trackIndex(rd.DefaultTrack().ID)
	}

	tb := rd.tracks[idx].CodecParams.TimeBase
	ts := to.TS
	if !to.ByTimestamp {
		ts = tb.CalcTimestamp(to.Time)
	}

	if err := rd.jump(idx, ts); err != nil {
		return media.SeekedTo{}, err
	}
	s, n, ok, err := rd.locate(idx, ts)
	if err != nil {
		return media.SeekedTo{}, err
	}
	if !ok {
		return media.SeekedTo{}, media.SeekError(media.SeekOutOfRange)
	}
	info, err := rd.segs[s].track(idx).at(n)
	if err != nil {
		return media.SeekedTo{}, err
	}
	rd.states[idx].seg, rd.states[idx].sample = s, n

	at := tb.CalcTime(info.ts)
	for j := range rd.tracks {
		if j == idx {
			continue
		}
		tsj := rd.tracks[j].CodecParams.TimeBase.CalcTimestamp(at)
		sj, nj, ok, err := rd.locate(j, tsj)
		if err != nil {
			return media.SeekedTo{}, err
		}
		if !ok {
			sj, nj = len(rd.segs), 0
		}
		rd.states[j].seg, rd.states[j].sample = sj, nj
	}

	seeked := media.SeekedTo{TrackID: rd.tracks[idx].ID, RequiredTS: info.ts, ActualTS: info.ts}
	if mode == media.SeekAccurate && ts > info.ts {
		seeked.RequiredTS = ts
	}
	rd.log.Debug("isomp4: seeked",
		"track_id", seeked.TrackID, "required_ts", seeked.RequiredTS, "actual_ts", seeked.ActualTS)

	return seeked, nil
}
