// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"bytes"

	"github.com/ik5/mediakit/internal/audiotest"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

const testRate = 44100

func decodeErr(msg string) error {
	return &media.Error{Kind: media.KindDecode, Msg: msg}
}

func seekableStream(b []byte) *stream.MediaSourceStream {
	return stream.NewMediaSourceStream(stream.NewBytesSource(b), stream.DefaultMediaSourceStreamOptions())
}

func forwardStream(b []byte) *stream.MediaSourceStream {
	opts := stream.MediaSourceStreamOptions{BufferLen: stream.MinBufferLen}
	return stream.NewMediaSourceStream(stream.NewReadOnlySource(bytes.NewReader(b)), opts)
}

// atomStream positions a stream just past the header of the single atom in b.
func atomStream(b []byte) (*stream.MediaSourceStream, AtomHeader) {
	mss := seekableStream(b)
	h, err := ReadAtomHeader(mss)
	if err != nil {
		panic(err)
	}

	return mss, h
}

func writeFtyp(w *audiotest.BoxWriter) {
	w.StartBox("ftyp").Text("isom").U32(0x200).Text("isomiso2mp41").EndBox()
}

func writeMvhd(w *audiotest.BoxWriter, timescale, duration uint32) {
	w.StartFullBox("mvhd", 0, 0).
		U32(0).U32(0).U32(timescale).U32(duration).
		U32(0x00010000).U16(0x0100).Zeros(10).Zeros(36).Zeros(24).U32(2).
		EndBox()
}

func writeTkhd(w *audiotest.BoxWriter, id, duration uint32) {
	w.StartFullBox("tkhd", 0, 7).
		U32(0).U32(0).U32(id).U32(0).U32(duration).
		Zeros(8).U16(0).U16(0).U16(0x0100).U16(0).Zeros(36).U32(0).U32(0).
		EndBox()
}

func writeMdhd(w *audiotest.BoxWriter, timescale, duration uint32) {
	w.StartFullBox("mdhd", 0, 0).
		U32(0).U32(0).U32(timescale).U32(duration).U16(0x15c7).U16(0).
		EndBox()
}

func writeHdlr(w *audiotest.BoxWriter, handler string) {
	w.StartFullBox("hdlr", 0, 0).U32(0).Text(handler).Zeros(12).Text("SoundHandler\x00").EndBox()
}

// writeSowt writes a stsd holding a stereo 16-bit little-endian PCM entry.
func writeSowt(w *audiotest.BoxWriter) {
	w.StartFullBox("stsd", 0, 0).U32(1)
	w.StartBox("sowt").
		Zeros(6).U16(1).
		U16(0).Zeros(6).U16(2).U16(16).Zeros(4).U32(testRate << 16).
		EndBox()
	w.EndBox()
}

type edit struct {
	duration  uint32
	mediaTime int32
}

// trakLayout describes the sample table of a PCM track whose samples last
// one tick each.
type trakLayout struct {
	samples  int
	perChunk int
	// sampleLen overrides the 4 byte frame size.
	sampleLen uint32
	// sync lists one based sync sample numbers for a stss atom.
	sync []uint32
	// wide writes co64 instead of stco.
	wide bool
}

func (l trakLayout) chunkLen() int {
	return l.perChunk * int(l.size())
}

func (l trakLayout) chunks() int {
	return (l.samples + l.perChunk - 1) / l.perChunk
}

func (l trakLayout) size() uint32 {
	if l.sampleLen == 0 {
		return 4
	}

	return l.sampleLen
}

// writeStbl writes the stbl atom and returns the position of its first chunk
// offset, to be filled in by patchOffsets.
func writeStbl(w *audiotest.BoxWriter, l trakLayout) int {
	w.StartBox("stbl")
	writeSowt(w)
	w.StartFullBox("stts", 0, 0).U32(1).U32(uint32(l.samples)).U32(1).EndBox()
	w.StartFullBox("stsc", 0, 0).U32(1).U32(1).U32(uint32(l.perChunk)).U32(1).EndBox()
	if l.sampleLen == 0 {
		w.StartFullBox("stsz", 0, 0).U32(4).U32(uint32(l.samples)).EndBox()
	} else {
		w.StartFullBox("stsz", 0, 0).U32(0).U32(uint32(l.samples))
		for range l.samples {
			w.U32(l.sampleLen)
		}
		w.EndBox()
	}
	if l.sync != nil {
		w.StartFullBox("stss", 0, 0).U32(uint32(len(l.sync)))
		for _, n := range l.sync {
			w.U32(n)
		}
		w.EndBox()
	}

	typ, width := "stco", 4
	if l.wide {
		typ, width = "co64", 8
	}
	w.StartFullBox(typ, 0, 0).U32(uint32(l.chunks()))
	patch := w.Len()
	w.Zeros(width * l.chunks())
	w.EndBox()
	w.EndBox()

	return patch
}

// patchOffsets points the chunks of l at consecutive chunkLen slots from
// base.
func patchOffsets(w *audiotest.BoxWriter, patch int, l trakLayout, base int) {
	for k := range l.chunks() {
		off := uint64(base + k*l.chunkLen())
		if l.wide {
			w.PatchU64(patch+8*k, off)
		} else {
			w.PatchU32(patch+4*k, uint32(off))
		}
	}
}

// writePCMTrak writes a trak with one PCM track and returns the chunk offset
// patch position.
func writePCMTrak(w *audiotest.BoxWriter, id uint32, l trakLayout, edits []edit) int {
	w.StartBox("trak")
	writeTkhd(w, id, uint32(l.samples))
	if len(edits) > 0 {
		w.StartBox("edts").StartFullBox("elst", 0, 0).U32(uint32(len(edits)))
		for _, e := range edits {
			w.U32(e.duration).U32(uint32(e.mediaTime)).U16(1).U16(0)
		}
		w.EndBox().EndBox()
	}
	w.StartBox("mdia")
	writeMdhd(w, testRate, uint32(l.samples))
	writeHdlr(w, "soun")
	w.StartBox("minf")
	patch := writeStbl(w, l)
	w.EndBox().EndBox().EndBox()

	return patch
}

// samplePayload fills every sample of l with its sample number.
func samplePayload(l trakLayout) []byte {
	size := int(l.size())
	payload := make([]byte, l.samples*size)
	for i := range l.samples {
		off := i * size
		for j := range size {
			payload[off+j] = byte(i)
		}
	}

	return payload
}

type pcmMovie struct {
	samples  int
	perChunk int
	edits    []edit
	udta     func(w *audiotest.BoxWriter)
	sidx     bool
	// sampleLen overrides the 4 byte frame size.
	sampleLen uint32
	sync      []uint32
	wide      bool
}

// build writes a non-fragmented movie with one PCM track. Sample i is filled
// with the byte i.
func (m pcmMovie) build() []byte {
	if m.perChunk == 0 {
		m.perChunk = m.samples
	}
	l := trakLayout{samples: m.samples, perChunk: m.perChunk, sampleLen: m.sampleLen, sync: m.sync, wide: m.wide}

	w := audiotest.NewBoxWriter()
	writeFtyp(w)

	w.StartBox("moov")
	writeMvhd(w, testRate, uint32(m.samples))
	patch := writePCMTrak(w, 1, l, m.edits)
	if m.udta != nil {
		m.udta(w)
	}
	w.EndBox()

	if m.sidx {
		w.StartFullBox("sidx", 0, 0).U32(1).U32(testRate).U32(0).U32(0).U16(0).U16(2)
		w.U32(100).U32(uint32(m.samples / 2)).U32(0x90000000)
		w.U32(100).U32(uint32(m.samples - m.samples/2)).U32(0x90000000)
		w.EndBox()
	}

	patchOffsets(w, patch, l, w.Len()+8)
	w.Box("mdat", samplePayload(l))

	return w.Bytes()
}

// interleavedMovie writes two single sample tracks whose media data is laid
// out second track first.
func interleavedMovie(sampleLen uint32) []byte {
	l := trakLayout{samples: 1, perChunk: 1, sampleLen: sampleLen}

	w := audiotest.NewBoxWriter()
	writeFtyp(w)
	w.StartBox("moov")
	writeMvhd(w, testRate, 1)
	first := writePCMTrak(w, 1, l, nil)
	second := writePCMTrak(w, 2, l, nil)
	w.EndBox()

	data := w.Len() + 8
	patchOffsets(w, second, l, data)
	patchOffsets(w, first, l, data+l.chunkLen())

	payload := make([]byte, 2*l.chunkLen())
	for i := range payload {
		payload[i] = 2
		if i >= l.chunkLen() {
			payload[i] = 1
		}
	}
	w.Box("mdat", payload)

	return w.Bytes()
}

// dataRef selects how a fragment locates its media data.
type dataRef int

const (
	// refTrun sets the trun data offset relative to the moof.
	refTrun dataRef = iota
	// refTfhd sets an absolute base data offset in the tfhd.
	refTfhd
	// refNone sets neither, so samples start at the moof itself.
	refNone
)

// fragment describes one moof and its mdat.
type fragment struct {
	seq     uint32
	samples int
	tfdt    int64
	ref     dataRef
}

// fragmentedMovie writes a movie whose samples all live in fragments. Each
// sample is 4 bytes long and lasts 1024 ticks.
func fragmentedMovie(frags ...fragment) []byte {
	return buildFragmented(false, frags)
}

// indexedMovie is fragmentedMovie with a sidx holding one reference per
// fragment.
func indexedMovie(frags ...fragment) []byte {
	return buildFragmented(true, frags)
}

func buildFragmented(index bool, frags []fragment) []byte {
	w := audiotest.NewBoxWriter()
	writeFtyp(w)

	w.StartBox("moov")
	writeMvhd(w, testRate, 0)
	w.StartBox("trak")
	writeTkhd(w, 1, 0)
	w.StartBox("mdia")
	writeMdhd(w, testRate, 0)
	writeHdlr(w, "soun")
	w.StartBox("minf").StartBox("stbl")
	writeSowt(w)
	w.StartFullBox("stts", 0, 0).U32(0).EndBox()
	w.StartFullBox("stsc", 0, 0).U32(0).EndBox()
	w.StartFullBox("stsz", 0, 0).U32(0).U32(0).EndBox()
	w.StartFullBox("stco", 0, 0).U32(0).EndBox()
	w.EndBox().EndBox().EndBox().EndBox()
	w.StartBox("mvex")
	w.StartFullBox("trex", 0, 0).U32(1).U32(1).U32(1024).U32(4).U32(0).EndBox()
	w.EndBox()
	w.EndBox()

	var refs int
	if index {
		w.StartFullBox("sidx", 0, 0).U32(1).U32(testRate).U32(0).U32(0).U16(0).U16(uint16(len(frags)))
		refs = w.Len()
		for _, f := range frags {
			w.U32(0).U32(uint32(f.samples * 1024)).U32(0x90000000)
		}
		w.EndBox()
	}

	n := 0
	for k, f := range frags {
		moof := w.Len()
		w.StartBox("moof")
		w.StartFullBox("mfhd", 0, 0).U32(f.seq).EndBox()
		w.StartBox("traf")
		base := -1
		if f.ref == refTfhd {
			w.StartFullBox("tfhd", 0, tfhdBaseDataOffset).U32(1)
			base = w.Len()
			w.U64(0).EndBox()
		} else {
			w.StartFullBox("tfhd", 0, 0).U32(1).EndBox()
		}
		if f.tfdt >= 0 {
			w.StartFullBox("tfdt", 1, 0).U64(uint64(f.tfdt)).EndBox()
		}
		off := -1
		if f.ref == refTrun {
			w.StartFullBox("trun", 0, trunDataOffset).U32(uint32(f.samples))
			off = w.Len()
			w.U32(0)
		} else {
			w.StartFullBox("trun", 0, 0).U32(uint32(f.samples))
		}
		w.EndBox().EndBox().EndBox()
		if off >= 0 {
			w.PatchU32(off, uint32(w.Len()-moof+8))
		}
		if base >= 0 {
			w.PatchU64(base, uint64(w.Len()+8))
		}

		w.StartBox("mdat")
		for range f.samples {
			w.Raw([]byte{byte(n), byte(n), byte(n), byte(n)})
			n++
		}
		w.EndBox()

		if index {
			w.PatchU32(refs+12*k, uint32(w.Len()-moof))
		}
	}

	return w.Bytes()
}
