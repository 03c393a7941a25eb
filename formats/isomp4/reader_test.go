// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/internal/audiotest"
	"github.com/ik5/mediakit/media"
)

func readAll(t *testing.T, rd *Reader) []*media.Packet {
	t.Helper()

	var pkts []*media.Packet
	for {
		pkt, err := rd.NextPacket()
		if media.IsEndOfStream(err) {
			return pkts
		}
		require.NoError(t, err)
		pkts = append(pkts, pkt)
	}
}

func TestReader_PCMTrack(t *testing.T) {
	t.Parallel()

	file := pcmMovie{samples: 10, perChunk: 4}.build()
	rd, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)

	assert.Equal(t, "isom", rd.Brand().String())
	assert.False(t, rd.Fragmented())
	require.Len(t, rd.Tracks(), 1)

	track := rd.Tracks()[0]
	params := track.CodecParams
	assert.Equal(t, uint32(1), track.ID)
	assert.Equal(t, "eng", track.Language)
	assert.Equal(t, media.CodecPCMS16LE, params.Codec)
	assert.Equal(t, uint32(testRate), params.SampleRate)
	assert.Equal(t, audio.FrontLeft|audio.FrontRight, params.Channels)
	assert.Equal(t, audio.SampleFormatS16, params.SampleFormat)
	assert.Equal(t, media.TimeBaseFromRate(testRate), params.TimeBase)
	assert.Equal(t, uint64(10), params.NFrames)
	assert.Equal(t, &rd.Tracks()[0], rd.DefaultTrack())

	pkts := readAll(t, rd)
	require.Len(t, pkts, 10)
	for i, pkt := range pkts {
		assert.Equal(t, uint32(1), pkt.TrackID)
		assert.Equal(t, uint64(i), pkt.TS)
		assert.Equal(t, uint64(1), pkt.Dur)
		assert.Equal(t, bytes.Repeat([]byte{byte(i)}, 4), pkt.Data)
	}
}

func TestReader_NonSeekable(t *testing.T) {
	t.Parallel()

	file := pcmMovie{samples: 6, perChunk: 2}.build()
	rd, err := NewReader(forwardStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)

	pkts := readAll(t, rd)
	require.Len(t, pkts, 6)
	assert.Equal(t, []byte{5, 5, 5, 5}, pkts[5].Data)

	_, err = rd.Seek(media.SeekCoarse, media.SeekToTime(0))
	assert.ErrorIs(t, err, &media.Error{Kind: media.KindSeek, Seek: media.SeekUnseekable})
}

func TestReader_PacketBehindNonSeekableStream(t *testing.T) {
	t.Parallel()

	rd, err := NewReader(forwardStream(interleavedMovie(40<<10)), media.DefaultFormatOptions())
	require.NoError(t, err)
	require.Len(t, rd.Tracks(), 2)

	// Both samples start at zero, so the first track is read first although
	// its data lies behind the second track's.
	pkt, err := rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), pkt.TrackID)
	assert.Len(t, pkt.Data, 40<<10)
	assert.Equal(t, byte(1), pkt.Data[0])

	_, err = rd.NextPacket()
	assert.ErrorIs(t, err, decodeErr("packet out-of-bounds for a non-seekable stream"))
}

func TestReader_MissingAtoms(t *testing.T) {
	t.Parallel()

	t.Run("ftyp", func(t *testing.T) {
		t.Parallel()

		file := pcmMovie{samples: 2}.build()
		ftypLen := int(be.Uint32(file))
		_, err := NewReader(seekableStream(file[ftypLen:]), media.DefaultFormatOptions())
		assert.ErrorIs(t, err, &media.Error{Kind: media.KindUnsupported, Msg: "isomp4: missing ftyp atom"})
	})

	t.Run("moov", func(t *testing.T) {
		t.Parallel()

		w := audiotest.NewBoxWriter()
		writeFtyp(w)
		w.Box("mdat", []byte{1, 2, 3, 4})
		_, err := NewReader(seekableStream(w.Bytes()), media.DefaultFormatOptions())
		assert.ErrorIs(t, err, &media.Error{Kind: media.KindUnsupported, Msg: "isomp4: missing moov atom"})
	})
}

func TestReader_MoofWithoutMvex(t *testing.T) {
	t.Parallel()

	moof := audiotest.NewBoxWriter()
	moof.StartBox("moof").StartFullBox("mfhd", 0, 0).U32(1).EndBox().EndBox()

	movie := pcmMovie{samples: 2}.build()
	mdatLen := 8 + 2*4

	trailing := append(append([]byte{}, movie...), moof.Bytes()...)
	leading := append(append(append([]byte{}, movie[:len(movie)-mdatLen]...), moof.Bytes()...), movie[len(movie)-mdatLen:]...)

	tests := []struct {
		name    string
		file    []byte
		forward bool
	}{
		{name: "moof after mdat", file: trailing},
		{name: "moof before mdat", file: leading},
		{name: "moof before mdat, non-seekable", file: leading, forward: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mss := seekableStream(tt.file)
			if tt.forward {
				mss = forwardStream(tt.file)
			}
			_, err := NewReader(mss, media.DefaultFormatOptions())
			assert.ErrorIs(t, err, decodeErr("moof atom present without mvex atom"))
		})
	}
}

func TestReader_TrexTrackMismatch(t *testing.T) {
	t.Parallel()

	file := fragmentedMovie(fragment{seq: 1, samples: 2})
	at := bytes.Index(file, []byte("trex"))
	require.Positive(t, at)
	// The trex track ID follows the full box header.
	file[at+8+3] = 2

	_, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
	assert.ErrorIs(t, err, decodeErr("mvex and moov track number mismatch"))
}

func TestReader_ChunkOffsets(t *testing.T) {
	t.Parallel()

	for _, wide := range []bool{false, true} {
		name := "stco"
		if wide {
			name = "co64"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rd, err := NewReader(seekableStream(pcmMovie{samples: 9, perChunk: 2, wide: wide}.build()), media.DefaultFormatOptions())
			require.NoError(t, err)

			pkts := readAll(t, rd)
			require.Len(t, pkts, 9)
			for i, pkt := range pkts {
				assert.Equal(t, bytes.Repeat([]byte{byte(i)}, 4), pkt.Data)
			}
		})
	}
}

func TestReader_Fragmented(t *testing.T) {
	t.Parallel()

	file := fragmentedMovie(fragment{seq: 1, samples: 3, tfdt: -1})
	rd, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)
	assert.True(t, rd.Fragmented())

	pkts := readAll(t, rd)
	require.Len(t, pkts, 3)
	for i, pkt := range pkts {
		assert.Equal(t, uint64(i*1024), pkt.TS)
		assert.Equal(t, uint64(1024), pkt.Dur)
		assert.Equal(t, bytes.Repeat([]byte{byte(i)}, 4), pkt.Data)
	}
}

func TestReader_FragmentedNonSeekable(t *testing.T) {
	t.Parallel()

	file := fragmentedMovie(
		fragment{seq: 1, samples: 2, tfdt: -1},
		fragment{seq: 2, samples: 3, tfdt: -1},
		fragment{seq: 3, samples: 1, tfdt: 10240},
	)
	rd, err := NewReader(forwardStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)

	pkts := readAll(t, rd)
	require.Len(t, pkts, 6)

	var ts []uint64
	for i, pkt := range pkts {
		ts = append(ts, pkt.TS)
		assert.Equal(t, byte(i), pkt.Data[0])
	}
	assert.Equal(t, []uint64{0, 1024, 2048, 3072, 4096, 10240}, ts)
}

func TestReader_Seek(t *testing.T) {
	t.Parallel()

	file := pcmMovie{samples: 100, perChunk: 10}.build()
	rd, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)

	seeked, err := rd.Seek(media.SeekAccurate, media.SeekToTimestamp(42, 1))
	require.NoError(t, err)
	assert.Equal(t, media.SeekedTo{TrackID: 1, RequiredTS: 42, ActualTS: 42}, seeked)

	pkt, err := rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), pkt.TS)
	assert.Equal(t, []byte{42, 42, 42, 42}, pkt.Data)

	at := media.TimeBaseFromRate(testRate).CalcTime(7)
	seeked, err = rd.Seek(media.SeekCoarse, media.SeekToTime(at))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), seeked.ActualTS)

	_, err = rd.Seek(media.SeekCoarse, media.SeekToTimestamp(100, 1))
	assert.ErrorIs(t, err, &media.Error{Kind: media.KindSeek, Seek: media.SeekOutOfRange})

	_, err = rd.Seek(media.SeekCoarse, media.SeekToTimestamp(0, 9))
	assert.ErrorIs(t, err, &media.Error{Kind: media.KindSeek, Seek: media.SeekInvalidTrack})
}

func TestReader_SeekSyncSamples(t *testing.T) {
	t.Parallel()

	file := pcmMovie{samples: 20, perChunk: 5, sync: []uint32{1, 6, 11, 16}}.build()
	rd, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)

	tests := []struct {
		mode     media.SeekMode
		ts       uint64
		required uint64
		actual   uint64
	}{
		{mode: media.SeekCoarse, ts: 8, required: 5, actual: 5},
		{mode: media.SeekCoarse, ts: 15, required: 15, actual: 15},
		{mode: media.SeekAccurate, ts: 13, required: 13, actual: 10},
		{mode: media.SeekAccurate, ts: 4, required: 4, actual: 0},
		{mode: media.SeekCoarse, ts: 19, required: 15, actual: 15},
	}
	for _, tt := range tests {
		seeked, err := rd.Seek(tt.mode, media.SeekToTimestamp(tt.ts, 1))
		require.NoError(t, err)
		assert.Equal(t, tt.actual, seeked.ActualTS, "seek to %d", tt.ts)
		assert.Equal(t, tt.required, seeked.RequiredTS, "seek to %d", tt.ts)

		pkt, err := rd.NextPacket()
		require.NoError(t, err)
		assert.Equal(t, tt.actual, pkt.TS)
		assert.Equal(t, byte(tt.actual), pkt.Data[0])
	}
}

func TestReader_SeekFragmented(t *testing.T) {
	t.Parallel()

	file := fragmentedMovie(
		fragment{seq: 1, samples: 2, tfdt: -1},
		fragment{seq: 2, samples: 2, tfdt: -1},
	)
	opts := media.DefaultFormatOptions()
	opts.PrebuildSeekIndex = false
	rd, err := NewReader(seekableStream(file), opts)
	require.NoError(t, err)

	seeked, err := rd.Seek(media.SeekAccurate, media.SeekToTimestamp(3000, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), seeked.ActualTS)
	assert.Equal(t, uint64(3000), seeked.RequiredTS)

	pkts := readAll(t, rd)
	require.Len(t, pkts, 2)
	assert.Equal(t, uint64(2048), pkts[0].TS)
	assert.Equal(t, byte(2), pkts[0].Data[0])
}

func TestReader_SeekIndexed(t *testing.T) {
	t.Parallel()

	file := indexedMovie(
		fragment{seq: 1, samples: 2, tfdt: -1},
		fragment{seq: 2, samples: 2, tfdt: -1},
		fragment{seq: 3, samples: 2, tfdt: -1},
	)
	opts := media.DefaultFormatOptions()
	opts.PrebuildSeekIndex = false
	rd, err := NewReader(seekableStream(file), opts)
	require.NoError(t, err)
	require.Len(t, rd.Cues(), 3)

	seeked, err := rd.Seek(media.SeekAccurate, media.SeekToTimestamp(4196, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), seeked.ActualTS)
	assert.Equal(t, uint64(4196), seeked.RequiredTS)
	// Only the movie and the third fragment have been read.
	assert.Len(t, rd.segs, 2)

	pkts := readAll(t, rd)
	require.Len(t, pkts, 2)
	assert.Equal(t, uint64(4096), pkts[0].TS)
	assert.Equal(t, byte(4), pkts[0].Data[0])
	assert.Equal(t, uint64(5120), pkts[1].TS)

	seeked, err = rd.Seek(media.SeekCoarse, media.SeekToTimestamp(2100, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), seeked.ActualTS)

	pkts = readAll(t, rd)
	require.Len(t, pkts, 4)
	assert.Equal(t, byte(2), pkts[0].Data[0])
	assert.Equal(t, uint64(5120), pkts[3].TS)
}

func TestReader_FragmentDataOffsets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  dataRef
		// data is false when the samples point at the moof rather than
		// the mdat.
		data bool
	}{
		{name: "trun data offset", ref: refTrun, data: true},
		{name: "tfhd base data offset", ref: refTfhd, data: true},
		{name: "no data offset", ref: refNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			file := fragmentedMovie(fragment{seq: 1, samples: 3, tfdt: -1, ref: tt.ref})
			rd, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
			require.NoError(t, err)

			pkts := readAll(t, rd)
			require.Len(t, pkts, 3)
			for i, pkt := range pkts {
				assert.Equal(t, uint64(i*1024), pkt.TS)
				assert.Equal(t, uint64(1024), pkt.Dur)
				assert.Len(t, pkt.Data, 4)
				if tt.data {
					assert.Equal(t, bytes.Repeat([]byte{byte(i)}, 4), pkt.Data)
				}
			}
			if !tt.data {
				assert.Equal(t, "moof", string(pkts[1].Data))
			}
		})
	}
}

func TestReader_Gapless(t *testing.T) {
	t.Parallel()

	file := pcmMovie{
		samples: 1000,
		edits:   []edit{{duration: 800, mediaTime: 100}},
	}.build()
	opts := media.DefaultFormatOptions()
	opts.EnableGapless = true
	rd, err := NewReader(seekableStream(file), opts)
	require.NoError(t, err)

	params := rd.Tracks()[0].CodecParams
	assert.Equal(t, uint32(100), params.Delay)
	assert.Equal(t, uint32(100), params.Padding)

	pkts := readAll(t, rd)
	require.Len(t, pkts, 1000)
	assert.Equal(t, uint32(1), pkts[0].TrimStart)
	assert.Equal(t, uint32(1), pkts[99].TrimStart)
	assert.Zero(t, pkts[100].TrimStart)
	assert.Zero(t, pkts[899].TrimEnd)
	assert.Equal(t, uint32(1), pkts[900].TrimEnd)
	assert.Equal(t, uint64(900), pkts[900].TS)
}

func TestReader_Cues(t *testing.T) {
	t.Parallel()

	file := pcmMovie{samples: 10, sidx: true}.build()
	rd, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)

	cues := rd.Cues()
	require.Len(t, cues, 2)
	assert.Equal(t, uint64(0), cues[0].StartTS)
	assert.Equal(t, uint64(5), cues[1].StartTS)
	assert.Equal(t, uint32(1), cues[1].Index)
}

func TestReader_Metadata(t *testing.T) {
	t.Parallel()

	udta := func(w *audiotest.BoxWriter) {
		w.StartBox("udta").StartFullBox("meta", 0, 0)
		w.StartFullBox("hdlr", 0, 0).U32(0).Text("mdir").Zeros(12).U8(0).EndBox()
		w.StartBox("ilst")
		w.StartBox("\xa9nam").StartBox("data").U32(dataUTF8).U32(0).Text("Title").EndBox().EndBox()
		w.StartBox("trkn").StartBox("data").U32(dataImplicit).U32(0).U16(0).U16(3).U16(10).U16(0).EndBox().EndBox()
		w.StartBox("----")
		w.StartFullBox("mean", 0, 0).Text("com.apple.iTunes").EndBox()
		w.StartFullBox("name", 0, 0).Text("MOOD").EndBox()
		w.StartBox("data").U32(dataUTF8).U32(0).Text("calm").EndBox()
		w.EndBox()
		w.StartBox("covr").StartBox("data").U32(dataPNG).U32(0).Raw([]byte{0x89, 'P', 'N', 'G'}).EndBox().EndBox()
		w.EndBox().EndBox().EndBox()
	}

	file := pcmMovie{samples: 2, udta: udta}.build()
	rd, err := NewReader(seekableStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)

	rev := rd.Metadata().Current()
	require.NotNil(t, rev)
	assert.Equal(t, []media.Tag{
		{Key: "©nam", StdKey: media.TagTrackTitle, Value: "Title"},
		{Key: "trkn", StdKey: media.TagTrackNumber, Value: "3/10"},
		{Key: "----:com.apple.iTunes:MOOD", Value: "calm"},
	}, rev.Tags)
	require.Len(t, rev.Visuals, 1)
	assert.Equal(t, "image/png", rev.Visuals[0].MediaType)
	assert.Equal(t, "front cover", rev.Visuals[0].Usage)
}

func TestReader_MetadataLimit(t *testing.T) {
	t.Parallel()

	udta := func(w *audiotest.BoxWriter) {
		w.StartBox("udta").StartFullBox("meta", 0, 0).StartBox("ilst")
		w.StartBox("\xa9cmt").StartBox("data").U32(dataUTF8).U32(0).Text("a long comment").EndBox().EndBox()
		w.EndBox().EndBox().EndBox()
	}

	opts := media.DefaultFormatOptions()
	opts.Metadata.LimitMetadataBytes = 4
	rd, err := NewReader(seekableStream(pcmMovie{samples: 2, udta: udta}.build()), opts)
	require.NoError(t, err)
	assert.Nil(t, rd.Metadata().Current())
}

func TestDescriptor(t *testing.T) {
	t.Parallel()

	d := Descriptor()
	assert.Equal(t, "isomp4", d.ShortName)
	assert.Contains(t, d.Extensions, "m4a")

	file := pcmMovie{samples: 2}.build()
	assert.Equal(t, uint8(50), d.Score(file))
	assert.Zero(t, d.Score([]byte("RIFF....WAVE")))

	fr, err := d.Inst(seekableStream(file), media.DefaultFormatOptions())
	require.NoError(t, err)
	assert.Len(t, fr.Tracks(), 1)
}

func TestReader_TimeBase(t *testing.T) {
	t.Parallel()

	rd, err := NewReader(seekableStream(pcmMovie{samples: 44100}.build()), media.DefaultFormatOptions())
	require.NoError(t, err)

	tb := rd.Tracks()[0].CodecParams.TimeBase
	assert.Equal(t, time.Second, tb.CalcTime(rd.Tracks()[0].NFrames()))
}

func TestReader_LimitSamples(t *testing.T) {
	t.Parallel()

	opts := media.DefaultFormatOptions()
	opts.MaxSamples = 4
	_, err := NewReader(seekableStream(pcmMovie{samples: 10}.build()), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, media.ErrLimit))
}
