// SPDX-License-Identifier: EPL-2.0

package pcmbridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// The test container is "FAKE", a little-endian u32 frame count, a channel
// count byte, then 16-bit little-endian samples. Frame i of channel c holds
// the value i*10+c.
func fakeFile(frames, channels int) []byte {
	b := []byte("FAKE")
	b = binary.LittleEndian.AppendUint32(b, uint32(frames))
	b = append(b, byte(channels))
	for i := range frames {
		for c := range channels {
			b = binary.LittleEndian.AppendUint16(b, uint16(i*10+c))
		}
	}

	return b
}

type fakeSource struct {
	r     io.Reader
	frame int
	buf   []byte
}

func (s *fakeSource) ReadFrames(n int) ([]byte, error) {
	need := n * s.frame
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	k, err := io.ReadFull(s.r, s.buf[:need])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	return s.buf[:k-k%s.frame], err
}

// seekingSource jumps by seeking the underlying reader.
type seekingSource struct {
	fakeSource
	rs    io.ReadSeeker
	seeks int
}

func (s *seekingSource) SeekFrame(frame uint64) error {
	s.seeks++
	_, err := s.rs.Seek(9+int64(frame)*int64(s.frame), io.SeekStart)
	return err
}

type opened struct {
	count int
	seek  bool
}

func (o *opened) open(r io.Reader) (*Stream, error) {
	o.count++

	var hdr [9]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[:4]) != "FAKE" {
		return nil, errors.New("bad magic")
	}
	frames := binary.LittleEndian.Uint32(hdr[4:])
	channels, _ := audio.ChannelsFromCount(int(hdr[8]))

	src := fakeSource{r: r, frame: 2 * int(hdr[8])}
	st := &Stream{
		Params: media.NewCodecParameters(media.CodecPCMS16LE).
			WithSampleRate(1000).
			WithChannels(channels).
			WithNFrames(uint64(frames)),
		Tags: []media.Tag{{Key: "TITLE", StdKey: media.TagTrackTitle, Value: "fake"}},
	}
	if rs, ok := r.(io.ReadSeeker); ok && o.seek {
		st.Source = &seekingSource{fakeSource: src, rs: rs}
	} else {
		st.Source = &src
	}

	return st, nil
}

func (o *opened) config() Config {
	return Config{
		Name:     "fake",
		Sniff:    func(head []byte) bool { return bytes.HasPrefix(head, []byte("FAKE")) },
		SniffLen: 4,
		Open:     o.open,
	}
}

func seekable(b []byte) *stream.MediaSourceStream {
	return stream.NewMediaSourceStream(stream.NewBytesSource(b), stream.DefaultMediaSourceStreamOptions())
}

func nonSeekable(b []byte) *stream.MediaSourceStream {
	opts := stream.MediaSourceStreamOptions{BufferLen: stream.MinBufferLen}
	return stream.NewMediaSourceStream(stream.NewReadOnlySource(bytes.NewReader(b)), opts)
}

func firstSample(t *testing.T, pkt *media.Packet) uint16 {
	t.Helper()
	require.GreaterOrEqual(t, len(pkt.Data), 2)
	return binary.LittleEndian.Uint16(pkt.Data)
}

func TestReader_Packets(t *testing.T) {
	t.Parallel()

	o := &opened{}
	rd, err := NewReader(seekable(fakeFile(5000, 2)), media.DefaultFormatOptions(), o.config())
	require.NoError(t, err)

	require.Len(t, rd.Tracks(), 1)
	track := rd.DefaultTrack()
	assert.Equal(t, uint32(0), track.ID)
	assert.Equal(t, media.CodecPCMS16LE, track.CodecParams.Codec)
	assert.Equal(t, media.TimeBaseFromRate(1000), track.CodecParams.TimeBase)
	assert.Equal(t, uint64(MaxPacketFrames), track.CodecParams.MaxFramesPerPacket)
	assert.Equal(t, uint64(5000), track.NFrames())
	assert.Nil(t, rd.Cues())

	rev := rd.Metadata().Current()
	require.NotNil(t, rev)
	assert.Equal(t, "fake", rev.Tags[0].Value)

	pkt, err := rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pkt.TS)
	assert.Equal(t, uint64(MaxPacketFrames), pkt.Dur)
	assert.Len(t, pkt.Data, MaxPacketFrames*4)

	pkt, err = rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint64(MaxPacketFrames), pkt.TS)
	assert.Equal(t, uint64(5000-MaxPacketFrames), pkt.Dur)
	assert.Equal(t, uint16(MaxPacketFrames*10), firstSample(t, pkt))

	_, err = rd.NextPacket()
	assert.ErrorIs(t, err, media.ErrEndOfFile)
}

func TestReader_SniffRejects(t *testing.T) {
	t.Parallel()

	o := &opened{}
	mss := seekable([]byte("RIFF....WAVE"))
	_, err := NewReader(mss, media.DefaultFormatOptions(), o.config())
	assert.ErrorIs(t, err, media.ErrUnsupported)
	assert.Zero(t, mss.Pos())
	assert.Zero(t, o.count)
}

func TestReader_OpenErrorIsDecodeError(t *testing.T) {
	t.Parallel()

	o := &opened{}
	_, err := NewReader(seekable([]byte("FAKE")), media.DefaultFormatOptions(), o.config())
	assert.ErrorIs(t, err, media.ErrDecode)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReader_RejectsNonPCM(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Name: "fake",
		Open: func(io.Reader) (*Stream, error) {
			return &Stream{Params: media.NewCodecParameters(media.CodecMP3)}, nil
		},
	}
	_, err := NewReader(seekable(fakeFile(1, 1)), media.DefaultFormatOptions(), cfg)
	assert.ErrorIs(t, err, media.ErrUnsupported)
}

func TestReader_SeekBackwardsReopens(t *testing.T) {
	t.Parallel()

	o := &opened{}
	rd, err := NewReader(seekable(fakeFile(5000, 1)), media.DefaultFormatOptions(), o.config())
	require.NoError(t, err)

	for range 2 {
		_, err = rd.NextPacket()
		require.NoError(t, err)
	}

	seeked, err := rd.Seek(media.SeekAccurate, media.SeekToTimestamp(100, 0))
	require.NoError(t, err)
	assert.Equal(t, media.SeekedTo{TrackID: 0, RequiredTS: 100, ActualTS: 100}, seeked)
	assert.Equal(t, 2, o.count)

	pkt, err := rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), pkt.TS)
	assert.Equal(t, uint16(1000), firstSample(t, pkt))
}

func TestReader_SeekForwardDiscards(t *testing.T) {
	t.Parallel()

	o := &opened{}
	rd, err := NewReader(nonSeekable(fakeFile(3000, 1)), media.DefaultFormatOptions(), o.config())
	require.NoError(t, err)

	seeked, err := rd.Seek(media.SeekCoarse, media.SeekToTime(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), seeked.ActualTS)
	assert.Equal(t, 1, o.count)

	pkt, err := rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), pkt.TS)
	assert.Equal(t, uint16(20000), firstSample(t, pkt))

	_, err = rd.Seek(media.SeekCoarse, media.SeekToTimestamp(10, 0))
	assert.ErrorIs(t, err, media.SeekError(media.SeekForwardOnly))
}

func TestReader_FrameSeeker(t *testing.T) {
	t.Parallel()

	o := &opened{seek: true}
	rd, err := NewReader(seekable(fakeFile(100, 2)), media.DefaultFormatOptions(), o.config())
	require.NoError(t, err)

	_, err = rd.Seek(media.SeekAccurate, media.SeekToTimestamp(42, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, rd.src.(*seekingSource).seeks)
	assert.Equal(t, 1, o.count)

	pkt, err := rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), pkt.TS)
	assert.Equal(t, uint16(420), firstSample(t, pkt))
}

func TestReader_SeekErrors(t *testing.T) {
	t.Parallel()

	o := &opened{}
	rd, err := NewReader(seekable(fakeFile(10, 1)), media.DefaultFormatOptions(), o.config())
	require.NoError(t, err)

	_, err = rd.Seek(media.SeekAccurate, media.SeekToTimestamp(10, 0))
	assert.ErrorIs(t, err, media.SeekError(media.SeekOutOfRange))

	_, err = rd.Seek(media.SeekAccurate, media.SeekToTimestamp(1, 3))
	assert.ErrorIs(t, err, media.SeekError(media.SeekInvalidTrack))
}

func TestReader_NeedsSeekerBuffersInput(t *testing.T) {
	t.Parallel()

	o := &opened{}
	cfg := o.config()
	cfg.NeedsSeeker = true
	rd, err := NewReader(nonSeekable(fakeFile(50, 1)), media.DefaultFormatOptions(), cfg)
	require.NoError(t, err)

	_, err = rd.NextPacket()
	require.NoError(t, err)

	// The buffered copy can be reopened, so backwards seeks work.
	_, err = rd.Seek(media.SeekAccurate, media.SeekToTimestamp(5, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, o.count)

	pkt, err := rd.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint16(50), firstSample(t, pkt))
}

func TestReader_TagLimit(t *testing.T) {
	t.Parallel()

	opts := media.DefaultFormatOptions()
	opts.Metadata.LimitMetadataBytes = 3
	o := &opened{}
	rd, err := NewReader(seekable(fakeFile(1, 1)), opts, o.config())
	require.NoError(t, err)
	assert.Nil(t, rd.Metadata().Current())
}

func TestSection(t *testing.T) {
	t.Parallel()

	data := append(bytes.Repeat([]byte{0xee}, 100), fakeFile(4, 1)...)
	mss := seekable(data)
	require.NoError(t, mss.IgnoreBytes(100))

	s := NewSection(mss)
	head := make([]byte, 4)
	_, err := io.ReadFull(s, head)
	require.NoError(t, err)
	assert.Equal(t, "FAKE", string(head))

	pos, err := s.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	pos, err = s.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(15), pos)

	pos, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Zero(t, pos)
	_, err = io.ReadFull(s, head)
	require.NoError(t, err)
	assert.Equal(t, "FAKE", string(head))

	_, err = s.Seek(-10, io.SeekCurrent)
	assert.Error(t, err)
	assert.Equal(t, uint64(100), mss.Pos())
}
