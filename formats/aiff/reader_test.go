// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	sampleRate   int
	channels     int
	samples      []int
	offset       int
	returnErrors bool
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{
		SampleRate:  m.sampleRate,
		NumChannels: m.channels,
	}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.returnErrors {
		return 0, io.ErrUnexpectedEOF
	}

	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n

	return n, nil
}

// rate8000 is 8000 as an 80-bit IEEE extended float.
var rate8000 = []byte{0x40, 0x0b, 0xfa, 0, 0, 0, 0, 0, 0, 0}

func createAIFFFile(channels int, samples []int16) []byte {
	comm := new(bytes.Buffer)
	binary.Write(comm, binary.BigEndian, uint16(channels))
	binary.Write(comm, binary.BigEndian, uint32(len(samples)/channels))
	binary.Write(comm, binary.BigEndian, uint16(16))
	comm.Write(rate8000)

	ssnd := new(bytes.Buffer)
	binary.Write(ssnd, binary.BigEndian, uint32(0)) // offset
	binary.Write(ssnd, binary.BigEndian, uint32(0)) // block size
	for _, s := range samples {
		binary.Write(ssnd, binary.BigEndian, s)
	}

	body := new(bytes.Buffer)
	body.WriteString("AIFF")
	body.WriteString("COMM")
	binary.Write(body, binary.BigEndian, uint32(comm.Len()))
	body.Write(comm.Bytes())
	body.WriteString("SSND")
	binary.Write(body, binary.BigEndian, uint32(ssnd.Len()))
	body.Write(ssnd.Bytes())

	out := new(bytes.Buffer)
	out.WriteString("FORM")
	binary.Write(out, binary.BigEndian, uint32(body.Len()))
	out.Write(body.Bytes())

	return out.Bytes()
}

func seekable(b []byte) *stream.MediaSourceStream {
	return stream.NewMediaSourceStream(stream.NewBytesSource(b), stream.DefaultMediaSourceStreamOptions())
}

func TestReader_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := NewReader(seekable([]byte("This is not AIFF data")), media.DefaultFormatOptions())
	if !errors.Is(err, media.ErrUnsupported) {
		t.Errorf("NewReader() error = %v, want unsupported", err)
	}
}

func TestReader_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := NewReader(seekable(nil), media.DefaultFormatOptions())
	if err == nil {
		t.Error("NewReader() error = nil, want error for empty input")
	}
}

func TestReader_Decodes16Bit(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 16384, -16384, 32767, -32768, 1}
	rd, err := NewReader(seekable(createAIFFFile(2, samples)), media.DefaultFormatOptions())
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}

	p := rd.DefaultTrack().CodecParams
	if p.Codec != media.CodecPCMS16LE {
		t.Errorf("codec = %v, want pcm_s16le", p.Codec)
	}
	if p.SampleRate != 8000 {
		t.Errorf("sample rate = %d, want 8000", p.SampleRate)
	}
	if p.Channels.Count() != 2 {
		t.Errorf("channels = %v, want 2", p.Channels)
	}
	if p.NFrames != 3 {
		t.Errorf("frames = %d, want 3", p.NFrames)
	}

	pkt, err := rd.NextPacket()
	if err != nil {
		t.Fatalf("NextPacket() error = %v", err)
	}
	for i, want := range samples {
		if got := int16(binary.LittleEndian.Uint16(pkt.Data[2*i:])); got != want {
			t.Errorf("sample[%d] = %d, want %d", i, got, want)
		}
	}
}

func TestNewStream_Mock(t *testing.T) {
	t.Parallel()

	dec := &mockAiffReader{sampleRate: 44100, channels: 1, samples: []int{127, -128, 5}}
	st, err := newStream(dec, 8, 3)
	if err != nil {
		t.Fatalf("newStream() error = %v", err)
	}

	if st.Params.Codec != media.CodecPCMS8 {
		t.Errorf("codec = %v, want pcm_s8", st.Params.Codec)
	}
	if st.Params.Channels != audio.FrontLeft {
		t.Errorf("channels = %v, want FL", st.Params.Channels)
	}

	data, err := st.Source.ReadFrames(16)
	if err != nil {
		t.Fatalf("ReadFrames() error = %v", err)
	}
	if !bytes.Equal(data, []byte{0x7f, 0x80, 0x05}) {
		t.Errorf("ReadFrames() = %x, want 7f8005", data)
	}

	if _, err := st.Source.ReadFrames(16); !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrames() error = %v, want EOF", err)
	}
}

func TestNewStream_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dec  *mockAiffReader
		bits int
		want error
	}{
		{"bit depth", &mockAiffReader{sampleRate: 8000, channels: 1}, 20, ErrUnsupportedBitDepth},
		{"no channels", &mockAiffReader{sampleRate: 8000}, 16, ErrUnsupportedAiffLayout},
		{"no rate", &mockAiffReader{channels: 2}, 16, ErrNotAiffFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := newStream(tt.dec, tt.bits, 0); !errors.Is(err, tt.want) {
				t.Errorf("newStream() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewStream_ReadError(t *testing.T) {
	t.Parallel()

	st, err := newStream(&mockAiffReader{sampleRate: 8000, channels: 1, returnErrors: true}, 16, 0)
	if err != nil {
		t.Fatalf("newStream() error = %v", err)
	}
	if _, err := st.Source.ReadFrames(4); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadFrames() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestErrors_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		kind media.ErrorKind
	}{
		{ErrNotAiffFile, media.KindDecode},
		{ErrNotSeekable, media.KindUnsupported},
		{ErrUnsupportedBitDepth, media.KindUnsupported},
		{ErrUnsupportedAiffLayout, media.KindUnsupported},
	}

	messages := make(map[string]bool)
	for _, tt := range tests {
		if got := media.KindOf(tt.err); got != tt.kind {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.kind)
		}
		if messages[tt.err.Error()] {
			t.Errorf("duplicate error message: %s", tt.err)
		}
		messages[tt.err.Error()] = true
	}
}

func BenchmarkReader_NextPacket(b *testing.B) {
	file := createAIFFFile(2, make([]int16, 16000))

	b.ResetTimer()
	for b.Loop() {
		rd, err := NewReader(seekable(file), media.DefaultFormatOptions())
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := rd.NextPacket(); err != nil {
				break
			}
		}
	}
}
