// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/mediakit/checksum"
	"github.com/ik5/mediakit/media"
)

// trickleReader returns at most n bytes per Read.
type trickleReader struct {
	r io.Reader
	n int
}

func (t *trickleReader) Read(p []byte) (int, error) {
	if len(p) > t.n {
		p = p[:t.n]
	}
	return t.r.Read(p)
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i/251)
	}
	return b
}

func newNonSeekable(data []byte, chunk int) *MediaSourceStream {
	src := NewReadOnlySource(&trickleReader{r: bytes.NewReader(data), n: chunk})
	return NewMediaSourceStream(src, DefaultMediaSourceStreamOptions())
}

func TestMediaSourceStream_ReadAcrossRefills(t *testing.T) {
	t.Parallel()

	data := pattern(300_000)
	ms := newNonSeekable(data, 7000)

	got := make([]byte, 0, len(data))
	buf := make([]byte, 1013)
	for {
		n, err := ms.Read(buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v, want nil", err)
		}
		if ms.Pos() != uint64(len(got)) {
			t.Fatalf("Pos() = %d, want %d", ms.Pos(), len(got))
		}
	}

	if !bytes.Equal(got, data) {
		t.Error("Read() data mismatch")
	}
}

func TestMediaSourceStream_Scalars(t *testing.T) {
	t.Parallel()

	data := []byte{
		0x01,
		0x01, 0x02,
		0x01, 0x02, 0x03,
		0x01, 0x02, 0x03, 0x04,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x01, 0x02,
		0x01, 0x02, 0x03, 0x04,
		'f', 't', 'y', 'p',
		0xff, 0xff, 0xff, 0xfe,
	}
	ms := NewMediaSourceStream(NewBytesSource(data), DefaultMediaSourceStreamOptions())

	u8, _ := ms.ReadU8()
	u16, _ := ms.ReadBeU16()
	u24, _ := ms.ReadBeU24()
	u32, _ := ms.ReadBeU32()
	u64, _ := ms.ReadBeU64()
	le16, _ := ms.ReadU16()
	le32, _ := ms.ReadU32()
	quad, _ := ms.ReadQuadBytes()
	i32, err := ms.ReadBeI32()
	if err != nil {
		t.Fatalf("ReadBeI32() error = %v, want nil", err)
	}

	if u8 != 1 || u16 != 0x0102 || u24 != 0x010203 || u32 != 0x01020304 || u64 != 0x0102030405060708 {
		t.Errorf("big endian reads = %x %x %x %x %x", u8, u16, u24, u32, u64)
	}
	if le16 != 0x0201 || le32 != 0x04030201 {
		t.Errorf("little endian reads = %x %x", le16, le32)
	}
	if string(quad[:]) != "ftyp" {
		t.Errorf("ReadQuadBytes() = %q, want ftyp", quad)
	}
	if i32 != -2 {
		t.Errorf("ReadBeI32() = %d, want -2", i32)
	}
	if ms.Pos() != uint64(len(data)) {
		t.Errorf("Pos() = %d, want %d", ms.Pos(), len(data))
	}

	if _, err := ms.ReadU8(); !errors.Is(err, media.ErrEndOfFile) {
		t.Errorf("ReadU8() at end error = %v, want end of file", err)
	}
}

func TestMediaSourceStream_PartialReadIsIOError(t *testing.T) {
	t.Parallel()

	ms := newNonSeekable([]byte{1, 2}, 1)
	_, err := ms.ReadBeU32()
	if !media.IsKind(err, media.KindIO) {
		t.Errorf("ReadBeU32() error = %v, want io error", err)
	}
}

func TestMediaSourceStream_SeekNonSeekable(t *testing.T) {
	t.Parallel()

	data := pattern(200_000)
	ms := newNonSeekable(data, 4096)

	if err := ms.IgnoreBytes(1000); err != nil {
		t.Fatalf("IgnoreBytes() error = %v, want nil", err)
	}

	// Back inside the buffer.
	if pos, err := ms.Seek(10, io.SeekStart); err != nil || pos != 10 {
		t.Fatalf("Seek(10) = %d, %v, want 10, nil", pos, err)
	}
	b, _ := ms.ReadU8()
	if b != data[10] {
		t.Errorf("ReadU8() after seek = %x, want %x", b, data[10])
	}

	// Forward past the buffer is served by skipping.
	if pos, err := ms.Seek(150_000, io.SeekStart); err != nil || pos != 150_000 {
		t.Fatalf("Seek(150000) = %d, %v, want 150000, nil", pos, err)
	}
	b, _ = ms.ReadU8()
	if b != data[150_000] {
		t.Errorf("ReadU8() after forward seek = %x, want %x", b, data[150_000])
	}

	// Backwards past the buffer cannot be served.
	if _, err := ms.Seek(0, io.SeekStart); !errors.Is(err, media.ErrUnsupported) {
		t.Errorf("Seek(0) error = %v, want unsupported", err)
	}
	if _, err := ms.Seek(0, io.SeekEnd); !errors.Is(err, media.ErrUnsupported) {
		t.Errorf("Seek(end) error = %v, want unsupported", err)
	}
}

func TestMediaSourceStream_SeekSeekable(t *testing.T) {
	t.Parallel()

	data := pattern(500_000)
	ms := NewMediaSourceStream(NewBytesSource(data), DefaultMediaSourceStreamOptions())

	for _, target := range []int64{400_000, 3, 250_000, 499_999} {
		pos, err := ms.Seek(target, io.SeekStart)
		if err != nil || pos != target {
			t.Fatalf("Seek(%d) = %d, %v", target, pos, err)
		}
		b, err := ms.ReadU8()
		if err != nil || b != data[target] {
			t.Errorf("ReadU8() at %d = %x, %v, want %x", target, b, err, data[target])
		}
	}

	pos, err := ms.Seek(-10, io.SeekEnd)
	if err != nil || pos != 499_990 {
		t.Errorf("Seek(-10, end) = %d, %v", pos, err)
	}

	if err := ms.IgnoreBytes(20); !errors.Is(err, media.ErrEndOfFile) {
		t.Errorf("IgnoreBytes() past end error = %v, want end of file", err)
	}
}

func TestMediaSourceStream_MarkRewind(t *testing.T) {
	t.Parallel()

	data := pattern(100_000)
	ms := newNonSeekable(data, 1000)

	mark := ms.Mark()
	head, err := ms.ReadBoxedSliceExact(12_000)
	if err != nil {
		t.Fatalf("ReadBoxedSliceExact() error = %v, want nil", err)
	}
	if err := ms.RewindTo(mark); err != nil {
		t.Fatalf("RewindTo() error = %v, want nil", err)
	}
	again, _ := ms.ReadBoxedSliceExact(12_000)
	if !bytes.Equal(head, again) {
		t.Error("re-read after RewindTo differs")
	}

	if err := ms.IgnoreBytes(10_000); err != nil {
		t.Fatalf("IgnoreBytes() error = %v, want nil", err)
	}
	err = ms.RewindTo(mark)
	if !errors.Is(err, media.ErrLimit) {
		t.Errorf("RewindTo() beyond bound error = %v, want limit", err)
	}
	if ms.Pos() != 22_000 {
		t.Errorf("Pos() after failed rewind = %d, want 22000", ms.Pos())
	}
}

func TestMediaSourceStream_EnsureSeekbackBuffer(t *testing.T) {
	t.Parallel()

	data := pattern(300_000)
	ms := newNonSeekable(data, 5000)
	ms.EnsureSeekbackBuffer(64 << 10)

	if ms.RewindBound() < 64<<10 {
		t.Fatalf("RewindBound() = %d, want >= %d", ms.RewindBound(), 64<<10)
	}

	if err := ms.IgnoreBytes(100); err != nil {
		t.Fatal(err)
	}
	mark := ms.Mark()
	if err := ms.IgnoreBytes(64 << 10); err != nil {
		t.Fatal(err)
	}
	if err := ms.RewindTo(mark); err != nil {
		t.Fatalf("RewindTo() error = %v, want nil", err)
	}
	b, _ := ms.ReadU8()
	if b != data[100] {
		t.Errorf("ReadU8() after rewind = %x, want %x", b, data[100])
	}
}

func TestMediaSourceStream_SeekBuffered(t *testing.T) {
	t.Parallel()

	ms := newNonSeekable(pattern(5000), 5000)
	_ = ms.IgnoreBytes(100)

	if got := ms.SeekBufferedRel(-50); got != 50 {
		t.Errorf("SeekBufferedRel(-50) = %d, want 50", got)
	}
	if got := ms.SeekBufferedRel(-500); got != 0 {
		t.Errorf("SeekBufferedRel(-500) = %d, want 0", got)
	}
	if got := ms.SeekBuffered(1 << 20); got != uint64(ms.ReadBufferLen()+ms.UnreadBufferLen()) {
		t.Errorf("SeekBuffered() clamped to %d", got)
	}
}

func TestNormalizeBufferLen(t *testing.T) {
	t.Parallel()

	tests := map[int]int{
		0:         MinBufferLen,
		1 << 10:   MinBufferLen,
		64 << 10:  64 << 10,
		100 << 10: 128 << 10,
	}
	for in, want := range tests {
		if got := normalizeBufferLen(in); got != want {
			t.Errorf("normalizeBufferLen(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestScopedStream(t *testing.T) {
	t.Parallel()

	ms := NewMediaSourceStream(NewBytesSource(pattern(100)), DefaultMediaSourceStreamOptions())
	_ = ms.IgnoreBytes(10)

	s := ms.ScopedRead(8)
	if _, err := s.ReadBeU32(); err != nil {
		t.Fatalf("ReadBeU32() error = %v, want nil", err)
	}
	if s.Remaining() != 4 {
		t.Errorf("Remaining() = %d, want 4", s.Remaining())
	}
	if _, err := s.ReadBeU64(); !media.IsKind(err, media.KindIO) {
		t.Errorf("ReadBeU64() past scope error = %v, want io error", err)
	}
	if ms.Pos() != 14 {
		t.Errorf("inner Pos() = %d, want 14", ms.Pos())
	}

	buf := make([]byte, 10)
	n, err := s.Read(buf)
	if n != 4 || err != nil {
		t.Errorf("Read() = %d, %v, want 4, nil", n, err)
	}
	if _, err := s.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("Read() at scope end error = %v, want io.EOF", err)
	}
	if _, err := s.ReadU8(); !errors.Is(err, media.ErrEndOfFile) {
		t.Errorf("ReadU8() at scope end error = %v, want end of file", err)
	}
}

func TestScopedStream_Ignore(t *testing.T) {
	t.Parallel()

	ms := NewMediaSourceStream(NewBytesSource(pattern(100)), DefaultMediaSourceStreamOptions())
	s := ms.ScopedRead(40)
	_, _ = s.ReadU8()
	if err := s.Ignore(); err != nil {
		t.Fatalf("Ignore() error = %v, want nil", err)
	}
	if ms.Pos() != 40 {
		t.Errorf("Pos() = %d, want 40", ms.Pos())
	}
}

func TestMonitorStream_MatchesOutOfBand(t *testing.T) {
	t.Parallel()

	data := pattern(10_000)
	ms := newNonSeekable(data, 333)
	crc := checksum.NewCrc32(0)
	mon := NewMonitorStream(ms, crc)

	_, _ = mon.ReadBeU32()
	_, _ = mon.ReadU16()
	if err := mon.IgnoreBytes(5000); err != nil {
		t.Fatal(err)
	}
	rest, err := mon.ReadBoxedSliceExact(len(data) - 5006)
	if err != nil {
		t.Fatalf("ReadBoxedSliceExact() error = %v, want nil", err)
	}
	if len(rest) != len(data)-5006 {
		t.Fatalf("len = %d", len(rest))
	}

	want := checksum.NewCrc32(0)
	want.Process(data)
	if crc.Sum() != want.Sum() {
		t.Errorf("monitored crc = 0x%08X, want 0x%08X", crc.Sum(), want.Sum())
	}
}
