// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"errors"
	"io"
	"math/bits"

	"github.com/ik5/mediakit/media"
)

const (
	// DefaultBufferLen is the default ring buffer size.
	DefaultBufferLen = 64 << 10
	// MinBufferLen is the smallest accepted ring buffer size.
	MinBufferLen = 32 << 10

	minBlockLen = 1 << 10
	maxBlockLen = 32 << 10

	maxEmptyReads = 100
)

type MediaSourceStreamOptions struct {
	// BufferLen must be a power of two of at least MinBufferLen. Other
	// values are rounded up.
	BufferLen int
}

func DefaultMediaSourceStreamOptions() MediaSourceStreamOptions {
	return MediaSourceStreamOptions{BufferLen: DefaultBufferLen}
}

// Mark is a position returned by MediaSourceStream.Mark.
type Mark struct {
	pos uint64
}

func (m Mark) Pos() uint64 { return m.pos }

// MediaSourceStream buffers a media.MediaSource in a ring buffer. Bytes behind
// the read position stay available for cheap rewinds, up to a quarter of the
// buffer length.
//
// Positions are absolute: the byte at position p lives at ring[p % len(ring)].
type MediaSourceStream struct {
	scalars

	src  media.MediaSource
	ring []byte
	mask uint64

	// start <= pos <= end; [start, end) is buffered.
	start uint64
	pos   uint64
	end   uint64

	blockLen int
	maxBlock int
	err      error
}

// NewMediaSourceStream wraps src.
func NewMediaSourceStream(src media.MediaSource, opts MediaSourceStreamOptions) *MediaSourceStream {
	n := normalizeBufferLen(opts.BufferLen)

	ms := &MediaSourceStream{
		src:      src,
		ring:     make([]byte, n),
		mask:     uint64(n - 1),
		blockLen: minBlockLen,
		maxBlock: min(maxBlockLen, n/2),
	}
	ms.scalars.src = ms

	return ms
}

func normalizeBufferLen(n int) int {
	if n < MinBufferLen {
		return MinBufferLen
	}
	if n&(n-1) != 0 {
		return 1 << bits.Len(uint(n))
	}

	return n
}

// BufferLen is the size of the ring buffer.
func (ms *MediaSourceStream) BufferLen() int { return len(ms.ring) }

// RewindBound is the distance RewindTo always honours.
func (ms *MediaSourceStream) RewindBound() uint64 { return uint64(len(ms.ring) / 4) }

func (ms *MediaSourceStream) Pos() uint64 { return ms.pos }

func (ms *MediaSourceStream) IsSeekable() bool { return ms.src.IsSeekable() }

func (ms *MediaSourceStream) ByteLen() (uint64, bool) { return ms.src.ByteLen() }

// ReadBufferLen is the number of buffered bytes behind the read position.
func (ms *MediaSourceStream) ReadBufferLen() int { return int(ms.pos - ms.start) }

// UnreadBufferLen is the number of buffered bytes ahead of the read position.
func (ms *MediaSourceStream) UnreadBufferLen() int { return int(ms.end - ms.pos) }

// fetch reads the next block from the source into the ring. It is only called
// when every buffered byte has been consumed.
func (ms *MediaSourceStream) fetch() error {
	if ms.err != nil {
		return ms.err
	}

	off := ms.end & ms.mask
	n := min(uint64(ms.blockLen), uint64(len(ms.ring))-off)

	var (
		read int
		err  error
	)
	for range maxEmptyReads {
		read, err = ms.src.Read(ms.ring[off : off+n])
		if read > 0 || err != nil {
			break
		}
	}
	if read > 0 {
		ms.end += uint64(read)
		if ms.end-ms.start > uint64(len(ms.ring)) {
			ms.start = ms.end - uint64(len(ms.ring))
		}
		ms.blockLen = min(ms.blockLen*2, ms.maxBlock)
	}
	if err != nil {
		if read > 0 && errors.Is(err, io.EOF) {
			return nil
		}
		if !errors.Is(err, io.EOF) {
			err = media.IOError(err)
		}
		ms.err = err
		return err
	}
	if read == 0 {
		return io.ErrNoProgress
	}

	return nil
}

// Read implements io.Reader and returns io.EOF at the end of the source.
func (ms *MediaSourceStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if ms.pos == ms.end {
		if err := ms.fetch(); err != nil {
			return 0, err
		}
	}

	off := ms.pos & ms.mask
	avail := min(ms.end-ms.pos, uint64(len(ms.ring))-off)
	n := copy(p, ms.ring[off:off+avail])
	ms.pos += uint64(n)

	return n, nil
}

// ReadFull fills p. Reaching the end before any byte is read gives
// media.ErrEndOfFile, a partial read gives an io error.
func (ms *MediaSourceStream) ReadFull(p []byte) error {
	return readFull(ms, p)
}

func readFull(r io.Reader, p []byte) error {
	n, err := io.ReadFull(r, p)
	switch {
	case err == nil:
		return nil
	case n == 0 && errors.Is(err, io.EOF):
		return media.EndOfFile()
	case errors.Is(err, io.ErrUnexpectedEOF):
		return media.IOError(io.ErrUnexpectedEOF)
	default:
		return media.IOError(err)
	}
}

// IgnoreBytes skips n bytes, seeking the source when that is cheaper.
func (ms *MediaSourceStream) IgnoreBytes(n uint64) error {
	buffered := ms.end - ms.pos
	if n <= buffered {
		ms.pos += n
		return nil
	}

	if ms.src.IsSeekable() && n-buffered > uint64(len(ms.ring)) {
		_, err := ms.seekSource(ms.pos + n)
		return err
	}

	ms.pos = ms.end
	n -= buffered
	for n > 0 {
		if err := ms.fetch(); err != nil {
			if errors.Is(err, io.EOF) {
				return media.EndOfFile()
			}
			return err
		}
		step := min(n, ms.end-ms.pos)
		ms.pos += step
		n -= step
	}

	return nil
}

// Seek implements io.Seeker. Targets inside the buffer never touch the
// source. A non-seekable source can still be seeked forward.
func (ms *MediaSourceStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(ms.pos) + offset
	case io.SeekEnd:
		size, ok := ms.src.ByteLen()
		if !ok {
			return int64(ms.pos), media.Unsupported("stream length unknown")
		}
		target = int64(size) + offset
	default:
		return int64(ms.pos), media.Unsupported("invalid seek whence")
	}
	if target < 0 {
		return int64(ms.pos), media.SeekError(media.SeekOutOfRange)
	}

	abs := uint64(target)
	if abs >= ms.start && abs <= ms.end {
		ms.pos = abs
		return target, nil
	}
	if ms.src.IsSeekable() {
		pos, err := ms.seekSource(abs)
		return int64(pos), err
	}
	if abs > ms.end {
		if err := ms.IgnoreBytes(abs - ms.pos); err != nil {
			return int64(ms.pos), err
		}
		return target, nil
	}

	return int64(ms.pos), media.Unsupported("not seekable")
}

func (ms *MediaSourceStream) seekSource(abs uint64) (uint64, error) {
	if abs > uint64(1<<63-1) {
		return ms.pos, media.SeekError(media.SeekOutOfRange)
	}
	got, err := ms.src.Seek(int64(abs), io.SeekStart)
	if err != nil {
		return ms.pos, media.IOError(err)
	}

	ms.start = uint64(got)
	ms.pos = uint64(got)
	ms.end = uint64(got)
	ms.blockLen = minBlockLen
	ms.err = nil

	return ms.pos, nil
}

// SeekBuffered moves within the buffer only, clamping pos to the buffered
// range, and returns the new position.
func (ms *MediaSourceStream) SeekBuffered(pos uint64) uint64 {
	ms.pos = min(max(pos, ms.start), ms.end)
	return ms.pos
}

// SeekBufferedRel is SeekBuffered relative to the current position.
func (ms *MediaSourceStream) SeekBufferedRel(delta int64) uint64 {
	if delta < 0 {
		back := uint64(-delta)
		if back > ms.pos {
			return ms.SeekBuffered(0)
		}
		return ms.SeekBuffered(ms.pos - back)
	}

	return ms.SeekBuffered(ms.pos + uint64(delta))
}

// EnsureSeekbackBuffer grows the ring so that RewindTo honours marks at
// least n bytes behind the read position.
func (ms *MediaSourceStream) EnsureSeekbackBuffer(n int) {
	need := max(n+ms.maxBlock, 4*n)
	if need <= len(ms.ring) {
		return
	}

	size := 1 << bits.Len(uint(need-1))
	ring := make([]byte, size)
	mask := uint64(size - 1)
	for p := ms.start; p < ms.end; p++ {
		ring[p&mask] = ms.ring[p&ms.mask]
	}

	ms.ring = ring
	ms.mask = mask
}

// Mark records the current position for a later RewindTo.
func (ms *MediaSourceStream) Mark() Mark {
	return Mark{pos: ms.pos}
}

// RewindTo returns to m. Rewinding further than RewindBound fails with a
// read-ahead limit error.
func (ms *MediaSourceStream) RewindTo(m Mark) error {
	if m.pos > ms.pos {
		if m.pos > ms.end {
			return media.SeekError(media.SeekOutOfRange)
		}
		ms.pos = m.pos
		return nil
	}

	dist := ms.pos - m.pos
	if dist > ms.RewindBound() || m.pos < ms.start {
		return media.LimitError("read-ahead", dist)
	}
	ms.pos = m.pos

	return nil
}

// ScopedRead returns a view that reports end of stream after limit bytes.
func (ms *MediaSourceStream) ScopedRead(limit uint64) *ScopedStream {
	return NewScopedStream(ms, limit)
}

// IntoInner returns the wrapped source. Buffered bytes are lost.
func (ms *MediaSourceStream) IntoInner() media.MediaSource {
	return ms.src
}

// Close closes the source when it is an io.Closer.
func (ms *MediaSourceStream) Close() error {
	if c, ok := ms.src.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

var _ ByteReader = (*MediaSourceStream)(nil)
