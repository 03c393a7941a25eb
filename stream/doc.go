// SPDX-License-Identifier: EPL-2.0

// Package stream buffers media sources for container readers.
//
// MediaSourceStream wraps a media.MediaSource in a ring buffer. It tracks the
// absolute position of the next byte, serves seeks that land inside the
// buffer without touching the source, and keeps a quarter of the buffer
// behind the read position so that probing can look ahead and rewind on
// sources that cannot seek:
//
//	mss := stream.NewMediaSourceStream(stream.NewReadOnlySource(conn), stream.DefaultMediaSourceStreamOptions())
//	mark := mss.Mark()
//	header, err := mss.ReadBoxedSliceExact(12)
//	...
//	err = mss.RewindTo(mark)
//
// ScopedStream bounds a reader to a byte budget and MonitorStream feeds every
// consumed byte to a checksum.
package stream
