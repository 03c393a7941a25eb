// SPDX-License-Identifier: EPL-2.0

// Package vorbis reads Ogg Vorbis files.
//
// This package uses github.com/jfreymuth/oggvorbis to decode the whole
// logical stream, so packets carry PCM rather than Vorbis packets:
//
//	rd, err := vorbis.NewReader(mss, media.DefaultFormatOptions())
//	if err != nil {
//	    // Handle error
//	}
//	pkt, err := rd.NextPacket() // pcm_f32le
//
// # Output Format
//
//   - Sample format: 32-bit float little-endian in [-1.0, 1.0]
//   - Channels: as coded; the mask holds the first n positions
//   - Sample rate: from the identification header
//
// User comments become the first metadata revision. Keys are upper-cased
// and the vendor string is reported under VENDOR.
//
// # Seeking
//
// When the stream is seekable the length is read from the granule position
// of the last page and seeks bisect the pages. Otherwise the length is
// unknown and only forward seeks work.
//
// # Limitations
//
// Only the first logical stream of a chained or multiplexed file is read.
package vorbis
