// SPDX-License-Identifier: EPL-2.0

// Package mp3 reads raw MPEG audio layer III files.
//
// Decoding is done by github.com/hajimehoshi/go-mp3, so the reader emits
// PCM packets instead of MP3 frames:
//
//	rd, err := mp3.NewReader(mss, media.DefaultFormatOptions())
//	if err != nil {
//	    // Handle error
//	}
//	pkt, err := rd.NextPacket() // pcm_s16le, 2 channels
//
// # Output Format
//
//   - Sample format: signed 16-bit little-endian
//   - Channels: always 2; mono files are duplicated into both channels
//   - Sample rate: taken from the first frame
//
// An ID3v2 tag at the start of the file is skipped and its contents are not
// reported.
//
// # Seeking
//
// On a seekable stream go-mp3 indexes every frame when the reader opens, so
// the track length is known and a seek decodes only the frame before the
// target. On a forward-only stream the length is unknown and seeking forward
// decodes and drops the frames in between.
package mp3
