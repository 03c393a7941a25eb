// SPDX-License-Identifier: EPL-2.0

// Package aiff reads AIFF and AIFF-C files through github.com/go-audio/aiff.
//
// # Reading
//
// NewReader returns a single track media.FormatReader:
//
//	rd, err := aiff.NewReader(mss, media.DefaultFormatOptions())
//	if err != nil {
//	    // Handle error
//	}
//	pkt, err := rd.NextPacket()
//
// # Output Format
//
// AIFF stores big-endian samples. Packets carry them as signed little-endian
// PCM of the same depth, so the track codec is pcm_s8, pcm_s16le, pcm_s24le
// or pcm_s32le and the pcm codec decodes them.
//
// # AIFF vs. WAV
//
// AIFF is similar to WAV but:
//   - Uses big-endian byte order (WAV uses little-endian)
//   - Stores sample rate as 80-bit float (WAV uses 32-bit int)
//   - Stores 8-bit samples signed (WAV stores them unsigned)
//
// # Limitations
//
// AIFF writing is not supported. The decoder needs to seek, so a stream
// that cannot seek is read into memory first.
package aiff
