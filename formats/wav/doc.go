// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF WAVE files with integer PCM samples.
//
// # Reading
//
// NewReader returns a media.FormatReader with a single track. Packets carry
// the samples exactly as stored: unsigned 8-bit, or signed little-endian 16,
// 24 and 32-bit. Decode them with the pcm codec:
//
//	rd, err := wav.NewReader(mss, media.DefaultFormatOptions())
//	if err != nil {
//	    // Handle error
//	}
//	pkt, err := rd.NextPacket()
//
// Parsing is done by github.com/go-audio/wav, which needs to seek. A stream
// that cannot seek is read into memory first. INFO tags found in a LIST
// chunk before the data chunk become the first metadata revision.
//
// # Writing
//
// Writer encodes audio.Buffer values at 8, 16, 24 or 32 bits. WriteWAV16
// writes a whole file of interleaved 16-bit samples in one call. Both need
// an io.WriteSeeker because the chunk sizes are patched on close.
//
// # Errors
//
// Errors are media errors. Files with the wrong signature fail with an
// unsupported error so that a probe can try another reader; a WAVE file that
// cannot be parsed fails with a malformed stream error.
package wav
