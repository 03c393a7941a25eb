// SPDX-License-Identifier: EPL-2.0

// Package pcm decodes uncompressed PCM packets.
//
// Every PCM codec type is supported: unsigned and signed 8-bit, signed 16,
// 24 and 32-bit integers, and 32 and 64-bit floats, each in little and big
// endian order where that applies. Samples are scaled to float32 in [-1, 1]
// and written to a planar audio.Buffer:
//
//	dec, err := pcm.NewDecoder(&track.CodecParams, media.DefaultDecoderOptions())
//	buf, err := dec.Decode(pkt)
//	left := buf.Chan(0)
//
// Register the decoders with a probe.CodecRegistry through Descriptors.
package pcm
