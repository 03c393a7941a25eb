// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG audio layer III packets with go-mp3.
//
// Each packet must hold exactly one frame, which is how containers such as
// MP4 store MP3 audio. The decoder keeps the go-mp3 state between packets so
// the bit reservoir carries over from frame to frame. Output is 16-bit
// precision, stereo, or folded to mono when the track is mono.
package mp3
