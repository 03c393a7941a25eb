// SPDX-License-Identifier: EPL-2.0

// Package pcmbridge turns whole-file audio decoders into single track
// format readers that emit PCM packets. The wav, aiff, mp3 and Ogg Vorbis
// readers are built on it.
package pcmbridge
