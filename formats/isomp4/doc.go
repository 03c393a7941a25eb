// SPDX-License-Identifier: EPL-2.0

// Package isomp4 demultiplexes the ISO base media file format and the
// containers built on it: MP4, M4A, M4B and QuickTime MOV.
//
// # Reading
//
// NewReader parses the file type and movie atoms and returns a
// media.FormatReader. Packets are returned in decode order across every
// track, the track whose next sample starts earliest going first:
//
//	mss := stream.NewMediaSourceStream(src, stream.DefaultMediaSourceStreamOptions())
//	rd, err := isomp4.NewReader(mss, media.DefaultFormatOptions())
//	if err != nil {
//	    // Handle error
//	}
//	for {
//	    pkt, err := rd.NextPacket()
//	    if media.IsEndOfStream(err) {
//	        break
//	    }
//	    // Decode pkt
//	}
//
// # Fragmented Files
//
// Movies with an mvex atom are read fragment by fragment. On a seekable
// source the reader indexes every fragment up front when
// FormatOptions.PrebuildSeekIndex is set, otherwise fragments are loaded as
// playback or a seek reaches them. A non-seekable source can be read as long
// as the movie atom comes before the media data.
//
// # Codecs
//
// Sample descriptions are mapped to codec parameters for AAC, ALAC, FLAC,
// Opus, MP3, AC-3, E-AC-3 and PCM audio, and for H.264 and HEVC video.
// Unknown sample entries still produce a track with a null codec.
//
// # Gapless Playback
//
// With FormatOptions.EnableGapless the edit list of each track sets the
// encoder delay and padding, and packets carry the matching trims.
package isomp4
