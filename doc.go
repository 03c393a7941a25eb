// SPDX-License-Identifier: EPL-2.0

// Package mediakit ties the container readers, the decoders and the audio
// pipeline together.
//
// # Supported Formats
//
// The default registry probes the following containers:
//   - ISO base media and MP4 (AAC, ALAC, FLAC, Opus, MP3, PCM and more) via formats/isomp4
//   - WAV (integer PCM, 8 to 32 bits) via formats/wav
//   - AIFF and AIFC (integer PCM) via formats/aiff
//   - MP3 elementary streams via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//
// The default codec registry decodes PCM, MP3 and Vorbis. Tracks of other
// codecs are demuxed but Decode reports them as unsupported.
//
// # Quick Start
//
// Open a file, decode its default track and pull PCM from it:
//
//	f, err := mediakit.OpenFile("song.m4a", mediakit.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	src, err := mediakit.Decode(f.Format, mediakit.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	pcm16, rate, err := audio.ResampleToMono16(src, 8000, 4096)
//
// ResampleFileToMono16 does all of the above in one call.
//
// # Packets
//
// For demuxing without decoding, read packets from the reader directly:
//
//	for {
//	    pkt, err := f.Format.NextPacket()
//	    if errors.Is(err, media.ErrEndOfFile) {
//	        break
//	    }
//	    ...
//	}
//
// # Errors
//
// Every layer reports *media.Error. Use errors.Is with media.ErrUnsupported,
// media.ErrDecode, media.ErrIO and friends to tell them apart.
package mediakit
