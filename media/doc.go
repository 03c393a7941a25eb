// SPDX-License-Identifier: EPL-2.0

// Package media defines the data carried between containers and codecs and
// the contracts they implement.
//
// A FormatReader splits a container into Packets, one Track at a time or
// interleaved. A Decoder turns the packets of one track into planar PCM held
// in an audio.Buffer. CodecParameters travel from the reader to the decoder
// and describe how the packets were coded.
//
// # Errors
//
// Every layer reports failures as *Error. Use errors.Is with the sentinels to
// branch on the kind:
//
//	pkt, err := reader.NextPacket()
//	switch {
//	case errors.Is(err, media.ErrEndOfFile):
//	    // done
//	case errors.Is(err, media.ErrResetRequired):
//	    decoder.Reset()
//	}
//
// ErrEndOfFile also matches io.EOF.
package media
