// SPDX-License-Identifier: EPL-2.0

package media

import "github.com/ik5/mediakit/audio"

// FinalizeResult is returned once decoding of a stream is complete.
type FinalizeResult struct {
	// Verified is true when a verification check ran.
	Verified bool
	// VerifyOK is the result of that check.
	VerifyOK bool
}

// Decoder turns packets into PCM. The returned buffer belongs to the decoder
// and is only valid until the next Decode, Reset or Finalize call.
type Decoder interface {
	// Decode returns ErrResetRequired when the stream changed in a way that
	// needs Reset before the next packet.
	Decode(pkt *Packet) (*audio.Buffer, error)
	// Reset discards decoder history.
	Reset()
	Finalize() FinalizeResult
	CodecParams() *CodecParameters
}
