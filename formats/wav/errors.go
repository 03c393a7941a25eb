// SPDX-License-Identifier: EPL-2.0

package wav

import "github.com/ik5/mediakit/media"

var (
	ErrNotWavFile          = media.DecodeError("wav: malformed RIFF header")
	ErrNotSeekable         = media.Unsupported("wav: input must be seekable")
	ErrOnlyIntegerPCM      = media.Unsupported("wav: only integer PCM is supported")
	ErrUnsupportedBitDepth = media.Unsupported("wav: unsupported bit depth")
	ErrUnsupportedChannels = media.Unsupported("wav: unsupported channel count")
	ErrMissingDataChunk    = media.DecodeError("wav: data chunk not found")
)
