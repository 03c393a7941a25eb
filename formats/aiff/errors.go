// SPDX-License-Identifier: EPL-2.0

package aiff

import "github.com/ik5/mediakit/media"

var (
	// ErrNotAiffFile indicates a FORM file whose COMM chunk could not be used.
	ErrNotAiffFile = media.DecodeError("aiff: malformed FORM header")

	// ErrNotSeekable is returned when the opener is handed a forward-only reader.
	ErrNotSeekable = media.Unsupported("aiff: input must be seekable")

	// ErrUnsupportedBitDepth indicates a sample size other than 8, 16, 24 or 32 bits.
	ErrUnsupportedBitDepth = media.Unsupported("aiff: unsupported bit depth")

	// ErrUnsupportedAiffLayout indicates an unsupported channel layout.
	ErrUnsupportedAiffLayout = media.Unsupported("aiff: unsupported channel layout")
)
