// SPDX-License-Identifier: EPL-2.0

package media

import "log/slog"

// DefaultMaxSamples caps the per-track sample index.
const DefaultMaxSamples = 16 << 20

type FormatOptions struct {
	// PrebuildSeekIndex asks readers to index the whole stream up front.
	PrebuildSeekIndex bool
	// EnableGapless makes readers emit trim values for encoder delay and padding.
	EnableGapless bool
	// MaxSamples bounds the number of samples a single track may index.
	MaxSamples uint64
	// Metadata bounds the tags a reader collects.
	Metadata MetadataOptions
	// Logger receives reader warnings. Nil means slog.Default().
	Logger *slog.Logger
}

func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		PrebuildSeekIndex: true,
		EnableGapless:     false,
		MaxSamples:        DefaultMaxSamples,
		Metadata:          DefaultMetadataOptions(),
	}
}

// Log returns the configured logger or the default one.
func (o FormatOptions) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

type DecoderOptions struct {
	// Verify checks decoded output against the stream's checksum on Finalize.
	Verify bool
}

func DefaultDecoderOptions() DecoderOptions {
	return DecoderOptions{Verify: false}
}

type MetadataOptions struct {
	LimitMetadataBytes int
	LimitVisualBytes   int
}

func DefaultMetadataOptions() MetadataOptions {
	return MetadataOptions{
		LimitMetadataBytes: 1 << 20,
		LimitVisualBytes:   1 << 24,
	}
}
