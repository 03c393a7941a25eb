// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"log/slog"

	"github.com/ik5/mediakit/media"
)

// parser carries the options atom readers need. Atom readers are methods so
// they can be handed to ReadAtom as method values.
type parser struct {
	opts media.FormatOptions
	log  *slog.Logger
}

func newParser(opts media.FormatOptions) *parser {
	if opts.MaxSamples == 0 {
		opts.MaxSamples = media.DefaultMaxSamples
	}

	return &parser{opts: opts, log: opts.Log()}
}

// checkSamples rejects tables with more entries than a track may index.
func (p *parser) checkSamples(n uint64) error {
	if n > p.opts.MaxSamples {
		return media.LimitError("samples per track", n)
	}

	return nil
}

// checkEntries fails when count entries of size bytes each do not fit the
// remaining payload.
func checkEntries(h AtomHeader, pos uint64, count, size uint64, msg string) error {
	left, ok := h.DataUnreadAt(pos)
	if !ok {
		return media.DecodeError(msg + " atom size is unknown")
	}
	if size != 0 && count > left/size {
		return media.DecodeError(msg + " entry count exceeds atom size")
	}

	return nil
}
