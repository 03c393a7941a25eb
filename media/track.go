// SPDX-License-Identifier: EPL-2.0

package media

import "golang.org/x/text/language"

// Track is an independently coded stream inside a container.
type Track struct {
	ID          uint32
	CodecParams CodecParameters
	// Language is an ISO 639-2 code, empty when the container has none.
	Language string
}

// Timescale is the number of timestamp units per second, or 0 when the time
// base is not an integer rate.
func (t *Track) Timescale() uint32 {
	if t.CodecParams.TimeBase.Numer != 1 {
		return 0
	}

	return t.CodecParams.TimeBase.Denom
}

// NFrames is the length of the track in time base units.
func (t *Track) NFrames() uint64 {
	return t.CodecParams.NFrames
}

// LanguageTag parses Language. Unknown or missing codes give language.Und.
func (t *Track) LanguageTag() language.Tag {
	if t.Language == "" {
		return language.Und
	}

	base, err := language.ParseBase(t.Language)
	if err != nil {
		return language.Und
	}

	tag, err := language.Compose(base)
	if err != nil {
		return language.Und
	}

	return tag
}

// FindTrack returns the track with id, or nil.
func FindTrack(tracks []Track, id uint32) *Track {
	for i := range tracks {
		if tracks[i].ID == id {
			return &tracks[i]
		}
	}

	return nil
}
