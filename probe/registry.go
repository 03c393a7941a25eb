// SPDX-License-Identifier: EPL-2.0

package probe

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

var (
	ErrInvalidMarker      = errors.New("marker must be between 2 and 16 bytes")
	ErrMissingInstance    = errors.New("descriptor has no instantiate function")
	ErrMissingShortName   = errors.New("descriptor has no short name")
	ErrDuplicateShortName = errors.New("descriptor short name already registered")
)

const (
	minMarkerLen = 2
	maxMarkerLen = 16
)

// Instantiate builds a reader over a stream positioned at the start of the
// container.
type Instantiate func(mss *stream.MediaSourceStream, opts media.FormatOptions) (media.FormatReader, error)

// Descriptor describes a container format the probe can select.
type Descriptor struct {
	ShortName  string
	LongName   string
	Extensions []string
	MimeTypes  []string
	// Markers are byte strings that identify the format anywhere in the
	// scanned window.
	Markers [][]byte
	// Score optionally adds to the score of a window that matched.
	Score func(window []byte) uint8
	Inst  Instantiate
}

// Registry holds format descriptors in registration order.
type Registry struct {
	descs []Descriptor

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		mtx: &sync.Mutex{},
	}
}

func (r *Registry) Register(d Descriptor) error {
	if d.ShortName == "" {
		return ErrMissingShortName
	}
	if d.Inst == nil {
		return fmt.Errorf("%s: %w", d.ShortName, ErrMissingInstance)
	}
	for _, m := range d.Markers {
		if len(m) < minMarkerLen || len(m) > maxMarkerLen {
			return fmt.Errorf("%s: %w", d.ShortName, ErrInvalidMarker)
		}
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if slices.ContainsFunc(r.descs, func(x Descriptor) bool { return x.ShortName == d.ShortName }) {
		return fmt.Errorf("%s: %w", d.ShortName, ErrDuplicateShortName)
	}
	r.descs = append(r.descs, d)

	return nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, d := range r.descs {
		if d.ShortName == name {
			return d, true
		}
	}

	return Descriptor{}, false
}

// Descriptors returns a copy of the registered descriptors.
func (r *Registry) Descriptors() []Descriptor {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return slices.Clone(r.descs)
}
