// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"math"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// AtomIterator walks sibling atoms. Whatever a caller leaves unread of the
// current atom is skipped by the next call to Next.
type AtomIterator struct {
	r       stream.ByteReader
	base    uint64
	length  uint64
	bounded bool
	root    bool
	// anyType accepts non printable atom types, as used by ilst item keys.
	anyType bool

	cur  *AtomHeader
	next uint64
}

// NewRootIterator iterates the atoms from the current position of r. When
// known is false the atoms run to the end of the stream.
func NewRootIterator(r stream.ByteReader, length uint64, known bool) *AtomIterator {
	pos := r.Pos()

	return &AtomIterator{
		r:       r,
		base:    pos,
		length:  length,
		bounded: known,
		root:    true,
		next:    pos,
	}
}

// NewAtomIterator iterates the children of parent, starting at the current
// position of r.
func NewAtomIterator(r stream.ByteReader, parent AtomHeader) *AtomIterator {
	pos := r.Pos()
	n, ok := parent.DataUnreadAt(pos)

	return &AtomIterator{
		r:       r,
		base:    pos,
		length:  n,
		bounded: ok,
		next:    pos,
	}
}

// Inner is the reader the iterator consumes.
func (it *AtomIterator) Inner() stream.ByteReader { return it.r }

// Next reads the next header, or returns nil after the last atom.
func (it *AtomIterator) Next() (*AtomHeader, error) {
	it.cur = nil

	if it.next == math.MaxUint64 {
		return nil, nil
	}

	pos := it.r.Pos()
	switch {
	case pos < it.next:
		if err := it.r.IgnoreBytes(it.next - pos); err != nil {
			return nil, err
		}
	case pos > it.next:
		return nil, media.DecodeError("overread atom")
	}

	// Fewer bytes than a header left over are padding.
	if it.bounded && it.next-it.base+headerLen > it.length {
		return nil, nil
	}

	h, err := readAtomHeader(it.r, it.anyType)
	if err != nil {
		if !it.bounded && media.IsEndOfStream(err) && it.r.Pos() == it.next {
			return nil, nil
		}
		return nil, err
	}

	switch {
	case h.Bounded():
		end := h.Pos + h.AtomLen
		if end < h.Pos {
			return nil, errAtomSize
		}
		if it.bounded && !it.root && end > it.base+it.length {
			return nil, media.DecodeError("atom extends past its parent")
		}
		it.next = end
	case it.bounded:
		it.next = it.base + it.length
	default:
		it.next = math.MaxUint64
	}

	it.cur = &h

	return it.cur, nil
}

// NextNoConsume returns the pending atom if the caller has not consumed it,
// else the next one.
func (it *AtomIterator) NextNoConsume() (*AtomHeader, error) {
	if it.cur != nil {
		return it.cur, nil
	}

	return it.Next()
}

// Consume marks the pending atom as handled without reading it.
func (it *AtomIterator) Consume() {
	it.cur = nil
}

// Pending is the atom returned by the last Next, if not yet consumed.
func (it *AtomIterator) Pending() (AtomHeader, bool) {
	if it.cur == nil {
		return AtomHeader{}, false
	}

	return *it.cur, true
}

// ResumePos is the position the reader must be at for the iterator to carry
// on: the payload of the pending atom, else the start of the next one.
func (it *AtomIterator) ResumePos() uint64 {
	if it.cur != nil {
		return it.cur.DataPos()
	}

	return it.next
}

// ReadAtom parses the pending atom with read. The payload is exposed
// through a reader bounded to the atom, so read cannot run into a sibling.
func ReadAtom[T any](it *AtomIterator, read func(stream.ByteReader, AtomHeader) (T, error)) (T, error) {
	var zero T
	if it.cur == nil {
		return zero, media.DecodeError("no pending atom")
	}
	h := *it.cur
	it.cur = nil

	var r stream.ByteReader = it.r
	if n, ok := h.DataUnreadAt(it.r.Pos()); ok {
		r = stream.NewScopedStream(it.r, n)
	} else if it.bounded {
		r = stream.NewScopedStream(it.r, it.base+it.length-it.r.Pos())
	}

	return read(r, h)
}
