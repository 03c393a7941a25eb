// SPDX-License-Identifier: EPL-2.0

package media

// StandardTag is a well known tag meaning, independent of the container's key.
type StandardTag int

const (
	TagUnknown StandardTag = iota
	TagTrackTitle
	TagArtist
	TagAlbum
	TagAlbumArtist
	TagDate
	TagGenre
	TagTrackNumber
	TagDiscNumber
	TagComment
	TagComposer
	TagEncoder
)

type Tag struct {
	Key    string
	StdKey StandardTag
	Value  string
}

// Visual is an embedded picture.
type Visual struct {
	MediaType string
	Usage     string
	Data      []byte
}

// Revision is a snapshot of the tags observed at one point in the stream.
type Revision struct {
	Tags    []Tag
	Visuals []Visual
}

// Metadata is a queue of revisions, oldest first.
type Metadata struct {
	revisions []*Revision
}

func (m *Metadata) Push(rev Revision) {
	m.revisions = append(m.revisions, &rev)
}

// Current is the oldest revision not yet popped, or nil.
func (m *Metadata) Current() *Revision {
	if m == nil || len(m.revisions) == 0 {
		return nil
	}

	return m.revisions[0]
}

// Pop removes the oldest revision while a newer one exists. It reports false
// when only the latest revision is left.
func (m *Metadata) Pop() (*Revision, bool) {
	if m == nil || len(m.revisions) < 2 {
		return nil, false
	}

	rev := m.revisions[0]
	m.revisions = m.revisions[1:]

	return rev, true
}

// SkipToLatest drops every revision but the newest.
func (m *Metadata) SkipToLatest() *Revision {
	if m == nil || len(m.revisions) == 0 {
		return nil
	}
	m.revisions = m.revisions[len(m.revisions)-1:]

	return m.revisions[0]
}

func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}

	return len(m.revisions)
}

// RevisionBuilder collects tags for a Revision within the configured byte
// limits.
type RevisionBuilder struct {
	opts        MetadataOptions
	rev         Revision
	tagBytes    int
	visualBytes int
}

func NewRevisionBuilder(opts MetadataOptions) *RevisionBuilder {
	return &RevisionBuilder{opts: opts}
}

// AddTag appends a tag. It returns a limit error and drops the tag when the
// metadata budget is exhausted.
func (b *RevisionBuilder) AddTag(tag Tag) error {
	n := len(tag.Key) + len(tag.Value)
	if b.opts.LimitMetadataBytes > 0 && b.tagBytes+n > b.opts.LimitMetadataBytes {
		return LimitError("metadata bytes", uint64(b.tagBytes+n))
	}
	b.tagBytes += n
	b.rev.Tags = append(b.rev.Tags, tag)

	return nil
}

// AddVisual appends a picture subject to the visual budget.
func (b *RevisionBuilder) AddVisual(v Visual) error {
	n := len(v.Data)
	if b.opts.LimitVisualBytes > 0 && b.visualBytes+n > b.opts.LimitVisualBytes {
		return LimitError("visual bytes", uint64(b.visualBytes+n))
	}
	b.visualBytes += n
	b.rev.Visuals = append(b.rev.Visuals, v)

	return nil
}

func (b *RevisionBuilder) Empty() bool {
	return len(b.rev.Tags) == 0 && len(b.rev.Visuals) == 0
}

func (b *RevisionBuilder) Build() Revision {
	return b.rev
}
