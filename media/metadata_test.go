// SPDX-License-Identifier: EPL-2.0

package media

import (
	"errors"
	"testing"
)

func TestMetadata_Queue(t *testing.T) {
	t.Parallel()

	var m Metadata
	if m.Current() != nil {
		t.Fatal("Current() on empty queue != nil")
	}

	m.Push(Revision{Tags: []Tag{{Key: "a"}}})
	m.Push(Revision{Tags: []Tag{{Key: "b"}}})
	m.Push(Revision{Tags: []Tag{{Key: "c"}}})

	rev, ok := m.Pop()
	if !ok || rev.Tags[0].Key != "a" {
		t.Fatalf("Pop() = %v, %v, want a", rev, ok)
	}
	if got := m.Current().Tags[0].Key; got != "b" {
		t.Errorf("Current() = %q, want b", got)
	}

	if got := m.SkipToLatest().Tags[0].Key; got != "c" {
		t.Errorf("SkipToLatest() = %q, want c", got)
	}
	if _, ok := m.Pop(); ok {
		t.Error("Pop() removed the latest revision")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestRevisionBuilder_Limits(t *testing.T) {
	t.Parallel()

	b := NewRevisionBuilder(MetadataOptions{LimitMetadataBytes: 10, LimitVisualBytes: 4})
	if err := b.AddTag(Tag{Key: "nam", Value: "abcd"}); err != nil {
		t.Fatalf("AddTag() error = %v, want nil", err)
	}
	if err := b.AddTag(Tag{Key: "ART", Value: "xyz"}); !errors.Is(err, ErrLimit) {
		t.Errorf("AddTag() error = %v, want limit", err)
	}
	if err := b.AddVisual(Visual{Data: make([]byte, 5)}); !errors.Is(err, ErrLimit) {
		t.Errorf("AddVisual() error = %v, want limit", err)
	}

	rev := b.Build()
	if len(rev.Tags) != 1 || len(rev.Visuals) != 0 {
		t.Errorf("Build() = %+v, want one tag", rev)
	}
}
