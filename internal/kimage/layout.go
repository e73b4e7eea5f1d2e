package kimage

import (
	"errors"
	"fmt"
)

// ErrSegmentOverlap reports two top-level segments whose inclusive ranges
// intersect. It means the accepted kernel map was internally inconsistent
// despite passing validation, so the parse aborts.
var ErrSegmentOverlap = errors.New("segments are overlapping")

// SegmentKind classifies a top-level segment.
type SegmentKind int

const (
	KindCode SegmentKind = iota
	KindConst
	KindData
	KindBSS
)

func (k SegmentKind) String() string {
	switch k {
	case KindCode:
		return "CODE"
	case KindConst:
		return "CONST"
	case KindData:
		return "DATA"
	case KindBSS:
		return "BSS"
	}
	return fmt.Sprintf("SegmentKind(%d)", int(k))
}

// Section is a named sub-region owned by exactly one segment.
// End is the inclusive end offset.
type Section struct {
	Start uint64
	Size  uint64
	End   uint64
	Name  string
}

// Segment is a page-aligned top-level memory region. End is the inclusive
// end offset. Sections grows monotonically as sub-regions are attached;
// everything else is fixed at construction.
type Segment struct {
	Start    uint64
	Size     uint64
	End      uint64
	Name     string
	Kind     SegmentKind
	Sections []*Section
}

// Builder accumulates validated, non-overlapping segments and attaches
// discovered sections to them. One Builder serves one parse.
type Builder struct {
	segs []*Segment
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Segment adds a top-level segment. It fails with ErrSegmentOverlap when
// the new segment's inclusive range intersects any existing one.
func (b *Builder) Segment(start, size uint64, name string, kind SegmentKind) error {
	seg := &Segment{
		Start: start,
		Size:  size,
		End:   start + size - 1,
		Name:  name,
		Kind:  kind,
	}
	for _, other := range b.segs {
		if seg.Start <= other.End && other.Start <= seg.End {
			return fmt.Errorf("%s [%#x, %#x] intersects %s: %w",
				seg.Name, seg.Start, seg.End, other.Name, ErrSegmentOverlap)
		}
	}
	b.segs = append(b.segs, seg)
	return nil
}

// Section attaches a named sub-region to the segment that fully contains
// it. A zero-size section, one whose range wraps the address space, or one
// no single segment contains, is dropped.
func (b *Builder) Section(name string, start, size uint64) {
	if size == 0 {
		return
	}
	end := start + size - 1
	if end < start {
		// Hostile dynamic values can wrap; the range lies in no segment.
		return
	}
	sec := &Section{
		Start: start,
		Size:  size,
		End:   end,
		Name:  name,
	}
	for _, seg := range b.segs {
		if sec.Start >= seg.Start && sec.End <= seg.End {
			seg.Sections = append(seg.Sections, sec)
			return
		}
	}
}

// Segments returns the segments in the order they were added.
func (b *Builder) Segments() []*Segment {
	return b.segs
}
