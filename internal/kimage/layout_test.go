package kimage

import (
	"errors"
	"testing"
)

func TestBuilderOverlap(t *testing.T) {
	tests := []struct {
		name    string
		first   [2]uint64 // start, size
		second  [2]uint64
		overlap bool
	}{
		{
			name:    "disjoint",
			first:   [2]uint64{0, 0x1000},
			second:  [2]uint64{0x1000, 0x1000},
			overlap: false,
		},
		{
			name:    "second starts inside first",
			first:   [2]uint64{0, 0x1000},
			second:  [2]uint64{0x800, 0x1000},
			overlap: true,
		},
		{
			name:    "second contains first",
			first:   [2]uint64{0x1000, 0x1000},
			second:  [2]uint64{0, 0x4000},
			overlap: true,
		},
		{
			name:    "identical ranges",
			first:   [2]uint64{0x2000, 0x1000},
			second:  [2]uint64{0x2000, 0x1000},
			overlap: true,
		},
		{
			name:    "touching at inclusive end",
			first:   [2]uint64{0, 0x1000},
			second:  [2]uint64{0xFFF, 0x10},
			overlap: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			if err := b.Segment(tt.first[0], tt.first[1], ".a", KindCode); err != nil {
				t.Fatalf("first segment: %v", err)
			}
			err := b.Segment(tt.second[0], tt.second[1], ".b", KindData)
			if tt.overlap {
				if !errors.Is(err, ErrSegmentOverlap) {
					t.Fatalf("expected ErrSegmentOverlap, got %v", err)
				}
				if len(b.Segments()) != 1 {
					t.Errorf("overlapping segment was added anyway")
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuilderSectionAttachment(t *testing.T) {
	newLayout := func(t *testing.T) *Builder {
		t.Helper()
		b := NewBuilder()
		if err := b.Segment(0x2000, 0x1000, ".data", KindData); err != nil {
			t.Fatalf("data segment: %v", err)
		}
		if err := b.Segment(0x3000, 0x1000, ".bss", KindBSS); err != nil {
			t.Fatalf("bss segment: %v", err)
		}
		return b
	}

	t.Run("fully contained", func(t *testing.T) {
		b := newLayout(t)
		b.Section(".init_array", 0x2100, 0x40)

		data := b.Segments()[0]
		if len(data.Sections) != 1 {
			t.Fatalf("expected 1 section in %s, got %d", data.Name, len(data.Sections))
		}
		sec := data.Sections[0]
		if sec.Name != ".init_array" || sec.Start != 0x2100 || sec.Size != 0x40 || sec.End != 0x213F {
			t.Errorf("unexpected section %+v", *sec)
		}
		if n := len(b.Segments()[1].Sections); n != 0 {
			t.Errorf("section also attached to .bss (%d sections)", n)
		}
	})

	t.Run("spanning two segments is dropped", func(t *testing.T) {
		b := newLayout(t)
		// Starts inside .data, ends inside .bss.
		b.Section(".fini_array", 0x2F00, 0x200)

		for _, seg := range b.Segments() {
			if len(seg.Sections) != 0 {
				t.Errorf("boundary-crossing section attached to %s", seg.Name)
			}
		}
	})

	t.Run("outside every segment is dropped", func(t *testing.T) {
		b := newLayout(t)
		b.Section(".rela.dyn", 0x8000, 0x100)

		for _, seg := range b.Segments() {
			if len(seg.Sections) != 0 {
				t.Errorf("out-of-range section attached to %s", seg.Name)
			}
		}
	})

	t.Run("wrapping range is dropped", func(t *testing.T) {
		b := newLayout(t)
		// start+size wraps past 2^64; the computed inclusive end would
		// land inside .data even though the section starts nowhere near it.
		b.Section(".rela.dyn", ^uint64(0)-0xF, 0x2020)

		for _, seg := range b.Segments() {
			if len(seg.Sections) != 0 {
				t.Errorf("wrapping section attached to %s", seg.Name)
			}
		}
	})

	t.Run("zero size is dropped", func(t *testing.T) {
		b := newLayout(t)
		b.Section(".dynstr", 0x2100, 0)

		for _, seg := range b.Segments() {
			if len(seg.Sections) != 0 {
				t.Errorf("zero-size section attached to %s", seg.Name)
			}
		}
	})

	t.Run("exact segment bounds", func(t *testing.T) {
		b := newLayout(t)
		b.Section(".dynamic", 0x3000, 0x1000)

		bss := b.Segments()[1]
		if len(bss.Sections) != 1 {
			t.Fatalf("expected 1 section in .bss, got %d", len(bss.Sections))
		}
		if end := bss.Sections[0].End; end != 0x3FFF {
			t.Errorf("inclusive end = %#x, want 0x3fff", end)
		}
	})
}

func TestSegmentKindString(t *testing.T) {
	kinds := map[SegmentKind]string{
		KindCode:  "CODE",
		KindConst: "CONST",
		KindData:  "DATA",
		KindBSS:   "BSS",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(k), got, want)
		}
	}
}
