// Package kimage recovers the memory layout of a raw, headerless kernel
// image blob. It locates the embedded kernel map descriptor by brute-force
// scanning the image prefix, derives the four top-level segments, walks the
// dynamic table, and attaches the named sections it describes. The parse is
// a pure function over a read-only byte source: no state survives between
// invocations and the source is never mutated or closed.
package kimage

import "fmt"

// Image is the recovered layout of one kernel image: the accepted map
// descriptor, the four top-level segments in .text/.rodata/.data/.bss
// order with their attached sections, and the raw dynamic string table.
type Image struct {
	Map      KernelMap
	Segments []*Segment

	// DynStr holds the raw string-table bytes referenced by
	// DT_STRTAB/DT_STRSZ, or a single NUL when the table is absent.
	// It is captured for consumers, never interpreted here.
	DynStr string
}

// dynSections maps (start tag, size tag) pairs to the section each pair
// describes, in attachment order.
var dynSections = []struct {
	startTag uint64
	sizeTag  uint64
	name     string
}{
	{DT_STRTAB, DT_STRSZ, ".dynstr"},
	{DT_INIT_ARRAY, DT_INIT_ARRAYSZ, ".init_array"},
	{DT_FINI_ARRAY, DT_FINI_ARRAYSZ, ".fini_array"},
	{DT_RELA, DT_RELASZ, ".rela.dyn"},
	{DT_REL, DT_RELSZ, ".rel.dyn"},
	{DT_JMPREL, DT_PLTRELSZ, ".rela.plt"},
}

// ParseBytes parses an in-memory kernel image.
func ParseBytes(data []byte) (*Image, error) {
	return Parse(NewBytesReader(data))
}

// Parse recovers the memory layout of the kernel image behind r.
//
// Any read past the available bytes, an exhausted scan window, or an
// internally inconsistent accepted descriptor is fatal: Parse returns an
// error and no partial layout. A section whose backing dynamic tags are
// absent, zero-length, or not contained in a single segment is silently
// dropped instead.
func Parse(r *Reader) (*Image, error) {
	km, err := findKernelMap(r)
	if err != nil {
		return nil, err
	}

	textSize := km.TextEnd - km.Text
	rodataSize := km.RodataEnd - km.Rodata
	dataSize := km.DataEnd - km.Data
	bssSize := km.BssEnd - km.Bss

	// flatSize is the end of the file-backed image; the dynamic table
	// cannot extend past it.
	flatSize := km.Data + dataSize

	b := NewBuilder()
	if err := b.Segment(km.Text, textSize, ".text", KindCode); err != nil {
		return nil, err
	}
	if err := b.Segment(km.Rodata, rodataSize, ".rodata", KindConst); err != nil {
		return nil, err
	}
	if err := b.Segment(km.Data, dataSize, ".data", KindData); err != nil {
		return nil, err
	}
	if err := b.Segment(km.Bss, bssSize, ".bss", KindBSS); err != nil {
		return nil, err
	}

	dyn, dynEnd, err := parseDynamic(r, km.Dynamic, flatSize)
	if err != nil {
		return nil, err
	}
	b.Section(".dynamic", km.Dynamic, dynEnd-km.Dynamic)

	dynstr := "\x00"
	if addr, ok := dynValue(dyn, DT_STRTAB); ok {
		if size, ok := dynValue(dyn, DT_STRSZ); ok {
			s, err := r.ASCII(addr, size)
			if err != nil {
				return nil, fmt.Errorf("string table: %w", err)
			}
			dynstr = s
		}
	}

	for _, ds := range dynSections {
		start, ok := dynValue(dyn, ds.startTag)
		if !ok {
			continue
		}
		size, ok := dynValue(dyn, ds.sizeTag)
		if !ok {
			continue
		}
		b.Section(ds.name, start, size)
	}

	return &Image{
		Map:      *km,
		Segments: b.Segments(),
		DynStr:   dynstr,
	}, nil
}
