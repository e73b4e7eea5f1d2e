package kimage

import (
	"encoding/binary"
	"errors"
)

// ErrNoKernelMap reports that the scan window was exhausted without an
// accepted kernel map candidate.
var ErrNoKernelMap = errors.New("no valid kernel map found")

const (
	// scanWindow bounds the brute-force descriptor search to the image prefix.
	scanWindow = 0x2000

	// legacyMapSize is twelve u32 fields, modernMapSize ten u64 fields.
	legacyMapSize = 0x30
	modernMapSize = 0x58

	// ini1Magic is "INI1" read as a little-endian u32.
	ini1Magic = 0x31494E49

	// Plausible INI1 offsets for legacy images whose bundle region is
	// absent or zero-filled.
	ini1RangeLo = 0x100000
	ini1RangeHi = 0x400000
)

// Generation distinguishes the two kernel map field-width variants.
type Generation int

const (
	// GenLegacy is the narrow variant: twelve u32 fields, including
	// explicit init_array bounds.
	GenLegacy Generation = iota
	// GenModern is the wide variant introduced with per-core local
	// regions: ten u64 fields, init_array recovered from the dynamic
	// table instead.
	GenModern
)

func (g Generation) String() string {
	if g == GenModern {
		return "modern"
	}
	return "legacy"
}

// KernelMap is the resolved layout descriptor found in the image prefix.
// All offsets are absolute image offsets. InitArray/InitArrayEnd are only
// populated for legacy maps, Corelocal only for modern ones.
type KernelMap struct {
	Offset     uint64
	Generation Generation

	Text      uint64
	TextEnd   uint64
	Rodata    uint64
	RodataEnd uint64
	Data      uint64
	DataEnd   uint64
	Bss       uint64
	BssEnd    uint64
	Ini1      uint64
	Dynamic   uint64

	InitArray    uint64
	InitArrayEnd uint64
	Corelocal    uint64
}

// findKernelMap scans 4-byte-aligned offsets in the image prefix for a
// descriptor passing validation. The legacy probe runs first at each
// offset; the modern probe only when the legacy one did not validate and
// enough bytes remain. The first acceptance wins.
func findKernelMap(r *Reader) (*KernelMap, error) {
	crt0, err := r.Bytes(0, scanWindow)
	if err != nil {
		return nil, err
	}

	for off := 0; off < len(crt0)-legacyMapSize; off += 4 {
		if m, ok := probeLegacy(crt0, off); ok {
			// A structurally valid legacy candidate still needs a
			// believable INI1 bundle offset behind it.
			magic, err := r.Uint32(m.Ini1)
			if err != nil {
				return nil, err
			}
			if magic == ini1Magic || (ini1RangeLo <= m.Ini1 && m.Ini1 <= ini1RangeHi) {
				m.Offset = uint64(off)
				return m, nil
			}
		} else if off <= len(crt0)-modernMapSize {
			if m, ok := probeModern(crt0, off); ok {
				m.Offset = uint64(off)
				return m, nil
			}
		}
	}
	return nil, ErrNoKernelMap
}

// probeLegacy decodes twelve consecutive u32 fields at off and validates
// them as a kernel map.
func probeLegacy(crt0 []byte, off int) (*KernelMap, bool) {
	var f [12]uint64
	for i := range f {
		f[i] = uint64(binary.LittleEndian.Uint32(crt0[off+4*i:]))
	}
	if !validKernelMap(f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7], f[8], f[9]) {
		return nil, false
	}
	return &KernelMap{
		Generation:   GenLegacy,
		Text:         f[0],
		TextEnd:      f[1],
		Rodata:       f[2],
		RodataEnd:    f[3],
		Data:         f[4],
		DataEnd:      f[5],
		Bss:          f[6],
		BssEnd:       f[7],
		Ini1:         f[8],
		Dynamic:      f[9],
		InitArray:    f[10],
		InitArrayEnd: f[11],
	}, true
}

// probeModern decodes ten consecutive u64 fields at off and validates
// them as a kernel map. The caller guarantees modernMapSize bytes remain.
func probeModern(crt0 []byte, off int) (*KernelMap, bool) {
	var f [11]uint64
	for i := range f {
		f[i] = binary.LittleEndian.Uint64(crt0[off+8*i:])
	}
	if !validKernelMap(f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7], f[8], f[9]) {
		return nil, false
	}
	return &KernelMap{
		Generation: GenModern,
		Text:       f[0],
		TextEnd:    f[1],
		Rodata:     f[2],
		RodataEnd:  f[3],
		Data:       f[4],
		DataEnd:    f[5],
		Bss:        f[6],
		BssEnd:     f[7],
		Ini1:       f[8],
		Dynamic:    f[9],
		Corelocal:  f[10],
	}, true
}

// validKernelMap is the structural predicate shared by both field widths:
// text starts at 0, text/rodata/data run back to back with page-aligned
// boundaries, bss and the INI1 bundle follow in order, and the dynamic
// table lies inside data but not inside rodata.
func validKernelMap(ts, te, rs, re, ds, de, bs, be, i1, dn uint64) bool {
	switch {
	case ts != 0:
		return false
	case ts >= te:
		return false
	case te&0xFFF != 0:
		return false
	case te > rs:
		return false
	case rs&0xFFF != 0:
		return false
	case rs >= re:
		return false
	case re&0xFFF != 0:
		return false
	case re > ds:
		return false
	case ds&0xFFF != 0:
		return false
	case ds >= de:
		return false
	case de > bs:
		return false
	case bs > be:
		return false
	case be > i1:
		return false
	case !(ds <= dn && dn < de) || (rs <= dn && dn < re):
		return false
	}
	return true
}
