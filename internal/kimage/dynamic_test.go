package kimage

import (
	"encoding/binary"
	"reflect"
	"testing"
)

// dynTable encodes (tag, value) pairs as raw 16-byte entries.
func dynTable(pairs ...[2]uint64) []byte {
	buf := make([]byte, 0, len(pairs)*dynEntrySize)
	for _, p := range pairs {
		var e [dynEntrySize]byte
		binary.LittleEndian.PutUint64(e[:8], p[0])
		binary.LittleEndian.PutUint64(e[8:], p[1])
		buf = append(buf, e[:]...)
	}
	return buf
}

func TestParseDynamicMultiValued(t *testing.T) {
	table := dynTable(
		[2]uint64{DT_STRTAB, 0x1100},
		[2]uint64{DT_NEEDED, 1},
		[2]uint64{DT_STRSZ, 0x10},
		[2]uint64{DT_NEEDED, 2},
		[2]uint64{DT_NEEDED, 3},
		[2]uint64{DT_NULL, 0},
	)
	r := NewBytesReader(table)

	dyn, end, err := parseDynamic(r, 0, uint64(len(table)))
	if err != nil {
		t.Fatalf("parseDynamic: %v", err)
	}

	if want := []uint64{1, 2, 3}; !reflect.DeepEqual(dyn[DT_NEEDED], want) {
		t.Errorf("DT_NEEDED = %v, want %v", dyn[DT_NEEDED], want)
	}
	if want := []uint64{0x1100}; !reflect.DeepEqual(dyn[DT_STRTAB], want) {
		t.Errorf("DT_STRTAB = %v, want %v", dyn[DT_STRTAB], want)
	}
	// Cursor covers the DT_NULL terminator entry.
	if end != uint64(len(table)) {
		t.Errorf("table end = %#x, want %#x", end, len(table))
	}
}

func TestParseDynamicSingletonOverride(t *testing.T) {
	table := dynTable(
		[2]uint64{DT_STRTAB, 0x100},
		[2]uint64{DT_NEEDED, 7},
		[2]uint64{DT_STRTAB, 0x200},
		[2]uint64{DT_NULL, 0},
	)
	r := NewBytesReader(table)

	dyn, _, err := parseDynamic(r, 0, uint64(len(table)))
	if err != nil {
		t.Fatalf("parseDynamic: %v", err)
	}

	if want := []uint64{0x200}; !reflect.DeepEqual(dyn[DT_STRTAB], want) {
		t.Errorf("DT_STRTAB after duplicate = %v, want %v", dyn[DT_STRTAB], want)
	}
}

func TestParseDynamicStopsAtFlatSize(t *testing.T) {
	// No terminator: the walk must stop after (flatSize-dynOff)/16 entries.
	table := dynTable(
		[2]uint64{DT_STRTAB, 0x100},
		[2]uint64{DT_STRSZ, 0x20},
		[2]uint64{DT_RELA, 0x300},
		[2]uint64{DT_RELASZ, 0x30},
	)
	r := NewBytesReader(table)

	flat := uint64(2 * dynEntrySize)
	dyn, end, err := parseDynamic(r, 0, flat)
	if err != nil {
		t.Fatalf("parseDynamic: %v", err)
	}

	if end != flat {
		t.Errorf("table end = %#x, want %#x", end, flat)
	}
	if _, ok := dyn[DT_RELA]; ok {
		t.Error("entry past the flat-size bound was consumed")
	}
	if _, ok := dynValue(dyn, DT_STRSZ); !ok {
		t.Error("entry within the bound was dropped")
	}
}

func TestParseDynamicImmediateNull(t *testing.T) {
	table := dynTable([2]uint64{DT_NULL, 0}, [2]uint64{DT_STRTAB, 0x100})
	r := NewBytesReader(table)

	dyn, end, err := parseDynamic(r, 0, uint64(len(table)))
	if err != nil {
		t.Fatalf("parseDynamic: %v", err)
	}

	if end != dynEntrySize {
		t.Errorf("table end = %#x, want %#x", end, dynEntrySize)
	}
	if _, ok := dyn[DT_STRTAB]; ok {
		t.Error("entry after the terminator was consumed")
	}
	// The multi-valued tag is present but empty on a fresh map.
	if vals, ok := dyn[DT_NEEDED]; !ok || len(vals) != 0 {
		t.Errorf("DT_NEEDED = %v, want empty list", vals)
	}
}

func TestDynValue(t *testing.T) {
	dyn := map[uint64][]uint64{
		DT_STRTAB: {0x1100},
		DT_NEEDED: {},
	}

	if v, ok := dynValue(dyn, DT_STRTAB); !ok || v != 0x1100 {
		t.Errorf("dynValue(DT_STRTAB) = %#x, %v", v, ok)
	}
	if _, ok := dynValue(dyn, DT_STRSZ); ok {
		t.Error("dynValue reported a value for an absent tag")
	}
	if _, ok := dynValue(dyn, DT_NEEDED); ok {
		t.Error("dynValue reported a value for an empty list")
	}
}
