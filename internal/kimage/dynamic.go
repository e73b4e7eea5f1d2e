package kimage

// ELF-style dynamic table tags. The kernel image embeds a conventional
// dynamic section even though it is not an ELF container.
const (
	DT_NULL         = 0
	DT_NEEDED       = 1
	DT_PLTRELSZ     = 2
	DT_PLTGOT       = 3
	DT_HASH         = 4
	DT_STRTAB       = 5
	DT_SYMTAB       = 6
	DT_RELA         = 7
	DT_RELASZ       = 8
	DT_RELAENT      = 9
	DT_STRSZ        = 10
	DT_SYMENT       = 11
	DT_INIT         = 12
	DT_FINI         = 13
	DT_SONAME       = 14
	DT_RPATH        = 15
	DT_SYMBOLIC     = 16
	DT_REL          = 17
	DT_RELSZ        = 18
	DT_RELENT       = 19
	DT_PLTREL       = 20
	DT_DEBUG        = 21
	DT_TEXTREL      = 22
	DT_JMPREL       = 23
	DT_BIND_NOW     = 24
	DT_INIT_ARRAY   = 25
	DT_FINI_ARRAY   = 26
	DT_INIT_ARRAYSZ = 27
	DT_FINI_ARRAYSZ = 28
	DT_RUNPATH      = 29
	DT_FLAGS        = 30
)

// dynEntrySize is one (tag, value) pair: two u64 fields.
const dynEntrySize = 0x10

// multipleTags lists tags whose entries accumulate in table order.
// Every other tag keeps only its latest value.
var multipleTags = []uint64{DT_NEEDED}

func isMultipleTag(tag uint64) bool {
	for _, t := range multipleTags {
		if t == tag {
			return true
		}
	}
	return false
}

// parseDynamic walks the (tag, value) table rooted at dynOff. It stops at
// the first DT_NULL tag or once the table would run past flatSize,
// whichever comes first, and returns the tag map together with the image
// offset one past the last consumed entry. The cursor covers a read
// DT_NULL terminator.
func parseDynamic(r *Reader, dynOff, flatSize uint64) (map[uint64][]uint64, uint64, error) {
	dyn := make(map[uint64][]uint64)
	for _, tag := range multipleTags {
		dyn[tag] = []uint64{}
	}

	r.Seek(dynOff)

	var entries uint64
	if flatSize > dynOff {
		entries = (flatSize - dynOff) / dynEntrySize
	}

	for i := uint64(0); i < entries; i++ {
		tag, err := r.NextUint64()
		if err != nil {
			return nil, 0, err
		}
		val, err := r.NextUint64()
		if err != nil {
			return nil, 0, err
		}

		if tag == DT_NULL {
			break
		}

		if isMultipleTag(tag) {
			dyn[tag] = append(dyn[tag], val)
		} else {
			dyn[tag] = []uint64{val}
		}
	}

	return dyn, r.Pos(), nil
}

// dynValue returns the current value for a singleton tag, or the first
// accumulated one for a multi-valued tag.
func dynValue(dyn map[uint64][]uint64, tag uint64) (uint64, bool) {
	vals, ok := dyn[tag]
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}
