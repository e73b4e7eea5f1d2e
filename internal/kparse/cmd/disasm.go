package cmd

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"kparse/internal/kimage"
	"kparse/internal/logging"
)

// printEntryDisasm decodes the first n instructions at the start of the
// recovered code segment. Kernel images are AArch64.
func printEntryDisasm(w io.Writer, img *kimage.Image, data []byte, n int) error {
	var code *kimage.Segment
	for _, seg := range img.Segments {
		if seg.Kind == kimage.KindCode {
			code = seg
			break
		}
	}
	if code == nil {
		return fmt.Errorf("no code segment recovered")
	}

	lg := logging.NewLogger()
	defer lg.Close()

	fmt.Fprintf(w, "\nentry code @ %#x:\n", code.Start)
	for i := 0; i < n; i++ {
		off := code.Start + uint64(4*i)
		if off+4 > uint64(len(data)) || off > code.End {
			break
		}
		raw := data[off : off+4]

		inst, err := arm64asm.Decode(raw)
		if err != nil {
			lg.Debug("Undecodable word", "offset", fmt.Sprintf("%#x", off))
			fmt.Fprintf(w, "  %08x:  .inst 0x%08x\n", off, binary.LittleEndian.Uint32(raw))
			continue
		}
		fmt.Fprintf(w, "  %08x:  %s\n", off, strings.ToLower(inst.String()))
	}
	return nil
}
