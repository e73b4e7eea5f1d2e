package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"kparse/internal/kimage"
)

// JSONOutput is the machine-readable layout report used for regression
// diffing across tool versions.
type JSONOutput struct {
	Digest     string        `json:"digest" jsonschema:"title=Digest,description=SHA-256 of the input image"`
	Generation string        `json:"generation" jsonschema:"title=Generation,description=Kernel map field-width variant (legacy or modern)"`
	MapOffset  string        `json:"map_offset" jsonschema:"title=Map Offset,description=Image offset of the accepted kernel map"`
	Ini1Offset string        `json:"ini1_offset" jsonschema:"title=INI1 Offset,description=Image offset of the INI1 bundle region"`
	Segments   []JSONSegment `json:"segments" jsonschema:"title=Segments,description=Top-level segments in layout order"`
	DynStrSize int           `json:"dynstr_size" jsonschema:"title=String Table Size,description=Recovered dynamic string table size in bytes"`
}

// JSONSegment is one top-level segment in the JSON report.
type JSONSegment struct {
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Start    string        `json:"start"`
	End      string        `json:"end"`
	Size     string        `json:"size"`
	Sections []JSONSection `json:"sections,omitempty"`
}

// JSONSection is one attached section in the JSON report.
type JSONSection struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
	Size  string `json:"size"`
}

func writeJSON(w io.Writer, digest [32]byte, img *kimage.Image) error {
	out := JSONOutput{
		Digest:     fmt.Sprintf("%x", digest),
		Generation: img.Map.Generation.String(),
		MapOffset:  fmt.Sprintf("0x%x", img.Map.Offset),
		Ini1Offset: fmt.Sprintf("0x%x", img.Map.Ini1),
		DynStrSize: len(img.DynStr),
	}

	for _, seg := range img.Segments {
		js := JSONSegment{
			Name:  seg.Name,
			Kind:  seg.Kind.String(),
			Start: fmt.Sprintf("0x%x", seg.Start),
			End:   fmt.Sprintf("0x%x", seg.End),
			Size:  fmt.Sprintf("0x%x", seg.Size),
		}
		for _, sec := range seg.Sections {
			js.Sections = append(js.Sections, JSONSection{
				Name:  sec.Name,
				Start: fmt.Sprintf("0x%x", sec.Start),
				End:   fmt.Sprintf("0x%x", sec.End),
				Size:  fmt.Sprintf("0x%x", sec.Size),
			})
		}
		out.Segments = append(out.Segments, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
