package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"kparse/internal/kimage"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("105"))
	segmentStyle = lipgloss.NewStyle().Bold(true)
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	addrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("150"))
)

// renderLayout formats the recovered layout as an indented segment table.
func renderLayout(img *kimage.Image) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("kernel map @ %#x (%s)", img.Map.Offset, img.Map.Generation)))
	sb.WriteByte('\n')
	if img.Map.Generation == kimage.GenModern {
		sb.WriteString(addrStyle.Render(fmt.Sprintf("  ini1 %#x  corelocal %#x", img.Map.Ini1, img.Map.Corelocal)))
	} else {
		sb.WriteString(addrStyle.Render(fmt.Sprintf("  ini1 %#x", img.Map.Ini1)))
	}
	sb.WriteString("\n\n")

	for _, seg := range img.Segments {
		sb.WriteString(fmt.Sprintf("%s  %s  %s\n",
			segmentStyle.Render(fmt.Sprintf("%-12s", seg.Name)),
			kindStyle.Render(fmt.Sprintf("%-5s", seg.Kind)),
			addrStyle.Render(fmt.Sprintf("%#010x - %#010x  (%#x bytes)", seg.Start, seg.End, seg.Size)),
		))
		for _, sec := range seg.Sections {
			sb.WriteString(fmt.Sprintf("    %s  %s\n",
				sectionStyle.Render(fmt.Sprintf("%-14s", sec.Name)),
				addrStyle.Render(fmt.Sprintf("%#010x - %#010x  (%#x bytes)", sec.Start, sec.End, sec.Size)),
			))
		}
	}

	sb.WriteString(fmt.Sprintf("\nstring table: %d bytes\n", len(img.DynStr)))
	return sb.String()
}
