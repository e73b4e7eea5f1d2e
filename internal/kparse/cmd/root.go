// Package cmd implements the kparse command line interface.
package cmd

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"kparse/internal/kimage"
	"kparse/internal/kparse/log"
	"kparse/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "kparse [image]",
	Short: "Recover the memory layout of a raw kernel image",
	Long: `kparse locates the embedded kernel map in a raw, headerless kernel
image, derives the .text/.rodata/.data/.bss segments, and recovers the
named sections described by the image's dynamic table.`,
	Example: `
# Parse an image and print its layout
kparse kernel.bin

# Machine-readable output for regression diffing
kparse --json kernel.bin

# Preview the first 16 instructions at the image entry
kparse --disasm 16 kernel.bin
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup("", debug)

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		slog.Debug("Image loaded", "file", path, "size", len(data))

		img, err := kimage.ParseBytes(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		slog.Debug("Kernel map accepted",
			"offset", fmt.Sprintf("%#x", img.Map.Offset),
			"generation", img.Map.Generation.String())

		if logging.IsDebug() {
			lg := logging.NewLogger()
			for _, seg := range img.Segments {
				lg.Debug("Segment recovered",
					"name", seg.Name,
					"kind", seg.Kind.String(),
					"start", fmt.Sprintf("%#x", seg.Start),
					"size", fmt.Sprintf("%#x", seg.Size),
					"sections", len(seg.Sections))
			}
			lg.Close()
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			digest := sha256.Sum256(data)
			return writeJSON(cmd.OutOrStdout(), digest, img)
		}

		fmt.Fprint(cmd.OutOrStdout(), renderLayout(img))

		if n, _ := cmd.Flags().GetInt("disasm"); n > 0 {
			return printEntryDisasm(cmd.OutOrStdout(), img, data, n)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.Flags().Bool("json", false, "Print the recovered layout as JSON")
	rootCmd.Flags().Int("disasm", 0, "Disassemble the first N instructions of the code segment")
}

func Execute() {
	// Bypass fang's markdown rendering when output is being piped.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
