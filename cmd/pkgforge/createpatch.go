package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/patch"
)

var (
	createPatchName      string
	createPatchOverwrite bool
	createPatchOutput    string
	createPatchExclude   []string
)

var createPatchCmd = &cobra.Command{
	Use:   "create-patch <work_dir>",
	Short: "Synthesize a patch from a current work tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreatePatch,
}

func init() {
	createPatchCmd.Flags().StringVar(&createPatchName, "name", "", "patch filename (without extension)")
	createPatchCmd.Flags().BoolVar(&createPatchOverwrite, "overwrite", false, "overwrite an existing patch file")
	createPatchCmd.Flags().StringVar(&createPatchOutput, "output", ".", "directory to write the patch file into")
	createPatchCmd.Flags().StringArrayVar(&createPatchExclude, "exclude", nil, "glob of paths to exclude from synthesis")
	createPatchCmd.MarkFlagRequired("name")
}

func runCreatePatch(cmd *cobra.Command, args []string) error {
	workDir := args[0]
	origDir := filepath.Join(workDir, "..", ".source_info_original")

	diffs, err := patch.SynthesizeTree(workDir, origDir, nil, createPatchExclude)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, d := range diffs {
		writeDiff(&b, d)
	}

	destPath := filepath.Join(createPatchOutput, createPatchName+".patch")
	if _, err := os.Stat(destPath); err == nil && !createPatchOverwrite {
		return diag.New(diag.KindPatch, diag.Span{}, "patch %q already exists (use --overwrite)", destPath)
	}
	if err := os.MkdirAll(createPatchOutput, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(destPath, []byte(b.String()), 0o644); err != nil {
		return diag.Wrap(diag.KindPatch, diag.Span{}, err, "writing patch %q", destPath)
	}
	fmt.Printf("wrote %s (%d file(s) changed)\n", destPath, len(diffs))
	return nil
}

// writeDiff renders a [patch.Diff] back to unified-diff text. This is the
// inverse of patch.ParseMultiple's traditional-header format, kept local
// to the CLI since no other component needs to serialize a Diff.
func writeDiff(b *strings.Builder, d patch.Diff) {
	oldPath, newPath := d.OriginalPath, d.ModifiedPath
	if oldPath == "" {
		oldPath = "/dev/null"
	}
	if newPath == "" {
		newPath = "/dev/null"
	}
	fmt.Fprintf(b, "--- %s\n", oldPath)
	fmt.Fprintf(b, "+++ %s\n", newPath)
	for _, h := range d.Hunks {
		fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", h.OldRange.Start, h.OldRange.Len, h.NewRange.Start, h.NewRange.Len)
		for _, l := range h.Lines {
			switch l.Kind {
			case patch.LineContext:
				fmt.Fprintf(b, " %s\n", l.Text)
			case patch.LineInsert:
				fmt.Fprintf(b, "+%s\n", l.Text)
			case patch.LineDelete:
				fmt.Fprintf(b, "-%s\n", l.Text)
			}
			if l.NoNewlineAtEOF {
				b.WriteString("\\ No newline at end of file\n")
			}
		}
	}
}
