package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/FrameScene/internal/canonical"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

// errScenesDiffer makes diff exit non-zero, like diff(1).
var errScenesDiffer = errors.New("scenes differ")

func newDiffCmd() *cobra.Command {
	var ignoreLayout bool
	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Compare two scene files by canonical text",
		Long: `Compares the canonical text of two single-scene files, so that key
order and whitespace never show up as changes. Prints the fingerprints and
the changed lines, and fails when the scenes differ.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadOne(args[0])
			if err != nil {
				return err
			}
			b, err := loadOne(args[1])
			if err != nil {
				return err
			}
			if ignoreLayout {
				a, b = withoutLayout(a), withoutLayout(b)
			}
			return runDiff(cmd.OutOrStdout(), args[0], args[1], a, b)
		},
	}
	cmd.Flags().BoolVar(&ignoreLayout, "ignore-layout", false, "ignore node positions and sizes")
	return cmd
}

func runDiff(w io.Writer, nameA, nameB string, a, b *scene.Scene) error {
	textA, err := canonical.Text(a)
	if err != nil {
		return err
	}
	textB, err := canonical.Text(b)
	if err != nil {
		return err
	}
	fpA, _ := canonical.Fingerprint(a)
	fpB, _ := canonical.Fingerprint(b)

	fmt.Fprintf(w, "--- %s %s\n", nameA, fpA)
	fmt.Fprintf(w, "+++ %s %s\n", nameB, fpB)
	if fpA == fpB {
		fmt.Fprintln(w, "identical")
		return nil
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(textA, textB)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineArray)

	lineA, lineB := 1, 1
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		lines := strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n")
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			lineA += len(lines)
			lineB += len(lines)
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				fmt.Fprintf(w, "%4d -%s\n", lineA, l)
				lineA++
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				fmt.Fprintf(w, "%4d +%s\n", lineB, l)
				lineB++
			}
		}
	}
	return errScenesDiffer
}

// withoutLayout returns a copy of s with every node at the origin and
// unmeasured.
func withoutLayout(s *scene.Scene) *scene.Scene {
	out := s.Clone()
	for i := range out.Nodes {
		out.Nodes[i].Position = scene.Position{}
		out.Nodes[i].Size = nil
	}
	return out
}
