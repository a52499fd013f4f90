package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/FrameScene/internal/compat"
	"github.com/AaronLay10/FrameScene/internal/registry"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate [pattern...]",
		Short: "Check scene files as one working set",
		Long: `Checks every scene matched by the patterns (default scenes/**/*.json)
for duplicate ids, dangling edges and references to scenes outside the set,
then reports whether each scene could run interpreted. The interpreted check
is advisory unless --strict is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			files, err := expandPatterns(args)
			if err != nil {
				return err
			}
			loaded, err := loadFiles(files)
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), loaded, reg, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a scene cannot run interpreted")
	return cmd
}

// runValidate prints one block per scene and fails if any scene failed.
func runValidate(w io.Writer, files []sceneFile, reg *registry.Registry, strict bool) error {
	var set []scene.Scene
	for _, f := range files {
		set = append(set, f.scenes...)
	}

	bySceneID := map[string][]string{}
	for _, e := range structuralErrors(scene.CheckReferences(set, reg)) {
		bySceneID[e.SceneID] = append(bySceneID[e.SceneID], e.Msg)
	}
	for _, msg := range bySceneID[""] {
		fmt.Fprintf(w, "FAIL %s\n", msg)
	}

	failed := len(bySceneID[""])
	for _, f := range files {
		for i := range f.scenes {
			s := &f.scenes[i]
			problems := bySceneID[s.ID]
			result := compat.CheckInterpreted(s, reg)

			status := "ok  "
			if len(problems) > 0 || (strict && !result.OK) {
				status = "FAIL"
				failed++
			}
			fmt.Fprintf(w, "%s %s: %s\n", status, f.path, s.ID)
			for _, p := range problems {
				fmt.Fprintf(w, "  - %s\n", p)
			}
			if !result.OK {
				fmt.Fprintf(w, "  interpreted: no\n")
				for _, e := range result.Errors {
					fmt.Fprintf(w, "    ~ %s\n", e)
				}
			}
			for _, warn := range result.Warnings {
				fmt.Fprintf(w, "    ! %s\n", warn)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenes failed validation", failed, len(set))
	}
	return nil
}

// structuralErrors flattens a joined error into its structural violations.
func structuralErrors(err error) []*scene.StructuralError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*scene.StructuralError
		for _, e := range joined.Unwrap() {
			out = append(out, structuralErrors(e)...)
		}
		return out
	}
	var se *scene.StructuralError
	if errors.As(err, &se) {
		return []*scene.StructuralError{se}
	}
	return []*scene.StructuralError{{Msg: err.Error()}}
}
