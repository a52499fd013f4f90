package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/FrameScene/internal/canonical"
	"github.com/AaronLay10/FrameScene/internal/registry"
	"github.com/AaronLay10/FrameScene/internal/scene"
	"github.com/AaronLay10/FrameScene/internal/version"
)

// defaultPattern is used when a command that takes files gets none.
const defaultPattern = "scenes/**/*.json"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	registryPath string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:          "scenectl",
		Short:        "Validate, format and manage FrameScene scene documents",
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.registryPath, "registry", "", "app catalog YAML (built-in catalog when empty)")

	root.AddCommand(
		newValidateCmd(opts),
		newFmtCmd(),
		newArrangeCmd(),
		newDuplicateCmd(opts),
		newDiffCmd(),
		newPushCmd(),
		newPullCmd(),
		newWatchCmd(),
	)
	return root
}

func (o *globalOptions) registry() (*registry.Registry, error) {
	if o.registryPath == "" {
		return registry.Default(), nil
	}
	return registry.Load(o.registryPath)
}

// expandPatterns resolves doublestar patterns to a sorted, de-duplicated
// list of files. A pattern that matches nothing is an error.
func expandPatterns(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{defaultPattern}
	}
	seen := map[string]bool{}
	var files []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", p)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// sceneFile is one loaded document.
type sceneFile struct {
	path   string
	scenes []scene.Scene
}

func loadFiles(paths []string) ([]sceneFile, error) {
	out := make([]sceneFile, 0, len(paths))
	for _, p := range paths {
		scenes, err := scene.LoadScenes(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sceneFile{path: p, scenes: scenes})
	}
	return out, nil
}

// loadOne reads a document holding exactly one scene. Parse failures carry
// the line and column of the problem.
func loadOne(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	if t := bytes.TrimLeft(data, " \t\r\n"); len(t) > 0 && t[0] == '[' {
		return nil, fmt.Errorf("%s holds several scenes; this command takes one", path)
	}
	s, err := canonical.FromText(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// encodeScenes renders one scene as canonical text and several as an
// indented JSON array.
func encodeScenes(scenes []scene.Scene) ([]byte, error) {
	if len(scenes) == 1 {
		text, err := canonical.Text(&scenes[0])
		return []byte(text), err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scenes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// output writes data to path, or to w when path is empty.
func output(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
