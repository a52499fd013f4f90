package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/FrameScene/internal/canonical"
	"github.com/AaronLay10/FrameScene/internal/config"
	"github.com/AaronLay10/FrameScene/internal/scene"
	"github.com/AaronLay10/FrameScene/internal/storage"
	"github.com/AaronLay10/FrameScene/internal/storage/postgres"
	"github.com/AaronLay10/FrameScene/internal/storage/sqlite"
)

// storeFlags select the scene store. Flags override framescene.yaml.
type storeFlags struct {
	configPath string
	dbPath     string
	frameID    string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "framescene.yaml to read the store settings from")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "SQLite database file (default framescene.db)")
	cmd.Flags().StringVar(&f.frameID, "frame", "", "frame the scenes belong to (default \"default\")")
}

func (f *storeFlags) open() (*storage.Store, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if f.dbPath != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.Path = f.dbPath
	}
	if f.frameID != "" {
		cfg.Frame.ID = f.frameID
	}

	if cfg.StorageDriver() == "postgres" {
		return postgres.New(cfg.FrameID())
	}
	return sqlite.Open(cfg.StoragePath(), cfg.FrameID())
}

func newPushCmd() *cobra.Command {
	var sf storeFlags
	cmd := &cobra.Command{
		Use:   "push [pattern...]",
		Short: "Save scene files to the scene store",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandPatterns(args)
			if err != nil {
				return err
			}
			loaded, err := loadFiles(files)
			if err != nil {
				return err
			}
			store, err := sf.open()
			if err != nil {
				return err
			}
			defer store.Close()

			// A default handed from one scene to another only saves once the
			// old default is cleared, so defaults go last.
			type entry struct {
				path string
				sc   *scene.Scene
			}
			var queue []entry
			for _, f := range loaded {
				for i := range f.scenes {
					queue = append(queue, entry{f.path, &f.scenes[i]})
				}
			}
			sort.SliceStable(queue, func(i, j int) bool {
				return !queue[i].sc.IsDefault && queue[j].sc.IsDefault
			})

			out := cmd.OutOrStdout()
			for _, e := range queue {
				sum, changed, err := store.Put(cmd.Context(), e.sc)
				if err != nil {
					return fmt.Errorf("%s: %w", e.path, err)
				}
				if changed {
					fmt.Fprintf(out, "saved     %s %s\n", sum.ID, sum.Fingerprint)
				} else {
					fmt.Fprintf(out, "unchanged %s\n", sum.ID)
				}
			}
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

func newPullCmd() *cobra.Command {
	var sf storeFlags
	var dir string
	cmd := &cobra.Command{
		Use:   "pull [scene-id...]",
		Short: "Write stored scenes to files in canonical form",
		Long: `Writes each stored scene to <dir>/<id>.json. Without ids every scene of
the frame is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sf.open()
			if err != nil {
				return err
			}
			defer store.Close()

			ids := args
			if len(ids) == 0 {
				list, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range list {
					ids = append(ids, s.ID)
				}
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range ids {
				s, err := store.Get(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("scene %s: %w", id, err)
				}
				text, err := canonical.Text(s)
				if err != nil {
					return err
				}
				path := filepath.Join(dir, id+".json")
				if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVarP(&dir, "dir", "d", "scenes", "directory to write the scene files to")
	return cmd
}
