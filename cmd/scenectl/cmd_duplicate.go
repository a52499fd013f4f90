package main

import (
	"github.com/spf13/cobra"

	"github.com/AaronLay10/FrameScene/internal/clone"
	"github.com/AaronLay10/FrameScene/internal/idgen"
)

func newDuplicateCmd(opts *globalOptions) *cobra.Command {
	var outPath, idPrefix string
	cmd := &cobra.Command{
		Use:   "duplicate <file>",
		Short: "Copy the scenes of a file under fresh ids",
		Long: `Duplicates every scene in the file as one batch. References between
scenes of the batch are pointed at the copies; references to other scenes
are kept. New ids are random UUIDs unless --id-prefix is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			loaded, err := loadFiles(args)
			if err != nil {
				return err
			}

			var ids idgen.Generator = idgen.UUID{}
			if idPrefix != "" {
				ids = idgen.NewSequence(idPrefix)
			}
			copies, err := clone.Duplicate(loaded[0].scenes, ids, reg)
			if err != nil {
				return err
			}
			data, err := encodeScenes(copies)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), outPath, data)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the copies to this file")
	cmd.Flags().StringVar(&idPrefix, "id-prefix", "", "number new ids <prefix>-1, <prefix>-2, ...")
	return cmd
}
