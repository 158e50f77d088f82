package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/openpcli/pcli-setup/internal/config"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/stage"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   messages.CleanUse,
		Short: messages.CleanShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := config.DefaultPaths()
			if err != nil {
				return err
			}
			if _, err := os.Stat(paths.StageDir); errors.Is(err, fs.ErrNotExist) {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), messages.CleanNothing)
				return nil
			}
			stager, err := stage.New(paths.StageDir)
			if err != nil {
				return err
			}
			if err := stager.Clean(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), messages.CleanRemoveFmt, paths.StageDir)
			return nil
		},
	}
}
