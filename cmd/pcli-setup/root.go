package main

import (
	"github.com/spf13/cobra"

	"github.com/openpcli/pcli-setup/internal/messages"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		Long:          messages.RootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", messages.FlagConfigUsage)
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, messages.FlagVerboseUsage)
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, messages.FlagQuietUsage)

	cmd.AddCommand(newInstallCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newCleanCmd())

	return cmd
}
