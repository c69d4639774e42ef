package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/termsnap"
)

// NewInspectCommand builds the inspect command, which dumps the captured
// screen as pretty JSON instead of rendering it.
func NewInspectCommand(loader *termsnap.Loader, bindErr *error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [flags] [command [args...]]",
		Short: "Dump the captured screen as JSON",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if *bindErr != nil {
				return *bindErr
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context()).With("component", "inspect")
			snap, err := takeSnapshot(cmd, cfg, args, logger)
			if err != nil {
				return err
			}
			return termsnap.Inspect(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
