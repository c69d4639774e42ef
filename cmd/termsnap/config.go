package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"pkt.systems/pslog"
	"pkt.systems/termsnap"
)

// NewConfigCommand builds the config command.
func NewConfigCommand(loader *termsnap.Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage termsnap configuration",
	}

	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand(loader))

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := pslog.Ctx(cmd.Context()).With("component", "config")
			written, err := termsnap.Bootstrap(cmd.Context(), termsnap.DefaultConfig(), path, logger)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), written)
			return err
		},
	}

	cmd.Flags().StringVar(&path, "path", termsnap.DefaultConfigPath(), "config file to create")

	return cmd
}

func newConfigShowCommand(loader *termsnap.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			if used := loader.ConfigFileUsed(); used != "" {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used); err != nil {
					return err
				}
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
