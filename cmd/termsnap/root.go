package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"
	"pkt.systems/termsnap"
)

// NewRootCommand builds the root CLI command.
func NewRootCommand(loader *termsnap.Loader) *cobra.Command {
	var configFile string
	var bindErr error

	v := loader.Viper()
	defaults := termsnap.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "termsnap [flags] [command [args...]]",
		Short: "Render the screen of a terminal program to SVG",
		Long: `termsnap runs a command in a pseudo-terminal, interprets its output with an
in-memory terminal emulator and writes the final screen as SVG.

Without --interactive, data on stdin (or a --script) is sent to the command
and ^D follows once it runs out. Without a command, data on stdin is
interpreted directly.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if configFile != "" {
				loader.SetConfigFile(configFile)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if bindErr != nil {
				return bindErr
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			renderOpts, err := termsnap.RenderOptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context()).With("component", "termsnap")

			snap, err := takeSnapshot(cmd, cfg, args, logger)
			if err != nil {
				return err
			}
			if cfg.Output.Path == "" {
				return termsnap.Encode(cmd.OutOrStdout(), snap, cfg.Output.Format, renderOpts)
			}
			if err := termsnap.WriteFile(cfg.Output.Path, snap, cfg.Output.Format, renderOpts); err != nil {
				return err
			}
			logger.Debug("wrote snapshot", "path", cfg.Output.Path, "format", cfg.Output.Format)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	flags := cmd.PersistentFlags()
	flags.BoolP("interactive", "i", false, "attach the command to this terminal; requires --out")
	flags.StringP("out", "o", "", "write the result to this file instead of stdout")
	flags.StringP("format", "f", termsnap.FormatSVG, "output format: svg, ansi or json")
	flags.IntP("lines", "l", defaults.Terminal.Rows, "terminal lines (default from LINES)")
	flags.IntP("columns", "c", defaults.Terminal.Cols, "terminal columns (default from COLUMNS)")
	flags.StringP("term", "t", termsnap.DefaultTerminalTerm, "TERM passed to the command")
	flags.Bool("render-before-clear", false, "snapshot the alternate screen just before it is cleared")
	flags.Bool("send-eot", termsnap.DefaultSendEOT, "send ^D once input is exhausted")
	flags.Duration("drain-timeout", termsnap.DefaultDrainTimeout, "quiet period after the command exits")
	flags.StringP("script", "s", "", "YAML input script sent instead of stdin")
	flags.StringSlice("font", defaults.Font.Families, "font families, in order of preference")
	flags.Float64("font-size", termsnap.DefaultFontSize, "font size in pixels")
	cmd.Flags().SetInterspersed(false)

	bind := func(key, name string) {
		if bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			bindErr = err
		}
	}

	bind("capture.interactive", "interactive")
	bind("output.path", "out")
	bind("output.format", "format")
	bind("terminal.rows", "lines")
	bind("terminal.cols", "columns")
	bind("terminal.term", "term")
	bind("capture.render_before_clear", "render-before-clear")
	bind("capture.send_eot", "send-eot")
	bind("capture.drain_timeout", "drain-timeout")
	bind("capture.script", "script")
	bind("font.families", "font")
	bind("font.size", "font-size")

	cmd.AddCommand(NewInspectCommand(loader, &bindErr))
	cmd.AddCommand(NewConfigCommand(loader))

	return cmd
}

// takeSnapshot produces the screen for args: pipe mode without a command,
// otherwise an interactive or scripted capture.
func takeSnapshot(cmd *cobra.Command, cfg termsnap.Config, args []string, logger pslog.Logger) (termsnap.Snapshot, error) {
	ctx := cmd.Context()
	size := termsnap.Size{Rows: cfg.Terminal.Rows, Cols: cfg.Terminal.Cols}
	in := cmd.InOrStdin()

	if len(args) == 0 {
		if cfg.Capture.Interactive {
			return termsnap.Snapshot{}, errors.New("--interactive needs a command to run")
		}
		if isTerminal(in) {
			return termsnap.Snapshot{}, errors.New("no command given to execute; pipe data into termsnap to render it without running a command")
		}
		logger.Debug("emulating stdin", "size", size.String())
		return termsnap.Emulate(in, size)
	}

	if cfg.Capture.Interactive {
		if cfg.Output.Path == "" {
			return termsnap.Snapshot{}, errors.New("--interactive is set but no output file is given with --out")
		}
		if cmd.Flags().Changed("lines") || cmd.Flags().Changed("columns") {
			logger.Warn("--lines and --columns have no effect with --interactive")
		}
		stdin, ok := in.(*os.File)
		if !ok {
			stdin = os.Stdin
		}
		stdout, ok := cmd.OutOrStdout().(*os.File)
		if !ok {
			stdout = os.Stdout
		}
		if !isTerminal(stdin) {
			logger.Warn("--interactive is set, but stdin is not a terminal")
		}
		if !isTerminal(stdout) {
			logger.Warn("--interactive is set, but stdout is not a terminal")
		}
		return termsnap.Interactive(ctx, termsnap.InteractiveOptions{
			Command:           args[0],
			Args:              args[1:],
			Term:              cfg.Terminal.Term,
			Stdin:             stdin,
			Stdout:            stdout,
			RenderBeforeClear: cfg.Capture.RenderBeforeClear,
			DrainTimeout:      cfg.Capture.DrainTimeout,
			Logger:            logger,
		})
	}

	input := in
	if cfg.Capture.Script != "" {
		scripted, err := termsnap.OpenScript(ctx, cfg.Capture.Script)
		if err != nil {
			return termsnap.Snapshot{}, err
		}
		input = scripted
	}
	return termsnap.Capture(ctx, termsnap.CaptureOptions{
		Command:           args[0],
		Args:              args[1:],
		Term:              cfg.Terminal.Term,
		Size:              size,
		Input:             input,
		SendEOT:           cfg.Capture.SendEOT,
		RenderBeforeClear: cfg.Capture.RenderBeforeClear,
		DrainTimeout:      cfg.Capture.DrainTimeout,
		Logger:            logger,
	})
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
