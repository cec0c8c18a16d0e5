package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/crewsync/internal/app"
	"github.com/five82/crewsync/internal/crewapi"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	PrefsPath  string
}

func (o *RootOptions) appOptions(cmd *cobra.Command) app.Options {
	return app.Options{
		ConfigPath: o.ConfigPath,
		PrefsPath:  o.PrefsPath,
		Stdout:     cmd.OutOrStdout(),
	}
}

// NewRootCommand creates the crewsync root command. Without a subcommand it
// starts the viewer.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "crewsync",
		Short:         "Crew schedule sync and change detection",
		Long:          "Keeps a local copy of your crew schedule and tells you when the tracked day's flights move.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts.appOptions(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/crewsync/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/crewsync/prefs.toml)")

	cmd.AddCommand(newTUICommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newTUICommand(opts *RootOptions) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the schedule viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := opts.appOptions(cmd)
			o.PollInterval = poll
			return app.Run(cmd.Context(), o)
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", 0, "poll interval (default from config)")
	return cmd
}

func newSyncCommand(opts *RootOptions) *cobra.Command {
	var (
		budget time.Duration
		day    string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one budgeted sync and print what changed",
		Long: `Run a single sync cycle bounded by a time budget, the way a background
fetch hook would, and print the result and change summary.

Example:
  crewsync sync
  crewsync sync --budget 10s --day "Wed 08 Oct"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := opts.appOptions(cmd)
			o.TrackedDay = day
			_, err := app.RunOnce(cmd.Context(), o, budget)
			return err
		},
	}

	cmd.Flags().DurationVar(&budget, "budget", 25*time.Second, "time budget for the cycle")
	cmd.Flags().StringVar(&day, "day", "", `tracked day key, e.g. "Wed 08 Oct"`)
	return cmd
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll headless and log schedule changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := opts.appOptions(cmd)
			o.PollInterval = poll
			return app.Serve(cmd.Context(), o)
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", 0, "poll interval (default from config)")
	return cmd
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cached schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Show(opts.appOptions(cmd), day)
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "only print this day")
	return cmd
}

func newLogsCommand(opts *RootOptions) *cobra.Command {
	var (
		lines int
		level string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent crewsync log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Logs(opts.appOptions(cmd), lines, level)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of log lines to scan (0 for all)")
	cmd.Flags().StringVar(&level, "level", "info", "minimum level (debug|info|warn|error)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the crewsync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crewsync %s\n", crewapi.Version)
		},
	}
}
