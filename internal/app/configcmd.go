package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration (defaults, file, environment)",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the config, ignore list and state locations",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	brewPath := cfg.Brew.Path
	if brewPath == "" {
		brewPath = newBrewClient().Path()
	}

	fmt.Fprintln(out, "[brew]")
	fmt.Fprintf(out, "path = %q\n\n", brewPath)
	fmt.Fprintln(out, "[notifications]")
	fmt.Fprintf(out, "enabled = %t\n", cfg.Notifications.Enabled)
	fmt.Fprintf(out, "style = %q\n\n", cfg.NotificationStyle())
	fmt.Fprintln(out, "[schedule]")
	fmt.Fprintf(out, "interval = %q\n", cfg.Schedule.Interval.String())
	fmt.Fprintf(out, "tolerance = %q\n", cfg.Schedule.Tolerance.String())
	fmt.Fprintf(out, "run_at_start = %t\n\n", cfg.Schedule.RunAtStart)
	fmt.Fprintln(out, "[backup]")
	fmt.Fprintf(out, "date_format = %q\n", cfg.Backup.DateFormat)
	fmt.Fprintf(out, "dir = %q\n\n", cfg.Backup.Dir)
	fmt.Fprintln(out, "[history]")
	fmt.Fprintf(out, "retention = %q\n", cfg.History.Retention.String())
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	loaded := cfg.File
	if loaded == "" {
		loaded = resolvedConfigFile() + " (not created)"
	}
	dbFile, err := getDBPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-9s %s\n", "config:", loaded)
	fmt.Fprintf(out, "%-9s %s\n", "ignored:", filepath.Join(ignoreDir(), config.IgnoredFile))
	fmt.Fprintf(out, "%-9s %s\n", "database:", dbFile)
	fmt.Fprintf(out, "%-9s %s\n", "logs:", getDefaultLogFile())
	return nil
}
