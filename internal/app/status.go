package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/outdated"
	"github.com/blackwell-systems/brewnotify/internal/output"
	"github.com/blackwell-systems/brewnotify/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show notifier status, last check and badge",
	Long: `Display the state of the background notifier.

Shows:
  • Daemon running status and PID
  • Notification settings and schedule
  • Homebrew version and prefix
  • Result of the last check
  • Outdated package count and badge
  • Config and database locations`,
	Example: `  brewnotify status`,
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	pidFile := getDefaultPIDFile()
	if pid := watcher.DaemonPID(pidFile); pid != 0 {
		fmt.Fprintf(out, "%-14s running (PID %d)\n", "Daemon:", pid)
	} else {
		fmt.Fprintf(out, "%-14s stopped (run 'brewnotify watch --daemon')\n", "Daemon:")
	}

	enabled := "disabled"
	if cfg.Notifications.Enabled {
		enabled = "enabled"
	}
	fmt.Fprintf(out, "%-14s %s, style %s\n", "Notifications:", enabled, cfg.NotificationStyle())
	fmt.Fprintf(out, "%-14s every %s (±%s)\n", "Schedule:", cfg.Schedule.Interval, cfg.Schedule.Tolerance)

	ctx, cancel := withTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	client := newBrewClient()
	if version, err := client.Version(ctx); err != nil {
		fmt.Fprintf(out, "%-14s unavailable (%v)\n", "Homebrew:", explainBrewError(err))
	} else if prefix, err := client.Prefix(ctx); err == nil && prefix != "" {
		fmt.Fprintf(out, "%-14s %s (%s)\n", "Homebrew:", version, prefix)
	} else {
		fmt.Fprintf(out, "%-14s %s\n", "Homebrew:", version)
	}

	path, err := getDBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(out, "%-14s not created yet (run 'brewnotify check')\n", "Database:")
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	last, err := st.LastCheck()
	if err != nil {
		return err
	}
	switch {
	case last == nil:
		fmt.Fprintf(out, "%-14s never\n", "Last check:")
	case last.Error != "":
		fmt.Fprintf(out, "%-14s %s (%s), failed: %s\n", "Last check:",
			output.FormatRelativeTime(last.FinishedAt), last.Trigger, last.Error)
	default:
		fmt.Fprintf(out, "%-14s %s (%s)\n", "Last check:",
			output.FormatRelativeTime(last.FinishedAt), last.Trigger)
	}

	pkgs, err := st.LoadOutdated()
	if err != nil {
		return err
	}
	tracker := outdated.NewTracker(loadIgnored())
	tracker.Restore(outdated.NewSnapshot(pkgs...))
	fmt.Fprintf(out, "%-14s %s\n", "Outdated:",
		output.RenderOutdatedSummary(tracker.DisplayableCount(), tracker.Packages().Len()))

	badge, err := st.GetBadge()
	if err != nil {
		return err
	}
	if badge.Label == "" {
		fmt.Fprintf(out, "%-14s none\n", "Badge:")
	} else {
		fmt.Fprintf(out, "%-14s %s\n", "Badge:", badge.Label)
	}

	fmt.Fprintf(out, "%-14s %s\n", "Config:", resolvedConfigFile())
	fmt.Fprintf(out, "%-14s %s\n", "Database:", path)
	return nil
}
