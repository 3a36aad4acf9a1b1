package app

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Run the background update notifier",
		Long: `Run the background update notifier.

Every schedule.interval (default 1h, plus up to schedule.tolerance of jitter)
the notifier refreshes the Homebrew index and computes the outdated package
set. When more packages are outdated than at the previous check, it sends one
notification naming exactly the newly outdated packages and updates the badge.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a detached background process
  • Stop: Stop a running daemon

Notifications are off by default. Nothing is shown (no notification and no
badge) until notifications.enabled = true is set in the config file; checks
still run and are recorded in 'brewnotify history'.

Edits to the config file and the ignore list are picked up while running.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  brewnotify watch

  # Run as background daemon
  brewnotify watch --daemon

  # Stop running daemon
  brewnotify watch --stop

  # Use custom PID and log files
  brewnotify watch --daemon --pid-file /tmp/watch.pid --log-file /tmp/watch.log`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: $XDG_STATE_HOME/brewnotify/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "daemon log file path (default: $XDG_STATE_HOME/brewnotify/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	watchCmd.Flags().MarkHidden("daemon-child")
	watchCmd.MarkFlagsMutuallyExclusive("daemon", "stop")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		watchPIDFile = getDefaultPIDFile()
	}
	if watchLogFile == "" {
		watchLogFile = getDaemonLogFile()
	}
	out := cmd.OutOrStdout()

	if watchStop {
		if err := watcher.StopDaemon(watchPIDFile, 10*time.Second); err != nil {
			if errors.Is(err, watcher.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running.")
				return nil
			}
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
		fmt.Fprintln(out, "✓ Daemon stopped")
		return nil
	}

	if watchDaemon {
		pid, err := watcher.StartDaemon(watchPIDFile, watchLogFile, forwardedFlags()...)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Daemon started (PID %d)\n", pid)
		fmt.Fprintf(out, "  Checking every %s\n", cfg.Schedule.Interval)
		fmt.Fprintf(out, "  Logs: %s\n", watchLogFile)
		warnNotificationsDisabled(out)
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := newWatcher(st, true)
	if err != nil {
		return err
	}

	pidFile := ""
	if watchDaemonChild {
		pidFile = watchPIDFile
	} else {
		fmt.Fprintf(out, "Watching for outdated packages every %s (Ctrl+C to stop)\n", cfg.Schedule.Interval)
		warnNotificationsDisabled(out)
	}
	return w.RunDaemon(cmd.Context(), pidFile)
}

// warnNotificationsDisabled tells the user why a running watcher stays quiet.
func warnNotificationsDisabled(out io.Writer) {
	if !cfg.Notifications.Enabled {
		fmt.Fprintf(out, "  Notifications are disabled; set notifications.enabled = true in %s to receive them.\n", resolvedConfigFile())
	}
}

// forwardedFlags returns the global flags the daemon child must inherit.
func forwardedFlags() []string {
	var args []string
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	if verbosity > 0 {
		args = append(args, "-"+strings.Repeat("v", verbosity))
	}
	return args
}
