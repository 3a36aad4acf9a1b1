package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/notify"
	"github.com/blackwell-systems/brewnotify/internal/output"
)

var (
	checkRefresh bool
	checkTimeout time.Duration

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check for outdated packages now",
		Long: `Compute the outdated package set right now and update the stored state.

This is the manual "check for updates" action. It does not send the
"new outdated packages" notification the background notifier sends; if the
number of outdated packages changed and notifications are enabled, the
generic "N outdated packages" notification and badge are updated instead.

By default the local Homebrew index is used as-is. Pass --refresh to run
'brew update' first.`,
		Example: `  # Check using the current index
  brewnotify check

  # Refresh the index first
  brewnotify check --refresh`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
)

func init() {
	checkCmd.Flags().BoolVar(&checkRefresh, "refresh", false, "run 'brew update' before checking")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Minute, "give up after this long")

	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := newWatcher(st, false)
	if err != nil {
		return err
	}
	if err := w.Restore(); err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	spinner := output.NewSpinner("Checking for outdated packages").WithElapsed()
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()

	if checkRefresh {
		spinner.UpdateMessage("Refreshing Homebrew index")
		if _, err := newBrewClient().RefreshIndex(ctx); err != nil {
			spinner.Stop()
			return explainBrewError(fmt.Errorf("failed to refresh index: %w", err))
		}
		spinner.UpdateMessage("Checking for outdated packages")
	}

	res := w.CheckNow(ctx)
	spinner.Stop()
	if res.Err != nil {
		return explainBrewError(fmt.Errorf("check failed: %w", res.Err))
	}

	tracker := w.Tracker()
	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderOutdatedTable(tracker.Displayable().Packages(), nil))
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.RenderOutdatedSummary(tracker.DisplayableCount(), tracker.Packages().Len()))

	if len(res.NewPackages) > 0 {
		names := make([]string, len(res.NewPackages))
		for i, p := range res.NewPackages {
			names[i] = p.Name
		}
		fmt.Fprintf(out, "Newly outdated since last check: %s\n", notify.FormatList(names))
	}
	return nil
}
