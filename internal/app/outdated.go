package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/outdated"
	"github.com/blackwell-systems/brewnotify/internal/output"
)

var (
	outdatedAll bool

	outdatedCmd = &cobra.Command{
		Use:   "outdated",
		Short: "List the last known outdated packages",
		Long: `List the outdated packages found by the most recent check.

This reads stored state and never runs brew; use 'brewnotify check' for a
fresh result. Ignored packages are hidden unless --all is given.`,
		Example: `  brewnotify outdated
  brewnotify outdated --all`,
		Args: cobra.NoArgs,
		RunE: runOutdated,
	}
)

func init() {
	outdatedCmd.Flags().BoolVar(&outdatedAll, "all", false, "include ignored packages")

	RootCmd.AddCommand(outdatedCmd)
}

func runOutdated(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	pkgs, err := st.LoadOutdated()
	if err != nil {
		return err
	}

	tracker := outdated.NewTracker(loadIgnored())
	tracker.Restore(outdated.NewSnapshot(pkgs...))

	shown := tracker.Displayable()
	if outdatedAll {
		shown = tracker.Packages()
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderOutdatedTable(shown.Packages(), tracker.IsIgnored))
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.RenderOutdatedSummary(tracker.DisplayableCount(), tracker.Packages().Len()))

	last, err := st.LastCheck()
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Fprintln(out, "No check has run yet. Run 'brewnotify check'.")
	} else {
		fmt.Fprintf(out, "Last checked %s\n", output.FormatRelativeTime(last.FinishedAt))
	}
	return nil
}
