package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/output"
)

var (
	historyLimit         int
	historyNotifications bool

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recent checks and notifications",
		Long: `Show the most recent checks, background and manual, with the packages
each one found newly outdated. With --notifications, list the notifications
that were delivered instead.

History older than history.retention is pruned by the background notifier.`,
		Example: `  brewnotify history
  brewnotify history --limit 50
  brewnotify history --notifications`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyNotifications, "notifications", false, "list delivered notifications")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if historyNotifications {
		notes, err := st.ListNotifications(historyLimit)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderNotifications(notes))
		return nil
	}

	runs, err := st.ListChecks(historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderCheckHistory(runs))
	return nil
}
