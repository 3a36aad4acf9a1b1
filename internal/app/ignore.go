package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/config"
)

var (
	ignoreCmd = &cobra.Command{
		Use:   "ignore",
		Short: "Manage packages that are never reported as outdated",
		Long: `Ignored packages are left out of notifications, the badge count and
'brewnotify outdated' (unless --all). They are still checked, so removing a
package from the list shows it again immediately.

A running daemon picks up changes to the list without a restart.`,
	}

	ignoreAddCmd = &cobra.Command{
		Use:     "add <package>...",
		Short:   "Ignore packages",
		Example: `  brewnotify ignore add python@3.11 node`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runIgnoreAdd,
	}

	ignoreRemoveCmd = &cobra.Command{
		Use:     "remove <package>...",
		Aliases: []string{"rm"},
		Short:   "Stop ignoring packages",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runIgnoreRemove,
	}

	ignoreListCmd = &cobra.Command{
		Use:   "list",
		Short: "List ignored packages",
		Args:  cobra.NoArgs,
		RunE:  runIgnoreList,
	}
)

func init() {
	ignoreCmd.AddCommand(ignoreAddCmd, ignoreRemoveCmd, ignoreListCmd)
	RootCmd.AddCommand(ignoreCmd)
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, name := range args {
		added, err := config.AddIgnored(ignoreDir(), name)
		if err != nil {
			return fmt.Errorf("failed to ignore %s: %w", name, err)
		}
		if added {
			fmt.Fprintf(out, "✓ Ignoring %s\n", name)
		} else {
			fmt.Fprintf(out, "%s is already ignored\n", name)
		}
	}
	return nil
}

func runIgnoreRemove(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, name := range args {
		removed, err := config.RemoveIgnored(ignoreDir(), name)
		if err != nil {
			return fmt.Errorf("failed to un-ignore %s: %w", name, err)
		}
		if removed {
			fmt.Fprintf(out, "✓ No longer ignoring %s\n", name)
		} else {
			fmt.Fprintf(out, "%s is not ignored\n", name)
		}
	}
	return nil
}

func runIgnoreList(cmd *cobra.Command, args []string) error {
	names, err := config.LoadIgnored(ignoreDir())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No packages are ignored.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}
