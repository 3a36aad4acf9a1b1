package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/output"
)

var (
	upgradeAll     bool
	upgradeTimeout time.Duration

	upgradeCmd = &cobra.Command{
		Use:   "upgrade [package...]",
		Short: "Upgrade outdated packages",
		Long: `Upgrade the named packages, or every outdated package with --all, using
'brew upgrade'. The outdated set is recomputed afterwards so the badge and
'brewnotify outdated' reflect the result.`,
		Example: `  brewnotify upgrade wget jq
  brewnotify upgrade --all`,
		RunE: runUpgrade,
	}
)

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeAll, "all", false, "upgrade every outdated package")
	upgradeCmd.Flags().DurationVar(&upgradeTimeout, "timeout", 30*time.Minute, "give up after this long")

	RootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !upgradeAll {
		return fmt.Errorf("specify packages to upgrade or use --all")
	}
	if len(args) > 0 && upgradeAll {
		return fmt.Errorf("--all cannot be combined with package names")
	}

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

	ctx, cancel := withTimeout(cmd.Context(), upgradeTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	label := "all outdated packages"
	if len(args) > 0 {
		label = strings.Join(args, ", ")
	}

	spinner := output.NewSpinner("Upgrading " + label).WithElapsed()
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	result, err := newBrewClient().Upgrade(ctx, args...)
	spinner.Stop()

	if s := strings.TrimSpace(result.Stdout); s != "" {
		fmt.Fprintln(out, s)
	}
	if err != nil {
		return explainBrewError(err)
	}

	res := w.CheckNow(ctx)
	if res.Err != nil {
		return fmt.Errorf("upgraded, but failed to recompute outdated packages: %w", res.Err)
	}

	fmt.Fprintf(out, "✓ Upgraded %s\n", label)
	fmt.Fprintln(out, output.RenderOutdatedSummary(w.Tracker().DisplayableCount(), w.Tracker().Packages().Len()))
	return nil
}
