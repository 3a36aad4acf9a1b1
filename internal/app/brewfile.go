package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/output"
)

var (
	brewfileDir     string
	brewfileName    string
	brewfileTimeout time.Duration

	brewfileCmd = &cobra.Command{
		Use:   "brewfile",
		Short: "Export or import a Brewfile backup",
		Long: `Back up the installed package set to a Brewfile and restore it later
with 'brew bundle'.

Exports are named "Brewfile Backup <date>" by default, with the date styled
by backup.date_format (numeric, abbreviated, long, complete, or omitted).`,
	}

	brewfileExportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the installed packages to a Brewfile",
		Example: `  brewnotify brewfile export
  brewnotify brewfile export --dir ~/Backups --name Brewfile`,
		Args: cobra.NoArgs,
		RunE: runBrewfileExport,
	}

	brewfileImportCmd = &cobra.Command{
		Use:     "import <file>",
		Short:   "Install everything listed in a Brewfile",
		Example: `  brewnotify brewfile import "Brewfile Backup 3-1-2024"`,
		Args:    cobra.ExactArgs(1),
		RunE:    runBrewfileImport,
	}

	brewfileListCmd = &cobra.Command{
		Use:   "list",
		Short: "List Brewfile backups in the backup directory",
		Args:  cobra.NoArgs,
		RunE:  runBrewfileList,
	}
)

func init() {
	brewfileExportCmd.Flags().StringVar(&brewfileDir, "dir", "", "directory to write to (default: backup.dir or the current directory)")
	brewfileExportCmd.Flags().StringVar(&brewfileName, "name", "", "file name (default: \"Brewfile Backup <date>\")")
	brewfileCmd.PersistentFlags().DurationVar(&brewfileTimeout, "timeout", 30*time.Minute, "give up after this long")

	brewfileCmd.AddCommand(brewfileExportCmd, brewfileImportCmd, brewfileListCmd)
	RootCmd.AddCommand(brewfileCmd)
}

func runBrewfileExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(cmd.Context(), brewfileTimeout)
	defer cancel()

	path, err := newBackupManager().Export(ctx, brewfileDir, brewfileName)
	if err != nil {
		return explainBrewError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported Brewfile to %s\n", path)
	return nil
}

func runBrewfileImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(cmd.Context(), brewfileTimeout)
	defer cancel()

	spinner := output.NewSpinner("Installing packages from " + args[0]).WithElapsed()
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	result, err := newBackupManager().Import(ctx, args[0])
	spinner.Stop()

	out := cmd.OutOrStdout()
	if s := strings.TrimSpace(result.Stdout); s != "" {
		fmt.Fprintln(out, s)
	}
	if err != nil {
		return explainBrewError(err)
	}
	fmt.Fprintln(out, "✓ Brewfile imported")
	return nil
}

func runBrewfileList(cmd *cobra.Command, args []string) error {
	backups, err := newBackupManager().List()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output.RenderBackupTable(backups))
	return nil
}
