package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/config"
	"github.com/blackwell-systems/brewnotify/internal/logging"
)

var (
	cfgFile   string
	dbPath    string
	verbosity int

	// cfg is loaded once per invocation by the root PersistentPreRunE.
	cfg      *config.Config
	closeLog = func() {}

	// Overridable in tests so nothing touches the real XDG directories.
	stateDir  = config.StateDir
	configDir = config.Dir

	// RootCmd is the root command for brewnotify
	RootCmd = &cobra.Command{
		Use:   "brewnotify",
		Short: "Notify when Homebrew packages become outdated",
		Long: `brewnotify periodically refreshes the Homebrew index and tells you when
installed formulae or casks have newer versions available.

Start the background notifier with 'brewnotify watch --daemon'. Each check
refreshes the index, compares the outdated set with the last one it saw, and
sends one notification naming only the packages that are newly outdated.

Quick Start:
  1. brewnotify check              # see what is outdated right now
  2. brewnotify watch --daemon     # check in the background every hour
  3. brewnotify upgrade --all      # upgrade when you are ready

Configuration lives in $XDG_CONFIG_HOME/brewnotify/config.toml. Packages you
never want to hear about can be hidden with 'brewnotify ignore add'.

Examples:
  # Show the last known outdated packages
  brewnotify outdated

  # Check daemon status and badge
  brewnotify status

  # Review recent checks and notifications
  brewnotify history`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "brewnotify: outdated Homebrew package notifications")
			fmt.Fprintln(out)

			path, _ := getDBPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "Run 'brewnotify check' to get started.")
			} else {
				fmt.Fprintln(out, "Tip: Run 'brewnotify status' to check the background notifier.")
				fmt.Fprintln(out, "     Run 'brewnotify outdated' to list outdated packages.")
			}
			fmt.Fprintln(out, "     Run 'brewnotify --help' for all commands.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/brewnotify/config.toml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: $XDG_STATE_HOME/brewnotify/brewnotify.db)")
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug, -vvv trace)")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// setup configures logging and loads the configuration for every command.
func setup(cmd *cobra.Command, args []string) error {
	level := verbosity
	console := os.Stderr
	logFile := getDefaultLogFile()
	if watchDaemonChild {
		// The parent redirected stderr to the daemon log file.
		logFile = ""
		if level < 1 {
			level = 1
		}
	}
	closeLog = logging.SetupLogger(level, console, logFile)

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	log.Debug().Str("config", cfg.File).Msg("Configuration loaded")
	return nil
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	dir := stateDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return filepath.Join(dir, "brewnotify.db"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() string {
	return filepath.Join(stateDir(), "watch.pid")
}

// getDefaultLogFile returns the log file shared by foreground commands.
func getDefaultLogFile() string {
	return filepath.Join(stateDir(), "brewnotify.log")
}

// getDaemonLogFile returns the default daemon output file
func getDaemonLogFile() string {
	return filepath.Join(stateDir(), "watch.log")
}

// resolvedConfigFile returns the config file in effect: --config or the
// default location.
func resolvedConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(configDir(), filepath.Base(config.DefaultFile()))
}

// ignoreDir returns the directory holding the ignore list, which sits next
// to the config file.
func ignoreDir() string {
	if cfgFile != "" {
		return filepath.Dir(cfgFile)
	}
	return configDir()
}
