package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blackwell-systems/brewnotify/internal/backup"
	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/config"
	"github.com/blackwell-systems/brewnotify/internal/logging"
	"github.com/blackwell-systems/brewnotify/internal/notify"
	"github.com/blackwell-systems/brewnotify/internal/outdated"
	"github.com/blackwell-systems/brewnotify/internal/store"
	"github.com/blackwell-systems/brewnotify/internal/watcher"
)

// appName is shown as the notification source.
const appName = "brewnotify"

// newSink builds the notification sink. Tests replace it.
var newSink = defaultSink

func defaultSink(logger zerolog.Logger) notify.Sink {
	logSink := notify.LogSink{Logger: logger}
	desktop, err := notify.NewDesktopSink(appName)
	if err != nil {
		logger.Debug().Err(err).Msg("Desktop notifications unavailable, logging only")
		return logSink
	}
	return notify.MultiSink{logFailures(desktop, logger), logSink}
}

// logFailures reports errors from sink, which MultiSink hides once another
// sink has delivered.
func logFailures(sink notify.Sink, logger zerolog.Logger) notify.Sink {
	return notify.SinkFunc(func(ctx context.Context, title, subtitle string) error {
		err := sink.Send(ctx, title, subtitle)
		if err != nil {
			logger.Warn().Err(err).Msg("Desktop notification failed")
		}
		return err
	})
}

// newBrewClient returns a brew client for the configured executable.
var newBrewClient = func() *brew.Client {
	return brew.NewClient(cfg.Brew.Path)
}

// openStore opens (and initializes) the database.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	return st, nil
}

// newWatcher wires the notifier service around st. watchConfig enables
// reloading the config file and ignore list on change.
func newWatcher(st *store.Store, watchConfig bool) (*watcher.Watcher, error) {
	logger := logging.GetLogger("watcher")
	opts := []watcher.Option{
		watcher.WithLogger(logger),
		watcher.WithIgnoreDir(ignoreDir()),
	}
	if watchConfig {
		opts = append(opts, watcher.WithConfigFile(resolvedConfigFile()))
	}

	q := outdated.NewBrewQuery(newBrewClient())
	return watcher.New(st, q, newSink(logging.GetLogger("notify")), cfg, opts...)
}

// newBackupManager returns a manager writing to backup.dir, or the current
// directory when unset.
func newBackupManager() *backup.Manager {
	dir := cfg.Backup.Dir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	return backup.New(newBrewClient(), dir, cfg.Backup.DateFormat)
}

// loadIgnored returns the ignore list, logging and returning nil on error.
func loadIgnored() []string {
	names, err := config.LoadIgnored(ignoreDir())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read ignore list")
		return nil
	}
	return names
}

// withTimeout bounds brew invocations started from the CLI.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

// explainBrewError adds a hint for the common "brew not installed" case.
func explainBrewError(err error) error {
	if errors.Is(err, brew.ErrBrewNotFound) {
		return fmt.Errorf("%w\nSet brew.path in %s if Homebrew is installed elsewhere", err, resolvedConfigFile())
	}
	return err
}
