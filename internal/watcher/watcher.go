package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/brewnotify/internal/config"
	"github.com/blackwell-systems/brewnotify/internal/notifier"
	"github.com/blackwell-systems/brewnotify/internal/notify"
	"github.com/blackwell-systems/brewnotify/internal/outdated"
	"github.com/blackwell-systems/brewnotify/internal/scheduler"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

// ActivityIdentifier names the scheduled background check.
const ActivityIdentifier = "com.brewnotify.outdated-check"

// Watcher is the background update notifier service.
type Watcher struct {
	store     *store.Store
	cfg       *config.Config
	cfgMu     sync.Mutex
	cfgFile   string
	ignoreDir string
	logger    zerolog.Logger

	tracker   *outdated.Tracker
	notifier  *notifier.Notifier
	scheduler *scheduler.Scheduler
	files     *config.Watcher

	resetDelay time.Duration
	now        func() time.Time

	attachOnce sync.Once

	mu      sync.Mutex
	started bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithConfigFile sets the config file to reload on change. Without it,
// settings are fixed for the Watcher's lifetime.
func WithConfigFile(path string) Option {
	return func(w *Watcher) { w.cfgFile = path }
}

// WithIgnoreDir sets the directory holding the ignore list. It defaults to
// config.Dir().
func WithIgnoreDir(dir string) Option {
	return func(w *Watcher) { w.ignoreDir = dir }
}

// WithResetDelay overrides the notifier's suppression reset delay.
func WithResetDelay(d time.Duration) Option {
	return func(w *Watcher) { w.resetDelay = d }
}

// New wires a Watcher. Nothing runs until Start or CheckNow.
func New(st *store.Store, q outdated.Query, sink notify.Sink, cfg *config.Config, opts ...Option) (*Watcher, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	w := &Watcher{
		store:      st,
		cfg:        cfg,
		ignoreDir:  config.Dir(),
		logger:     zerolog.Nop(),
		resetDelay: notifier.DefaultResetDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	ignored, err := config.LoadIgnored(w.ignoreDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore list: %w", err)
	}

	w.tracker = outdated.NewTracker(ignored)
	w.tracker.OnChange(w.persist)

	settings := notifier.NewSettings(cfg.Notifications.Enabled, cfg.NotificationStyle())
	w.notifier = notifier.New(q, w.tracker, w.recordingSink(sink), st, settings,
		notifier.WithLogger(w.logger.With().Str("component", "notifier").Logger()),
		notifier.WithResetDelay(w.resetDelay),
		notifier.WithCycleHook(w.recordCycle),
	)

	w.scheduler = scheduler.New(ActivityIdentifier, cfg.Schedule.Interval, cfg.Schedule.Tolerance,
		scheduler.WithFireImmediately(cfg.Schedule.RunAtStart),
		scheduler.WithLogger(w.logger.With().Str("component", "scheduler").Logger()),
	)

	return w, nil
}

// Tracker returns the live tracker.
func (w *Watcher) Tracker() *outdated.Tracker {
	return w.tracker
}

// Notifier returns the notifier driving the live tracker.
func (w *Watcher) Notifier() *notifier.Notifier {
	return w.notifier
}

// Restore loads the persisted outdated set into the live tracker without
// notifying, attaches the count observer and re-applies the badge.
func (w *Watcher) Restore() error {
	pkgs, err := w.store.LoadOutdated()
	if err != nil {
		return fmt.Errorf("failed to load persisted outdated packages: %w", err)
	}
	w.tracker.Restore(outdated.NewSnapshot(pkgs...))
	w.attachOnce.Do(w.notifier.Attach)
	w.notifier.RefreshBadge()

	w.logger.Debug().Int("packages", len(pkgs)).Msg("Restored outdated packages")
	return nil
}

// CheckNow runs a manual check against the live tracker.
func (w *Watcher) CheckNow(ctx context.Context) notifier.CycleResult {
	return w.notifier.CheckNow(ctx)
}

// Start restores persisted state, schedules the background check and, when
// a config file is set, begins watching it.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}

	if err := w.Restore(); err != nil {
		return err
	}

	if w.cfgFile != "" {
		files, err := config.NewWatcher(w.logger,
			w.cfgFile,
			filepath.Join(filepath.Dir(w.cfgFile), config.IgnoredFile))
		if err != nil {
			return err
		}
		if err := files.Start(ctx, w.Reload); err != nil {
			w.logger.Warn().Err(err).Msg("Config changes will not be picked up until restart")
		} else {
			w.files = files
		}
	}

	if err := w.scheduler.Schedule(ctx, w.runCycle); err != nil {
		if w.files != nil {
			w.files.Stop()
			w.files = nil
		}
		return fmt.Errorf("failed to schedule background check: %w", err)
	}

	w.started = true
	w.logger.Info().
		Dur("interval", w.scheduler.Interval()).
		Dur("tolerance", w.scheduler.Tolerance()).
		Msg("Background update notifier started")
	return nil
}

// Stop cancels the schedule and waits for a running cycle to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.scheduler.Invalidate()
	if w.files != nil {
		w.files.Stop()
		w.files = nil
	}
	w.started = false
	w.logger.Info().Msg("Background update notifier stopped")
}

// Reload re-reads the config file and the ignore list and applies them to
// the running service. An invalid config file is logged and ignored.
func (w *Watcher) Reload() {
	if w.cfgFile != "" {
		cfg, err := config.Load(w.cfgFile)
		if err != nil {
			w.logger.Warn().Err(err).Str("file", w.cfgFile).Msg("Keeping previous settings")
		} else {
			w.applyConfig(cfg)
		}
	}

	ignored, err := config.LoadIgnored(w.ignoreDir)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to reload ignore list")
		return
	}
	w.tracker.SetIgnored(ignored)
}

func (w *Watcher) applyConfig(cfg *config.Config) {
	w.cfgMu.Lock()
	prev := w.cfg
	w.cfg = cfg
	w.cfgMu.Unlock()

	if cfg.Notifications.Enabled != prev.Notifications.Enabled ||
		cfg.NotificationStyle() != prev.NotificationStyle() {
		w.notifier.ApplySettings(cfg.Notifications.Enabled, cfg.NotificationStyle())
	}
	if cfg.Schedule != prev.Schedule {
		w.logger.Warn().Msg("Schedule changes take effect after the watcher restarts")
	}
}

func (w *Watcher) retention() time.Duration {
	w.cfgMu.Lock()
	defer w.cfgMu.Unlock()
	return w.cfg.History.Retention
}

func (w *Watcher) runCycle(ctx context.Context, done scheduler.CompletionHandler) {
	w.syncFromStore()
	w.notifier.RunCycle(ctx)
	w.pruneHistory()
	done(scheduler.Finished)
}

// syncFromStore silently replaces the live set with the persisted one. CLI
// commands such as check and upgrade write the store from another process,
// and the cycle must compare against what they left behind.
func (w *Watcher) syncFromStore() {
	pkgs, err := w.store.LoadOutdated()
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to reload persisted outdated packages")
		return
	}
	w.tracker.Restore(outdated.NewSnapshot(pkgs...))
}

func (w *Watcher) pruneHistory() {
	keep := w.retention()
	if keep <= 0 {
		return
	}
	n, err := w.store.PruneHistory(w.now().Add(-keep))
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to prune check history")
		return
	}
	if n > 0 {
		w.logger.Debug().Int64("rows", n).Msg("Pruned check history")
	}
}

// persist mirrors every live-set change to the store.
func (w *Watcher) persist(s outdated.Snapshot) {
	if err := w.store.SaveOutdated(s.Packages()); err != nil {
		w.logger.Error().Err(err).Msg("Failed to persist outdated packages")
	}
}

func (w *Watcher) recordCycle(res notifier.CycleResult) {
	run := &store.CheckRun{
		Trigger:       string(res.Trigger),
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
		OutdatedCount: res.OutdatedCount,
		Notified:      res.Notified,
	}
	for _, p := range res.NewPackages {
		run.NewPackages = append(run.NewPackages, p.Name)
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	if err := w.store.RecordCheck(run); err != nil {
		w.logger.Error().Err(err).Msg("Failed to record check")
	}
}

// recordingSink records every notification that sink delivers.
func (w *Watcher) recordingSink(sink notify.Sink) notify.Sink {
	return notify.SinkFunc(func(ctx context.Context, title, subtitle string) error {
		if err := sink.Send(ctx, title, subtitle); err != nil {
			return err
		}
		if err := w.store.RecordNotification(title, subtitle, w.now()); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to record notification")
		}
		return nil
	})
}
