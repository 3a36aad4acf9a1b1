// Package notifier implements the background update notifier.
//
// On every scheduler firing the Notifier refreshes the Homebrew index,
// computes outdated packages into a fresh isolated tracker, and compares the
// result with the live tracker. When the fresh set is larger it sends one
// notification naming exactly the newly outdated packages, replaces the live
// set, and briefly suppresses the generic "N outdated packages" notification
// that the live tracker's count observer would otherwise send for the same
// change.
//
// Query failures are logged and end the cycle without touching the live
// tracker; the next cycle is unaffected.
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/notify"
	"github.com/blackwell-systems/brewnotify/internal/outdated"
)

// Notification titles.
const (
	TitleNewOutdatedPackages = "New outdated packages found"
	TitleOutdatedPackages    = "Outdated packages found"
)

// DefaultResetDelay is how long the generic notification stays suppressed
// after a background cycle sends its own notification.
const DefaultResetDelay = time.Second

// observerSendTimeout bounds a single notification sent from the count
// observer, which has no caller context.
const observerSendTimeout = 10 * time.Second

// Trigger names what started a check.
type Trigger string

const (
	TriggerBackground Trigger = "background"
	TriggerManual     Trigger = "manual"
)

// CycleResult describes one completed check.
type CycleResult struct {
	Trigger       Trigger
	StartedAt     time.Time
	FinishedAt    time.Time
	OutdatedCount int
	NewPackages   []brew.OutdatedPackage
	Notified      bool
	Err           error
}

// Notifier coordinates background checks, the live tracker, and
// notification delivery.
type Notifier struct {
	query    outdated.Query
	live     *outdated.Tracker
	sink     notify.Sink
	badge    notify.Badge
	settings *Settings
	logger   zerolog.Logger

	resetDelay time.Duration
	afterFunc  func(time.Duration, func())
	now        func() time.Time
	hooks      []func(CycleResult)

	cycleMu sync.Mutex
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// WithResetDelay overrides DefaultResetDelay.
func WithResetDelay(d time.Duration) Option {
	return func(n *Notifier) { n.resetDelay = d }
}

// WithCycleHook registers fn to receive every CycleResult, background and
// manual.
func WithCycleHook(fn func(CycleResult)) Option {
	return func(n *Notifier) { n.hooks = append(n.hooks, fn) }
}

// New returns a Notifier for the live tracker. Call Attach to start
// observing the tracker's displayable count.
func New(q outdated.Query, live *outdated.Tracker, sink notify.Sink, badge notify.Badge, settings *Settings, opts ...Option) *Notifier {
	n := &Notifier{
		query:      q,
		live:       live,
		sink:       sink,
		badge:      badge,
		settings:   settings,
		logger:     zerolog.Nop(),
		resetDelay: DefaultResetDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Settings returns the shared settings.
func (n *Notifier) Settings() *Settings {
	return n.settings
}

// Tracker returns the live tracker.
func (n *Notifier) Tracker() *outdated.Tracker {
	return n.live
}

// Attach registers the count observer on the live tracker.
func (n *Notifier) Attach() {
	n.live.OnDisplayableCountChange(n.HandleCountChange)
}

// RunCycle performs one background check. It never returns an error; a
// failure is logged and reported in the result.
func (n *Notifier) RunCycle(ctx context.Context) CycleResult {
	n.cycleMu.Lock()
	defer n.cycleMu.Unlock()

	res := CycleResult{Trigger: TriggerBackground, StartedAt: n.now()}
	defer func() {
		res.FinishedAt = n.now()
		n.emit(res)
	}()

	n.logger.Info().Time("at", res.StartedAt).Msg("Scheduled event fired")

	out, err := n.query.RefreshIndex(ctx)
	n.logger.Debug().
		Str("stdout", out.Stdout).
		Str("stderr", out.Stderr).
		Msg("Index refresh result")
	if err != nil {
		res.Err = fmt.Errorf("refresh index: %w", err)
		n.logger.Error().Err(err).Msg("Failed to refresh package index")
		return res
	}

	fresh := n.live.NewIsolated()
	if err := n.query.ComputeOutdated(ctx, fresh); err != nil {
		res.Err = err
		n.logger.Error().Err(err).Msg("Failed to check for outdated packages")
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		n.logger.Warn().Err(err).Msg("Discarding check result: shutting down")
		return res
	}

	newDisplayable := fresh.Displayable()
	liveDisplayable := n.live.Displayable()
	res.OutdatedCount = newDisplayable.Len()

	n.logger.Debug().Strs("packages", newDisplayable.Names()).Msg("Outdated packages checker output")

	// Both sides are displayable sets so ignored packages never count as new.
	if newDisplayable.Len() <= liveDisplayable.Len() {
		n.logger.Info().Int("outdated", newDisplayable.Len()).Msg("No new updates found")
		return res
	}

	n.logger.Info().Msg("New updates found")

	n.settings.Suppression.Suppress()

	diff := newDisplayable.Subtract(liveDisplayable)
	res.NewPackages = diff.Packages()
	n.logger.Debug().Strs("packages", diff.Names()).Msg("Changed packages")

	if n.settings.NotificationsEnabled() {
		if err := n.sink.Send(ctx, TitleNewOutdatedPackages, notify.FormatList(diff.Names())); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to send notification")
		} else {
			res.Notified = true
		}
	}

	n.live.SetPackages(fresh.Packages())

	n.afterFunc(n.resetDelay, n.settings.Suppression.Allow)

	return res
}

// CheckNow is the manual "check for updates" action. It computes outdated
// packages straight into the live tracker; the count observer decides
// whether to notify. The suppression flag is not consulted.
func (n *Notifier) CheckNow(ctx context.Context) CycleResult {
	res := CycleResult{Trigger: TriggerManual, StartedAt: n.now()}

	before := n.live.Displayable()
	err := n.live.CheckForUpdates(ctx, n.query)

	res.FinishedAt = n.now()
	res.Err = err
	if err == nil {
		after := n.live.Displayable()
		res.OutdatedCount = after.Len()
		res.NewPackages = after.Subtract(before).Packages()
	}
	n.emit(res)
	return res
}

// HandleCountChange reacts to a change in the live tracker's displayable
// outdated count.
func (n *Notifier) HandleCountChange(count int) {
	n.logger.Debug().Int("count", count).Msg("Number of displayable outdated packages changed")

	if count == 0 {
		n.setBadge("")
		return
	}

	if !n.settings.NotificationsEnabled() {
		return
	}

	style := n.settings.Style()
	if style.IncludesBadge() {
		n.setBadge(strconv.Itoa(count))
	}

	if style.IncludesNotification() {
		if !n.settings.Suppression.Allows() {
			n.logger.Debug().Msg("Standard notification suppressed")
			return
		}

		n.logger.Info().Msg("Will try to send notification")

		ctx, cancel := context.WithTimeout(context.Background(), observerSendTimeout)
		defer cancel()
		if err := n.sink.Send(ctx, TitleOutdatedPackages, outdatedCountBody(count)); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to send notification")
		}
	}
}

// RefreshBadge re-applies the badge for the current settings: cleared when
// notifications are off or the style has no badge, the displayable count
// otherwise. Call it after the settings change.
func (n *Notifier) RefreshBadge() {
	count := n.live.DisplayableCount()
	if !n.settings.NotificationsEnabled() || !n.settings.Style().IncludesBadge() || count == 0 {
		n.setBadge("")
		return
	}
	n.setBadge(strconv.Itoa(count))
}

// ApplySettings updates the preferences and refreshes the badge.
func (n *Notifier) ApplySettings(enabled bool, style notify.Style) {
	n.settings.Update(enabled, style)
	n.logger.Info().Bool("enabled", enabled).Str("style", string(style)).Msg("Notification settings changed")
	n.RefreshBadge()
}

func (n *Notifier) setBadge(label string) {
	if n.badge == nil {
		return
	}
	if err := n.badge.SetBadge(label); err != nil {
		n.logger.Warn().Err(err).Str("label", label).Msg("Failed to update badge")
	}
}

func (n *Notifier) emit(res CycleResult) {
	for _, fn := range n.hooks {
		fn(res)
	}
}

func outdatedCountBody(count int) string {
	if count == 1 {
		return "1 outdated package"
	}
	return fmt.Sprintf("%d outdated packages", count)
}
