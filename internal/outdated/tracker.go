package outdated

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/blackwell-systems/brewnotify/internal/brew"
)

// Stage is the display stage of a Tracker.
type Stage int

const (
	StageIdle Stage = iota
	StageCheckingForUpdates
)

func (s Stage) String() string {
	switch s {
	case StageCheckingForUpdates:
		return "checkingForUpdates"
	default:
		return "idle"
	}
}

// Tracker holds the live set of outdated packages.
//
// Writes are serialized: SetPackages and SetIgnored run their observers
// before the next write starts, so observers see count changes in order.
// Observers may read the tracker but must not write to it.
type Tracker struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	packages  Snapshot
	ignored   map[string]struct{}
	stage     Stage
	lastCount int

	countObservers []func(count int)
	changeHooks    []func(Snapshot)

	checks singleflight.Group
}

// NewTracker returns an empty tracker that hides the named packages from
// its displayable set.
func NewTracker(ignored []string) *Tracker {
	return &Tracker{ignored: toNameSet(ignored)}
}

// NewIsolated returns an empty tracker sharing t's ignore list but none of
// its observers. Background cycles compute into an isolated tracker so the
// live one is untouched until the comparison is done.
func (t *Tracker) NewIsolated() *Tracker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ignored := make(map[string]struct{}, len(t.ignored))
	for k := range t.ignored {
		ignored[k] = struct{}{}
	}
	return &Tracker{ignored: ignored}
}

// OnDisplayableCountChange registers fn to be called with the new count
// every time the displayable count changes.
func (t *Tracker) OnDisplayableCountChange(fn func(count int)) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.countObservers = append(t.countObservers, fn)
}

// OnChange registers fn to be called with the raw set after every
// SetPackages.
func (t *Tracker) OnChange(fn func(Snapshot)) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.changeHooks = append(t.changeHooks, fn)
}

// Packages returns the raw outdated set.
func (t *Tracker) Packages() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.packages
}

// Displayable returns the outdated packages not on the ignore list.
func (t *Tracker) Displayable() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.displayableLocked()
}

// DisplayableCount returns Displayable().Len().
func (t *Tracker) DisplayableCount() int {
	return t.Displayable().Len()
}

// Stage returns the current display stage.
func (t *Tracker) Stage() Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stage
}

// IsIgnored reports whether name is on the ignore list.
func (t *Tracker) IsIgnored(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.ignored[strings.ToLower(name)]
	return ok
}

// Restore replaces the raw set without notifying observers. It is meant for
// loading persisted state: the restored count becomes the baseline against
// which later changes are detected.
func (t *Tracker) Restore(s Snapshot) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	t.packages = s
	t.lastCount = t.displayableLocked().Len()
	t.mu.Unlock()
}

// SetPackages replaces the raw set and runs change hooks, then count
// observers if the displayable count changed.
func (t *Tracker) SetPackages(s Snapshot) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	t.packages = s
	count, changed := t.recountLocked()
	t.mu.Unlock()

	for _, hook := range t.changeHooks {
		hook(s)
	}
	if changed {
		t.notifyCount(count)
	}
}

// SetIgnored replaces the ignore list. Count observers run if the
// displayable count changed as a result.
func (t *Tracker) SetIgnored(names []string) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	t.ignored = toNameSet(names)
	count, changed := t.recountLocked()
	t.mu.Unlock()

	if changed {
		t.notifyCount(count)
	}
}

// CheckForUpdates computes the outdated set directly into the live tracker.
// The stage is checkingForUpdates while the query runs. Concurrent calls
// share a single query.
func (t *Tracker) CheckForUpdates(ctx context.Context, q Query) error {
	_, err, _ := t.checks.Do("check", func() (interface{}, error) {
		t.setStage(StageCheckingForUpdates)
		defer t.setStage(StageIdle)

		return nil, q.ComputeOutdated(ctx, t)
	})
	return err
}

func (t *Tracker) setStage(s Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = s
}

func (t *Tracker) notifyCount(count int) {
	for _, fn := range t.countObservers {
		fn(count)
	}
}

// recountLocked updates lastCount and reports whether it changed.
func (t *Tracker) recountLocked() (int, bool) {
	count := t.displayableLocked().Len()
	changed := count != t.lastCount
	t.lastCount = count
	return count, changed
}

func (t *Tracker) displayableLocked() Snapshot {
	if len(t.ignored) == 0 {
		return t.packages
	}
	return t.packages.Filter(func(p brew.OutdatedPackage) bool {
		_, hidden := t.ignored[strings.ToLower(p.Name)]
		return !hidden
	})
}

func toNameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
