package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/config"
	"github.com/blackwell-systems/brewnotify/internal/notifier"
	"github.com/blackwell-systems/brewnotify/internal/notify"
	"github.com/blackwell-systems/brewnotify/internal/scheduler"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

func newTestWatcher(t *testing.T, q *fakeQuery, sink *recordingSink, opts ...Option) *Watcher {
	t.Helper()
	st := setupTestStore(t)
	opts = append([]Option{
		WithIgnoreDir(t.TempDir()),
		WithResetDelay(10 * time.Millisecond),
		WithLogger(zerolog.Nop()),
	}, opts...)
	w, err := New(st, q, sink, testConfig(), opts...)
	require.NoError(t, err)
	return w
}

func TestNewValidation(t *testing.T) {
	st := setupTestStore(t)

	_, err := New(nil, &fakeQuery{}, &recordingSink{}, testConfig())
	assert.Error(t, err)

	_, err = New(st, &fakeQuery{}, &recordingSink{}, nil)
	assert.Error(t, err)
}

func TestBackgroundCycleNotifiesAndPersists(t *testing.T) {
	verifyNoLeaks(t)

	q := &fakeQuery{}
	q.set(formula("wget"), formula("jq"))
	sink := &recordingSink{}
	w := newTestWatcher(t, q, sink)

	require.NoError(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		last, err := w.store.LastCheck()
		return err == nil && last != nil
	}, 2*time.Second, 10*time.Millisecond)
	w.Stop()

	sent := sink.all()
	require.Len(t, sent, 1, "only the specific notification is sent")
	assert.Equal(t, notifier.TitleNewOutdatedPackages, sent[0].title)
	assert.Equal(t, "jq and wget", sent[0].subtitle)

	last, err := w.store.LastCheck()
	require.NoError(t, err)
	assert.Equal(t, "background", last.Trigger)
	assert.Equal(t, 2, last.OutdatedCount)
	assert.True(t, last.Notified)
	assert.Equal(t, []string{"jq", "wget"}, last.NewPackages)

	persisted, err := w.store.LoadOutdated()
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	badge, err := w.store.GetBadge()
	require.NoError(t, err)
	assert.Equal(t, "2", badge.Label)

	notes, err := w.store.ListNotifications(0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "jq and wget", notes[0].Subtitle)

	// The suppression flag is released after the reset delay.
	assert.Eventually(t, w.notifier.Settings().Suppression.Allows, time.Second, 5*time.Millisecond)
}

func TestRestoreIsSilent(t *testing.T) {
	q := &fakeQuery{}
	sink := &recordingSink{}
	w := newTestWatcher(t, q, sink)

	require.NoError(t, w.store.SaveOutdated([]brew.OutdatedPackage{formula("wget")}))
	require.NoError(t, w.Restore())

	assert.Equal(t, 1, w.Tracker().DisplayableCount())
	assert.Empty(t, sink.all(), "restoring persisted state must not notify")

	badge, err := w.store.GetBadge()
	require.NoError(t, err)
	assert.Equal(t, "1", badge.Label, "badge reflects the restored set")
}

func TestBackgroundCycleAfterRestoreOnlyReportsNew(t *testing.T) {
	verifyNoLeaks(t)

	q := &fakeQuery{}
	q.set(formula("wget"), formula("jq"))
	sink := &recordingSink{}
	w := newTestWatcher(t, q, sink)
	require.NoError(t, w.store.SaveOutdated([]brew.OutdatedPackage{formula("wget")}))

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(sink.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	w.Stop()

	assert.Equal(t, "jq", sink.all()[0].subtitle)
}

func TestCheckNowRecordsManualRun(t *testing.T) {
	q := &fakeQuery{}
	q.set(formula("wget"))
	sink := &recordingSink{}
	w := newTestWatcher(t, q, sink)
	require.NoError(t, w.Restore())

	res := w.CheckNow(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, notifier.TriggerManual, res.Trigger)
	assert.Equal(t, 1, res.OutdatedCount)

	last, err := w.store.LastCheck()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "manual", last.Trigger)
	assert.Equal(t, []string{"wget"}, last.NewPackages)

	// Manual checks go through the count observer: generic notification.
	sent := sink.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notifier.TitleOutdatedPackages, sent[0].title)
	assert.Equal(t, "1 outdated package", sent[0].subtitle)
	assert.Equal(t, 0, q.refreshes, "manual checks do not refresh the index")
}

func TestCycleErrorIsRecorded(t *testing.T) {
	verifyNoLeaks(t)

	q := &fakeQuery{refreshErr: errors.New("brew update failed")}
	sink := &recordingSink{}
	w := newTestWatcher(t, q, sink)

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool {
		last, err := w.store.LastCheck()
		return err == nil && last != nil
	}, 2*time.Second, 10*time.Millisecond)
	w.Stop()

	last, err := w.store.LastCheck()
	require.NoError(t, err)
	assert.Contains(t, last.Error, "brew update failed")
	assert.Empty(t, sink.all())
	assert.Equal(t, 0, w.Tracker().DisplayableCount())
}

func TestReloadAppliesSettings(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	q := &fakeQuery{}
	sink := &recordingSink{}
	w := newTestWatcher(t, q, sink, WithConfigFile(cfgFile), WithIgnoreDir(dir))

	require.NoError(t, w.store.SaveOutdated([]brew.OutdatedPackage{formula("wget"), formula("jq")}))
	require.NoError(t, w.Restore())

	badge, _ := w.store.GetBadge()
	require.Equal(t, "2", badge.Label)

	require.NoError(t, os.WriteFile(cfgFile, []byte("[notifications]\nenabled = false\n"), 0o644))
	w.Reload()

	assert.False(t, w.Notifier().Settings().NotificationsEnabled())
	badge, _ = w.store.GetBadge()
	assert.Equal(t, "", badge.Label, "badge cleared when notifications are disabled")

	require.NoError(t, os.WriteFile(cfgFile, []byte("[notifications]\nenabled = true\nstyle = \"notification\"\n"), 0o644))
	w.Reload()

	assert.Equal(t, notify.StyleNotification, w.Notifier().Settings().Style())
	badge, _ = w.store.GetBadge()
	assert.Equal(t, "", badge.Label, "notification-only style shows no badge")
}

func TestReloadKeepsSettingsOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	w := newTestWatcher(t, &fakeQuery{}, &recordingSink{}, WithConfigFile(cfgFile), WithIgnoreDir(dir))

	require.NoError(t, os.WriteFile(cfgFile, []byte("[notifications]\nstyle = \"loud\"\n"), 0o644))
	w.Reload()

	assert.True(t, w.Notifier().Settings().NotificationsEnabled())
	assert.Equal(t, notify.StyleBoth, w.Notifier().Settings().Style())
}

func TestReloadAppliesIgnoreList(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, &fakeQuery{}, &recordingSink{}, WithIgnoreDir(dir))

	require.NoError(t, w.store.SaveOutdated([]brew.OutdatedPackage{formula("wget"), formula("jq")}))
	require.NoError(t, w.Restore())

	_, err := config.AddIgnored(dir, "wget")
	require.NoError(t, err)
	w.Reload()

	assert.Equal(t, 1, w.Tracker().DisplayableCount())
	assert.Equal(t, 2, w.Tracker().Packages().Len())

	badge, _ := w.store.GetBadge()
	assert.Equal(t, "1", badge.Label)
}

func TestStartTwice(t *testing.T) {
	verifyNoLeaks(t)

	q := &fakeQuery{}
	w := newTestWatcher(t, q, &recordingSink{})

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestPruneHistory(t *testing.T) {
	w := newTestWatcher(t, &fakeQuery{}, &recordingSink{})
	old := time.Now().Add(-90 * 24 * time.Hour)
	require.NoError(t, w.store.RecordNotification("t", "s", old))

	w.pruneHistory()

	notes, err := w.store.ListNotifications(0)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestBackgroundCycleSeesChangesFromOtherProcess(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "brewnotify.db")
	ignoreDir := t.TempDir()
	openWatcher := func(q *fakeQuery, sink *recordingSink) *Watcher {
		st, err := store.Open(dbPath)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		w, err := New(st, q, sink, testConfig(),
			WithIgnoreDir(ignoreDir),
			WithResetDelay(time.Hour),
			WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		require.NoError(t, w.Restore())
		return w
	}
	finished := func(scheduler.Result) {}
	// The reset delay keeps the suppression flag set between the two
	// cycles, so only the specific notifications reach the sink.

	daemonQuery := &fakeQuery{}
	daemonQuery.set(formula("wget"), formula("jq"))
	daemonSink := &recordingSink{}
	daemon := openWatcher(daemonQuery, daemonSink)
	daemon.runCycle(context.Background(), finished)
	require.Len(t, daemonSink.all(), 1)

	// A CLI upgrade empties the outdated set.
	cli := openWatcher(&fakeQuery{}, &recordingSink{})
	require.NoError(t, cli.CheckNow(context.Background()).Err)
	persisted, err := cli.store.LoadOutdated()
	require.NoError(t, err)
	require.Empty(t, persisted)

	daemonQuery.set(formula("curl"))
	daemon.runCycle(context.Background(), finished)

	sent := daemonSink.all()
	require.Len(t, sent, 2, "curl is newly outdated relative to the upgraded state")
	assert.Equal(t, notifier.TitleNewOutdatedPackages, sent[1].title)
	assert.Equal(t, "curl", sent[1].subtitle)

	persisted, err = daemon.store.LoadOutdated()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "curl", persisted[0].Name)
}

func TestBackgroundCycleDoesNotReannounceManualCheck(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "brewnotify.db")
	ignoreDir := t.TempDir()
	q := &fakeQuery{}
	q.set(formula("wget"))

	open := func(sink *recordingSink) *Watcher {
		st, err := store.Open(dbPath)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		w, err := New(st, q, sink, testConfig(),
			WithIgnoreDir(ignoreDir),
			WithResetDelay(time.Hour),
			WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		require.NoError(t, w.Restore())
		return w
	}

	daemonSink := &recordingSink{}
	daemon := open(daemonSink)

	cli := open(&recordingSink{})
	require.NoError(t, cli.CheckNow(context.Background()).Err)

	daemon.runCycle(context.Background(), func(scheduler.Result) {})
	assert.Empty(t, daemonSink.all(), "packages found by a manual check are not new to the daemon")
	assert.Equal(t, 1, daemon.Tracker().DisplayableCount())
}

func TestBackgroundCycleNotifiedWhenAnySinkDelivers(t *testing.T) {
	q := &fakeQuery{}
	q.set(formula("wget"))
	delivered := &recordingSink{}
	noDisplay := notify.SinkFunc(func(ctx context.Context, title, subtitle string) error {
		return errors.New("notify-send: not found")
	})

	st := setupTestStore(t)
	w, err := New(st, q, notify.MultiSink{noDisplay, delivered}, testConfig(),
		WithIgnoreDir(t.TempDir()),
		WithResetDelay(time.Hour),
		WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, w.Restore())

	w.runCycle(context.Background(), func(scheduler.Result) {})

	require.Len(t, delivered.all(), 1)
	last, err := st.LastCheck()
	require.NoError(t, err)
	assert.True(t, last.Notified)

	notes, err := st.ListNotifications(0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "wget", notes[0].Subtitle)
}
