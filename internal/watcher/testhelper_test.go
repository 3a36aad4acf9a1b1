package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/config"
	"github.com/blackwell-systems/brewnotify/internal/outdated"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

// setupTestStore creates an in-memory SQLite store for tests and registers
// cleanup with t.Cleanup so callers don't need explicit defer.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("setupTestStore: open: %v", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		t.Fatalf("setupTestStore: schema: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testConfig() *config.Config {
	return &config.Config{
		Notifications: config.NotificationsConfig{Enabled: true, Style: "both"},
		Schedule: config.ScheduleConfig{
			Interval:   time.Hour,
			Tolerance:  0,
			RunAtStart: true,
		},
		Backup:  config.BackupConfig{DateFormat: config.DateNumeric},
		History: config.HistoryConfig{Retention: 30 * 24 * time.Hour},
	}
}

func formula(name string) brew.OutdatedPackage {
	return brew.OutdatedPackage{
		Name:              name,
		Kind:              brew.KindFormula,
		InstalledVersions: []string{"1.0"},
		CurrentVersion:    "2.0",
	}
}

// fakeQuery returns a fixed outdated set.
type fakeQuery struct {
	mu         sync.Mutex
	pkgs       []brew.OutdatedPackage
	refreshErr error
	refreshes  int
}

func (q *fakeQuery) set(pkgs ...brew.OutdatedPackage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pkgs = pkgs
}

func (q *fakeQuery) RefreshIndex(ctx context.Context) (brew.TerminalOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.refreshes++
	return brew.TerminalOutput{Stdout: "Already up-to-date."}, q.refreshErr
}

func (q *fakeQuery) ComputeOutdated(ctx context.Context, into *outdated.Tracker) error {
	q.mu.Lock()
	pkgs := append([]brew.OutdatedPackage(nil), q.pkgs...)
	q.mu.Unlock()
	into.SetPackages(outdated.NewSnapshot(pkgs...))
	return nil
}

// sentNotification is one call to a recording sink.
type sentNotification struct {
	title, subtitle string
}

type recordingSink struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (s *recordingSink) Send(ctx context.Context, title, subtitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentNotification{title, subtitle})
	return nil
}

func (s *recordingSink) all() []sentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentNotification(nil), s.sent...)
}

// verifyNoLeaks checks for leaked goroutines once every other cleanup,
// including closing the test store, has run.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })
}
