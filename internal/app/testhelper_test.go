package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/config"
	"github.com/blackwell-systems/brewnotify/internal/notify"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

const (
	twoOutdatedJSON = `{
  "formulae": [
    {"name": "wget", "installed_versions": ["1.21.3"], "current_version": "1.24.5", "pinned": false, "pinned_version": null}
  ],
  "casks": [
    {"name": "firefox", "installed_versions": ["125.0"], "current_version": "126.0"}
  ]
}`
	noneOutdatedJSON = `{"formulae": [], "casks": []}`

	testBrewfile = "brew \"wget\"\ncask \"firefox\"\n"
)

// fakeBrew answers brew subcommands with canned output. A successful
// upgrade empties the outdated report.
type fakeBrew struct {
	mu          sync.Mutex
	outdated    string
	outdatedErr error
	calls       [][]string
}

func (f *fakeBrew) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, args)
	if len(args) == 0 {
		return nil, nil, nil
	}
	switch args[0] {
	case "outdated":
		if f.outdatedErr != nil {
			return nil, []byte("Error: no network"), f.outdatedErr
		}
		return []byte(f.outdated), nil, nil
	case "--version":
		return []byte("Homebrew 4.3.1\nHomebrew/homebrew-core (git revision abc123)\n"), nil, nil
	case "--prefix":
		return []byte("/opt/homebrew\n"), nil, nil
	case "update":
		return []byte("Already up-to-date.\n"), nil, nil
	case "upgrade":
		f.outdated = noneOutdatedJSON
		return []byte("==> Upgrading 2 outdated packages\n"), nil, nil
	case "bundle":
		if len(args) > 1 && args[1] == "dump" {
			return []byte(testBrewfile), nil, nil
		}
		return []byte("Homebrew Bundle complete! 2 Brewfile dependencies now installed.\n"), nil, nil
	}
	return nil, nil, nil
}

func (f *fakeBrew) ran(sub string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if len(c) > 0 && c[0] == sub {
			out = append(out, c)
		}
	}
	return out
}

// testEnv isolates one command invocation: temp config, database, state
// directory, a fake brew and a recording notification sink.
type testEnv struct {
	dir        string
	configFile string
	dbFile     string
	brew       *fakeBrew

	mu   sync.Mutex
	sent []string
}

const enabledConfig = `[notifications]
enabled = true
style = "both"

[schedule]
interval = "1h"
tolerance = "0s"
`

// newTestEnv wires the package globals to a temp directory and writes
// configText as the config file. Everything is restored on cleanup.
func newTestEnv(t *testing.T, configText string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configFile: filepath.Join(dir, "config.toml"),
		dbFile:     filepath.Join(dir, "brewnotify.db"),
		brew:       &fakeBrew{outdated: twoOutdatedJSON},
	}
	if configText != "" {
		if err := os.WriteFile(env.configFile, []byte(configText), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
	}

	origStateDir, origConfigDir := stateDir, configDir
	origSink, origClient := newSink, newBrewClient
	t.Cleanup(func() {
		stateDir, configDir = origStateDir, origConfigDir
		newSink, newBrewClient = origSink, origClient
		cfg = nil
		closeLog()
		closeLog = func() {}
		resetFlags(RootCmd)
	})

	stateDir = func() string { return filepath.Join(dir, "state") }
	configDir = func() string { return dir }
	newSink = func(zerolog.Logger) notify.Sink {
		return notify.SinkFunc(func(ctx context.Context, title, subtitle string) error {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.sent = append(env.sent, title+": "+subtitle)
			return nil
		})
	}
	newBrewClient = func() *brew.Client {
		return brew.NewClientWithRunner("brew", env.brew)
	}

	resetFlags(RootCmd)
	return env
}

// run executes the CLI with args against the env's config and database and
// returns what the command wrote to stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(append(args, "--config", e.configFile, "--db", e.dbFile))
	defer RootCmd.SetArgs(nil)

	err := RootCmd.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("brewnotify %v: unexpected error: %v\noutput:\n%s", args, err, out)
	}
	return out
}

func (e *testEnv) notifications() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.sent...)
}

// openStore opens the env's database for assertions.
func (e *testEnv) openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(e.dbFile)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// resetFlags puts every flag back to its default so state does not leak
// between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue) //nolint:errcheck
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// ignoredFile returns the ignore list path for env.
func (e *testEnv) ignoredFile() string {
	return filepath.Join(e.dir, config.IgnoredFile)
}
