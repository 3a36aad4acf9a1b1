package brew

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRunner records invocations and replays canned output.
type fakeRunner struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.stdout), []byte(f.stderr), f.err
}

const mockOutdatedJSON = `{
  "formulae": [
    {
      "name": "wget",
      "installed_versions": ["1.21.3"],
      "current_version": "1.24.5",
      "pinned": false,
      "pinned_version": null
    },
    {
      "name": "openssl@3",
      "installed_versions": ["3.1.0", "3.2.0"],
      "current_version": "3.3.1",
      "pinned": true,
      "pinned_version": "3.2.0"
    }
  ],
  "casks": [
    {
      "name": "firefox",
      "installed_versions": ["125.0"],
      "current_version": "126.0"
    }
  ]
}`

func TestParseOutdated(t *testing.T) {
	pkgs, err := parseOutdated([]byte(mockOutdatedJSON))
	if err != nil {
		t.Fatalf("parseOutdated() error = %v", err)
	}

	if len(pkgs) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(pkgs))
	}

	// Formulae sort before casks, then by name.
	wantOrder := []string{"formula:openssl@3", "formula:wget", "cask:firefox"}
	for i, key := range wantOrder {
		if pkgs[i].Key() != key {
			t.Errorf("pkgs[%d].Key() = %q, want %q", i, pkgs[i].Key(), key)
		}
	}

	openssl := pkgs[0]
	if !openssl.Pinned {
		t.Error("expected openssl@3 to be pinned")
	}
	if openssl.InstalledVersion() != "3.1.0, 3.2.0" {
		t.Errorf("InstalledVersion() = %q", openssl.InstalledVersion())
	}
	if openssl.CurrentVersion != "3.3.1" {
		t.Errorf("CurrentVersion = %q, want 3.3.1", openssl.CurrentVersion)
	}

	if pkgs[2].Kind != KindCask {
		t.Errorf("firefox kind = %q, want cask", pkgs[2].Kind)
	}
}

func TestParseOutdatedEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   bool
	}{
		{name: "empty output", input: "", wantCount: 0},
		{name: "whitespace only", input: "  \n", wantCount: 0},
		{name: "empty lists", input: `{"formulae":[],"casks":[]}`, wantCount: 0},
		{name: "missing casks key", input: `{"formulae":[{"name":"jq","installed_versions":["1.6"],"current_version":"1.7"}]}`, wantCount: 1},
		{name: "entry without name skipped", input: `{"formulae":[{"installed_versions":["1"]}],"casks":[]}`, wantCount: 0},
		{name: "malformed json", input: `{"formulae": [`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkgs, err := parseOutdated([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseOutdated() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(pkgs) != tt.wantCount {
				t.Errorf("got %d packages, want %d", len(pkgs), tt.wantCount)
			}
		})
	}
}

func TestOutdated_UsesJSONFlag(t *testing.T) {
	r := &fakeRunner{stdout: mockOutdatedJSON}
	c := NewClientWithRunner("/opt/homebrew/bin/brew", r)

	pkgs, err := c.Outdated(context.Background())
	if err != nil {
		t.Fatalf("Outdated() error = %v", err)
	}
	if len(pkgs) != 3 {
		t.Errorf("expected 3 packages, got %d", len(pkgs))
	}

	want := "/opt/homebrew/bin/brew outdated --json=v2"
	if got := strings.Join(r.calls[0], " "); got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestOutdated_NonZeroExitWithReport(t *testing.T) {
	r := &fakeRunner{stdout: mockOutdatedJSON, err: errors.New("exit status 1")}
	c := NewClientWithRunner("", r)

	pkgs, err := c.Outdated(context.Background())
	if err != nil {
		t.Fatalf("Outdated() should accept a report printed with a non-zero exit, got %v", err)
	}
	if len(pkgs) != 3 {
		t.Errorf("expected 3 packages, got %d", len(pkgs))
	}
}

func TestOutdated_Failure(t *testing.T) {
	r := &fakeRunner{stderr: "Error: no network", err: errors.New("exit status 1")}
	c := NewClientWithRunner("", r)

	_, err := c.Outdated(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no network") {
		t.Errorf("error should include stderr, got %v", err)
	}
}

func TestRefreshIndex_CapturesOutput(t *testing.T) {
	r := &fakeRunner{stdout: "Already up-to-date.\n", stderr: "==> Auto-updating\n"}
	c := NewClientWithRunner("", r)

	out, err := c.RefreshIndex(context.Background())
	if err != nil {
		t.Fatalf("RefreshIndex() error = %v", err)
	}
	if out.Stdout != "Already up-to-date.\n" || out.Stderr != "==> Auto-updating\n" {
		t.Errorf("unexpected output: %+v", out)
	}
	if got := strings.Join(r.calls[0], " "); got != "brew update" {
		t.Errorf("command = %q, want %q", got, "brew update")
	}
}

func TestRefreshIndex_BrewNotFound(t *testing.T) {
	r := &fakeRunner{err: ErrBrewNotFound}
	c := NewClientWithRunner("", r)

	_, err := c.RefreshIndex(context.Background())
	if !errors.Is(err, ErrBrewNotFound) {
		t.Errorf("expected ErrBrewNotFound, got %v", err)
	}
}

func TestVersion_FirstLine(t *testing.T) {
	r := &fakeRunner{stdout: "Homebrew 4.3.1\nHomebrew/homebrew-core (git revision abc)\n"}
	c := NewClientWithRunner("", r)

	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != "Homebrew 4.3.1" {
		t.Errorf("Version() = %q", v)
	}
}

func TestPrefix_Trimmed(t *testing.T) {
	r := &fakeRunner{stdout: "/opt/homebrew\n"}
	c := NewClientWithRunner("", r)

	p, err := c.Prefix(context.Background())
	if err != nil {
		t.Fatalf("Prefix() error = %v", err)
	}
	if p != "/opt/homebrew" {
		t.Errorf("Prefix() = %q", p)
	}
}

func TestOutdatedPackageString(t *testing.T) {
	p := OutdatedPackage{Name: "wget", Kind: KindFormula, InstalledVersions: []string{"1.0"}, CurrentVersion: "2.0"}
	if p.String() != "wget@1.0 -> 2.0" {
		t.Errorf("String() = %q", p.String())
	}
	if p.Key() != "formula:wget" {
		t.Errorf("Key() = %q", p.Key())
	}
}
