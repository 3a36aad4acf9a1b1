package app

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckCommandFlags(t *testing.T) {
	for _, name := range []string{"refresh", "timeout"} {
		if checkCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag on check", name)
		}
	}
	if f := checkCmd.Flags().Lookup("timeout"); f != nil && f.DefValue != "5m0s" {
		t.Errorf("expected --timeout default 5m0s, got %s", f.DefValue)
	}
}

func TestRunCheck_ReportsAndPersists(t *testing.T) {
	env := newTestEnv(t, enabledConfig)

	out := env.mustRun(t, "check")

	for _, want := range []string{"wget", "firefox", "2 outdated packages", "Newly outdated since last check:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if len(env.brew.ran("update")) != 0 {
		t.Error("check without --refresh must not run brew update")
	}

	st := env.openStore(t)
	pkgs, err := st.LoadOutdated()
	if err != nil {
		t.Fatalf("LoadOutdated() error = %v", err)
	}
	if len(pkgs) != 2 {
		t.Errorf("expected 2 persisted packages, got %d", len(pkgs))
	}

	last, err := st.LastCheck()
	if err != nil || last == nil {
		t.Fatalf("LastCheck() = %v, %v", last, err)
	}
	if last.Trigger != "manual" {
		t.Errorf("expected a manual check run, got %q", last.Trigger)
	}
	if last.OutdatedCount != 2 {
		t.Errorf("expected outdated count 2, got %d", last.OutdatedCount)
	}

	badge, err := st.GetBadge()
	if err != nil {
		t.Fatalf("GetBadge() error = %v", err)
	}
	if badge.Label != "2" {
		t.Errorf("expected badge '2', got %q", badge.Label)
	}

	sent := env.notifications()
	if len(sent) != 1 || sent[0] != "Outdated packages found: 2 outdated packages" {
		t.Errorf("expected one generic count notification, got %v", sent)
	}
	notes, err := st.ListNotifications(0)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("expected the notification to be recorded, got %d", len(notes))
	}
}

func TestRunCheck_UnchangedSetIsQuiet(t *testing.T) {
	env := newTestEnv(t, enabledConfig)

	env.mustRun(t, "check")
	out := env.mustRun(t, "check")

	if strings.Contains(out, "Newly outdated") {
		t.Errorf("second check with the same set should report nothing new, got:\n%s", out)
	}
	if sent := env.notifications(); len(sent) != 1 {
		t.Errorf("an unchanged count must not notify again, got %v", sent)
	}
}

func TestRunCheck_NotificationsDisabled(t *testing.T) {
	env := newTestEnv(t, "")

	env.mustRun(t, "check")

	if sent := env.notifications(); len(sent) != 0 {
		t.Errorf("expected no notifications while disabled, got %v", sent)
	}
	badge, err := env.openStore(t).GetBadge()
	if err != nil {
		t.Fatalf("GetBadge() error = %v", err)
	}
	if badge.Label != "" {
		t.Errorf("expected no badge while disabled, got %q", badge.Label)
	}
}

func TestRunCheck_Refresh(t *testing.T) {
	env := newTestEnv(t, "")

	env.mustRun(t, "check", "--refresh")

	if n := len(env.brew.ran("update")); n != 1 {
		t.Errorf("expected brew update to run once, ran %d times", n)
	}
}

func TestRunCheck_BrewFailure(t *testing.T) {
	env := newTestEnv(t, enabledConfig)
	env.brew.outdatedErr = errors.New("exit status 1")

	_, err := env.run(t, "check")
	if err == nil {
		t.Fatal("expected check to fail when brew outdated fails")
	}
	if !strings.Contains(err.Error(), "check failed") {
		t.Errorf("unexpected error: %v", err)
	}

	last, err := env.openStore(t).LastCheck()
	if err != nil || last == nil {
		t.Fatalf("LastCheck() = %v, %v", last, err)
	}
	if last.Error == "" {
		t.Error("expected the failed check to be recorded with its error")
	}
}

func TestRunCheck_RespectsIgnoreList(t *testing.T) {
	env := newTestEnv(t, enabledConfig)

	env.mustRun(t, "ignore", "add", "wget")
	out := env.mustRun(t, "check")

	if !strings.Contains(out, "1 outdated package (1 ignored, use --all)") {
		t.Errorf("expected ignored package to be excluded from the count, got:\n%s", out)
	}
	if sent := env.notifications(); len(sent) != 1 || !strings.HasSuffix(sent[0], "1 outdated package") {
		t.Errorf("expected notification for the displayable count only, got %v", sent)
	}
}
