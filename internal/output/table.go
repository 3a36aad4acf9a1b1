// Package output renders brewnotify tables and progress for the terminal.
//
// Tables are plain text with optional ANSI color. Color is only emitted when
// stdout is a TTY and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/brewnotify/internal/backup"
	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderOutdatedTable renders outdated packages in the given order. Names
// for which ignored returns true are marked; pass nil to mark none.
func RenderOutdatedTable(pkgs []brew.OutdatedPackage, ignored func(name string) bool) string {
	if len(pkgs) == 0 {
		return "Everything is up to date.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %-8s %-18s %-18s %s\n",
		"Package", "Kind", "Installed", "Available", "Notes"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, p := range pkgs {
		var notes []string
		if p.Pinned {
			notes = append(notes, colorize(colorYellow, "pinned"))
		}
		if ignored != nil && ignored(p.Name) {
			notes = append(notes, colorize(colorGray, "ignored"))
		}

		sb.WriteString(fmt.Sprintf("%-28s %-8s %-18s %-18s %s\n",
			truncate(p.Name, 28),
			string(p.Kind),
			truncate(orDash(p.InstalledVersion()), 18),
			truncate(orDash(p.CurrentVersion), 18),
			strings.Join(notes, ", ")))
	}

	return sb.String()
}

// RenderOutdatedSummary renders the one-line count shown under the table.
func RenderOutdatedSummary(displayable, total int) string {
	noun := "packages"
	if displayable == 1 {
		noun = "package"
	}
	line := fmt.Sprintf("%d outdated %s", displayable, noun)
	if hidden := total - displayable; hidden > 0 {
		line += fmt.Sprintf(" (%d ignored, use --all)", hidden)
	}
	return line
}

// RenderCheckHistory renders check runs, newest first as given.
func RenderCheckHistory(runs []*store.CheckRun) string {
	if len(runs) == 0 {
		return "No checks recorded yet.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %-11s %-9s %-8s %s\n",
		"When", "Trigger", "Duration", "Outdated", "Result"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%-16s %-11s %-9s %-8d %s\n",
			formatRelativeTime(r.StartedAt),
			r.Trigger,
			formatDuration(r.FinishedAt.Sub(r.StartedAt)),
			r.OutdatedCount,
			formatCheckResult(r)))
	}

	return sb.String()
}

func formatCheckResult(r *store.CheckRun) string {
	switch {
	case r.Error != "":
		return colorize(colorRed, "error: "+truncate(r.Error, 40))
	case len(r.NewPackages) > 0 && r.Notified:
		return colorize(colorGreen, fmt.Sprintf("notified: %s", strings.Join(r.NewPackages, ", ")))
	case len(r.NewPackages) > 0:
		return fmt.Sprintf("new: %s", strings.Join(r.NewPackages, ", "))
	default:
		return "no change"
	}
}

// RenderNotifications renders sent notifications, newest first as given.
func RenderNotifications(notes []*store.Notification) string {
	if len(notes) == 0 {
		return "No notifications sent yet.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %-30s %s\n", "When", "Title", "Message"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, n := range notes {
		sb.WriteString(fmt.Sprintf("%-16s %-30s %s\n",
			formatRelativeTime(n.SentAt),
			truncate(n.Title, 30),
			n.Subtitle))
	}

	return sb.String()
}

// RenderBackupTable renders exported Brewfiles.
func RenderBackupTable(backups []backup.Backup) string {
	if len(backups) == 0 {
		return "No Brewfile backups found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-40s %-10s %s\n", "Name", "Size", "Created"))
	sb.WriteString(strings.Repeat("─", 68))
	sb.WriteString("\n")

	for _, b := range backups {
		sb.WriteString(fmt.Sprintf("%-40s %-10s %s\n",
			truncate(b.Name, 40),
			humanize.Bytes(uint64(b.Size)),
			formatRelativeTime(b.ModTime)))
	}

	return sb.String()
}

// formatRelativeTime formats a timestamp as "3 hours ago"; zero is "never".
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatRelativeTime is formatRelativeTime for callers outside the package.
func FormatRelativeTime(t time.Time) string {
	return formatRelativeTime(t)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
