package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupportedPlatform is returned when no desktop notifier exists for
// the running OS.
var ErrUnsupportedPlatform = errors.New("desktop notifications are not supported on this platform")

// commandFunc runs an external command to completion.
type commandFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", name, err, string(out))
	}
	return nil
}

// DesktopSink shows OS notifications: osascript on macOS, notify-send on
// Linux desktops.
type DesktopSink struct {
	appName string
	goos    string
	run     commandFunc
}

var _ Sink = (*DesktopSink)(nil)

// NewDesktopSink returns a sink for the running OS.
func NewDesktopSink(appName string) (*DesktopSink, error) {
	return newDesktopSink(appName, runtime.GOOS, runCommand)
}

func newDesktopSink(appName, goos string, run commandFunc) (*DesktopSink, error) {
	switch goos {
	case "darwin", "linux", "freebsd", "openbsd", "netbsd":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	return &DesktopSink{appName: appName, goos: goos, run: run}, nil
}

// Send displays the notification.
func (d *DesktopSink) Send(ctx context.Context, title, subtitle string) error {
	if d.goos == "darwin" {
		script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(subtitle), appleScriptString(title))
		if d.appName != "" {
			script = fmt.Sprintf(`display notification %s with title %s subtitle %s`,
				appleScriptString(subtitle), appleScriptString(d.appName), appleScriptString(title))
		}
		return d.run(ctx, "osascript", "-e", script)
	}
	return d.run(ctx, "notify-send", "--app-name="+d.appName, title, subtitle)
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// appleScriptString quotes s as an AppleScript string literal. Only
// backslash and double quote need escaping; other characters, including
// non-ASCII, are passed through as-is.
func appleScriptString(s string) string {
	return `"` + appleScriptEscaper.Replace(s) + `"`
}
