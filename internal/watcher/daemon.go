package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DaemonChildFlag marks the re-executed background process.
const DaemonChildFlag = "--daemon-child"

// ErrDaemonNotRunning is returned by StopDaemon when there is nothing to stop.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StartDaemon re-executes the current binary as `watch --daemon-child`
// in a new session, writes its PID to pidFile and sends its output to
// logFile. extraArgs are appended, e.g. to forward --config.
func StartDaemon(pidFile, logFile string, extraArgs ...string) (int, error) {
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		return 0, fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return 0, fmt.Errorf("daemon already running (PID file: %s)", pidFile)
	}

	for _, p := range []string{pidFile, logFile} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return 0, fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}

	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	args := append([]string{"watch", DaemonChildFlag, "--pid-file", pidFile}, extraArgs...)
	cmd := exec.Command(executable, args...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := writePIDFile(pidFile, pid); err != nil {
		cmd.Process.Kill()
		return 0, err
	}

	if err := cmd.Process.Release(); err != nil {
		return 0, fmt.Errorf("failed to release process: %w", err)
	}

	return pid, nil
}

// RunDaemon runs the watcher until SIGTERM, SIGINT or ctx cancellation,
// then stops it and removes pidFile. It is the body of the daemon child
// and of `brewnotify watch` in the foreground (with an empty pidFile).
func (w *Watcher) RunDaemon(ctx context.Context, pidFile string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if pidFile != "" {
		if err := writePIDFile(pidFile, os.Getpid()); err != nil {
			return err
		}
		defer func() {
			if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
				w.logger.Warn().Err(err).Msg("Failed to remove PID file")
			}
		}()
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	<-ctx.Done()
	w.logger.Info().Msg("Shutting down")
	w.Stop()

	return nil
}

// StopDaemon sends SIGTERM to the daemon and waits up to timeout for it to
// exit.
func StopDaemon(pidFile string, timeout time.Duration) error {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w (PID file not found)", ErrDaemonNotRunning)
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		os.Remove(pidFile)
		return fmt.Errorf("%w (stale PID %d removed)", ErrDaemonNotRunning, pid)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if process.Signal(syscall.Signal(0)) != nil {
			os.Remove(pidFile)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon (PID %d) did not exit within %s", pid, timeout)
}

// IsDaemonRunning reports whether the process named in pidFile is alive.
// A stale PID file is removed.
func IsDaemonRunning(pidFile string) (bool, error) {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return false, nil
		}
		return false, err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidFile)
		return false, nil
	}
	return true, nil
}

// DaemonPID returns the PID recorded in pidFile, or 0 if the daemon is not
// running.
func DaemonPID(pidFile string) int {
	running, err := IsDaemonRunning(pidFile)
	if err != nil || !running {
		return 0
	}
	pid, _ := readPIDFile(pidFile)
	return pid
}

func readPIDFile(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

func writePIDFile(pidFile string, pid int) error {
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}
