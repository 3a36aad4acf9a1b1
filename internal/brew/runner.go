package brew

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrBrewNotFound is returned when the brew executable cannot be located.
var ErrBrewNotFound = errors.New("brew executable not found (is Homebrew installed and on PATH?)")

// Runner executes a command and returns its captured output streams.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. Stdout and stderr are returned even when the
// command exits non-zero.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if errors.Is(err, exec.ErrNotFound) {
		err = ErrBrewNotFound
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// Client invokes the Homebrew CLI.
type Client struct {
	path   string
	runner Runner
}

// NewClient returns a Client for the brew executable at path. An empty path
// means "brew" resolved through PATH.
func NewClient(path string) *Client {
	return NewClientWithRunner(path, ExecRunner{})
}

// NewClientWithRunner returns a Client that executes commands through r.
func NewClientWithRunner(path string, r Runner) *Client {
	if path == "" {
		path = "brew"
	}
	return &Client{path: path, runner: r}
}

// Path returns the brew executable path the client uses.
func (c *Client) Path() string {
	return c.path
}

// run executes brew with args and wraps failures with the subcommand name
// and its stderr.
func (c *Client) run(ctx context.Context, args ...string) (TerminalOutput, error) {
	stdout, stderr, err := c.runner.Run(ctx, c.path, args...)
	out := TerminalOutput{Stdout: string(stdout), Stderr: string(stderr)}
	if err != nil {
		if errors.Is(err, ErrBrewNotFound) {
			return out, err
		}
		sub := ""
		if len(args) > 0 {
			sub = args[0]
		}
		if msg := strings.TrimSpace(out.Stderr); msg != "" {
			return out, fmt.Errorf("brew %s failed: %w (stderr: %s)", sub, err, msg)
		}
		return out, fmt.Errorf("brew %s failed: %w", sub, err)
	}
	return out, nil
}
