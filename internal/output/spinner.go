package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY reports whether w is a file descriptor attached to a terminal.
// Plain writers such as *bytes.Buffer are never TTYs.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Spinner shows an indeterminate progress indicator while a check runs.
// On a non-TTY writer it prints the message once and does not animate.
type Spinner struct {
	message   string
	frames    []string
	interval  time.Duration
	writer    io.Writer
	showTime  bool
	startTime time.Time

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a stopped spinner writing to stdout.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		frames:   []string{"|", "/", "-", "\\"},
		interval: 100 * time.Millisecond,
		writer:   os.Stdout,
	}
}

// WithElapsed appends "(Ns elapsed)" to the message. Call before Start.
func (s *Spinner) WithElapsed() *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showTime = true
	return s
}

// SetWriter sets the output writer.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.startTime = time.Now()
	s.done = make(chan struct{})

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.wg.Add(1)
	go s.animate(s.done)
}

func (s *Spinner) animate(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s", s.frames[frame], s.lineLocked())
			s.mu.Unlock()
			frame = (frame + 1) % len(s.frames)
		}
	}
}

// lineLocked returns the message with optional timing. Caller holds mu.
func (s *Spinner) lineLocked() string {
	if !s.showTime {
		return s.message
	}
	return fmt.Sprintf("%s (%ds elapsed)", s.message, int(time.Since(s.startTime).Seconds()))
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.lineLocked())+4))
	}
}

// UpdateMessage replaces the message while running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// StopWithMessage stops the spinner and prints a final line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
