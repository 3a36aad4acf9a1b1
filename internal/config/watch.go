package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce batches the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to a set of files in one directory. It watches the
// directory rather than the files so atomic-rename saves are seen.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	names    map[string]struct{}
	debounce time.Duration
	log      zerolog.Logger

	pending  bool
	lastSeen time.Time
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher watches the named files, which must share a directory.
func NewWatcher(log zerolog.Logger, paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	dir := filepath.Dir(paths[0])
	names := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if filepath.Dir(p) != dir {
			return nil, fmt.Errorf("watched files must share a directory: %s is not in %s", p, dir)
		}
		names[filepath.Base(p)] = struct{}{}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		dir:      dir,
		names:    names,
		debounce: DefaultDebounce,
		log:      log.With().Str("component", "config-watcher").Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period before onChange runs. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching and calls onChange from the watcher goroutine once
// the files have been quiet for the debounce period. It does not block.
func (w *Watcher) Start(ctx context.Context, onChange func()) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Warn().Err(err).Str("dir", w.dir).Msg("failed to create config dir")
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.log.Debug().Str("dir", w.dir).Msg("watching config files")

	go w.run(ctx, onChange)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.log.Error().Err(err).Msg("error closing file watcher")
	}
}

func (w *Watcher) run(ctx context.Context, onChange func()) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("file watcher error")

		case now := <-ticker.C:
			if w.pending && now.Sub(w.lastSeen) >= w.debounce {
				w.pending = false
				onChange()
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if _, ok := w.names[filepath.Base(event.Name)]; !ok {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("config file changed")
	w.pending = true
	w.lastSeen = time.Now()
}
