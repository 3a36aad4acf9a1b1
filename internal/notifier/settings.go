package notifier

import (
	"sync"
	"sync/atomic"

	"github.com/blackwell-systems/brewnotify/internal/notify"
)

// SuppressionFlag gates the generic "outdated packages found" notification.
// The zero value allows it.
type SuppressionFlag struct {
	suppressed atomic.Bool
}

// Allows reports whether the generic notification may be sent.
func (f *SuppressionFlag) Allows() bool {
	return !f.suppressed.Load()
}

// Suppress blocks the generic notification until Allow is called.
func (f *SuppressionFlag) Suppress() {
	f.suppressed.Store(true)
}

// Allow restores the default state.
func (f *SuppressionFlag) Allow() {
	f.suppressed.Store(false)
}

// Settings carries the user's notification preferences and the transient
// suppression flag shared by the background cycle and the count observer.
// It is safe for concurrent use; the daemon updates it when the config file
// changes.
type Settings struct {
	mu      sync.RWMutex
	enabled bool
	style   notify.Style

	Suppression SuppressionFlag
}

// NewSettings returns settings with the suppression flag in its default
// "allow" state.
func NewSettings(enabled bool, style notify.Style) *Settings {
	return &Settings{enabled: enabled, style: style}
}

// NotificationsEnabled reports the user's master switch.
func (s *Settings) NotificationsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Style returns the configured notification style.
func (s *Settings) Style() notify.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style
}

// Update replaces the user preferences. The suppression flag is untouched.
func (s *Settings) Update(enabled bool, style notify.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	s.style = style
}
