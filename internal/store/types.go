package store

import "time"

// CheckRun records one outdated-package check.
type CheckRun struct {
	ID            int64
	Trigger       string // "background" or "manual"
	StartedAt     time.Time
	FinishedAt    time.Time
	OutdatedCount int
	NewPackages   []string
	Notified      bool
	Error         string
}

// Notification records a notification that was sent.
type Notification struct {
	ID       int64
	SentAt   time.Time
	Title    string
	Subtitle string
}

// Badge is the persisted badge label. An empty label means no badge.
type Badge struct {
	Label     string
	UpdatedAt time.Time
}
