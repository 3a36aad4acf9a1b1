// Package backup exports the installed package set to a Brewfile and
// restores it with brew bundle.
package backup

import (
	"context"
	"time"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/config"
)

// BaseName is the default export name before the date is appended.
const BaseName = "Brewfile Backup"

// Bundler is the part of the brew client the manager needs.
type Bundler interface {
	DumpBrewfile(ctx context.Context) (string, error)
	ImportBrewfile(ctx context.Context, path string) (brew.TerminalOutput, error)
}

// Backup describes an exported Brewfile on disk.
type Backup struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// Manager writes and restores Brewfile backups in one directory.
type Manager struct {
	bundler    Bundler
	dir        string
	dateFormat config.DateFormat
	now        func() time.Time
}

// New creates a backup Manager. An empty dateFormat means numeric.
func New(bundler Bundler, dir string, dateFormat config.DateFormat) *Manager {
	if dateFormat == "" {
		dateFormat = config.DateNumeric
	}
	return &Manager{
		bundler:    bundler,
		dir:        dir,
		dateFormat: dateFormat,
		now:        time.Now,
	}
}

// Dir returns the directory exports are written to by default.
func (m *Manager) Dir() string {
	return m.dir
}
