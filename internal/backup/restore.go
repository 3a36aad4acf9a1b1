package backup

import (
	"context"
	"fmt"
	"os"

	"github.com/blackwell-systems/brewnotify/internal/brew"
)

// Import installs everything listed in the Brewfile at path.
func (m *Manager) Import(ctx context.Context, path string) (brew.TerminalOutput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return brew.TerminalOutput{}, fmt.Errorf("failed to read Brewfile: %w", err)
	}
	if info.IsDir() {
		return brew.TerminalOutput{}, fmt.Errorf("%s is a directory, not a Brewfile", path)
	}

	out, err := m.bundler.ImportBrewfile(ctx, path)
	if err != nil {
		return out, fmt.Errorf("failed to import Brewfile: %w", err)
	}
	return out, nil
}
