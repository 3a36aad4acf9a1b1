package outdated

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/brewnotify/internal/brew"
)

// Query refreshes the package index and computes outdated packages.
type Query interface {
	// RefreshIndex updates the package index. The output is diagnostic only.
	RefreshIndex(ctx context.Context) (brew.TerminalOutput, error)

	// ComputeOutdated replaces into's package set with the current outdated
	// packages. into is left untouched on error.
	ComputeOutdated(ctx context.Context, into *Tracker) error
}

// BrewQuery implements Query with the Homebrew CLI.
type BrewQuery struct {
	client *brew.Client
}

var _ Query = (*BrewQuery)(nil)

// NewBrewQuery returns a Query backed by client.
func NewBrewQuery(client *brew.Client) *BrewQuery {
	return &BrewQuery{client: client}
}

// RefreshIndex runs brew update.
func (q *BrewQuery) RefreshIndex(ctx context.Context) (brew.TerminalOutput, error) {
	return q.client.RefreshIndex(ctx)
}

// ComputeOutdated runs brew outdated and stores the result in into. Results
// arriving after ctx is done are discarded.
func (q *BrewQuery) ComputeOutdated(ctx context.Context, into *Tracker) error {
	pkgs, err := q.client.Outdated(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute outdated packages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	into.SetPackages(NewSnapshot(pkgs...))
	return nil
}
