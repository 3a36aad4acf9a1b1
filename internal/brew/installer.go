package brew

import (
	"context"
	"fmt"
	"strings"
)

// Upgrade upgrades the named packages via brew upgrade. With no names every
// outdated package is upgraded.
func (c *Client) Upgrade(ctx context.Context, names ...string) (TerminalOutput, error) {
	args := append([]string{"upgrade"}, names...)
	out, err := c.run(ctx, args...)
	if err != nil {
		if len(names) == 0 {
			return out, fmt.Errorf("upgrade all: %w", err)
		}
		return out, fmt.Errorf("upgrade %s: %w", strings.Join(names, " "), err)
	}
	return out, nil
}

// DumpBrewfile returns the Brewfile describing everything currently
// installed, as produced by `brew bundle dump`.
func (c *Client) DumpBrewfile(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "bundle", "dump", "--file=-")
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}

// ImportBrewfile installs everything listed in the Brewfile at path.
func (c *Client) ImportBrewfile(ctx context.Context, path string) (TerminalOutput, error) {
	if path == "" {
		return TerminalOutput{}, fmt.Errorf("brewfile path cannot be empty")
	}
	return c.run(ctx, "bundle", "--file="+path)
}
