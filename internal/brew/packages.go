package brew

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// brewOutdatedOutput represents the structure of `brew outdated --json=v2` output
type brewOutdatedOutput struct {
	Formulae []brewOutdatedEntry `json:"formulae"`
	Casks    []brewOutdatedEntry `json:"casks"`
}

// brewOutdatedEntry is shared by formulae and casks; casks never set pinned.
type brewOutdatedEntry struct {
	Name              string   `json:"name"`
	InstalledVersions []string `json:"installed_versions"`
	CurrentVersion    string   `json:"current_version"`
	Pinned            bool     `json:"pinned"`
	PinnedVersion     *string  `json:"pinned_version"`
}

// RefreshIndex runs `brew update` to fetch the newest formula and cask
// definitions. The captured output is informational only.
func (c *Client) RefreshIndex(ctx context.Context) (TerminalOutput, error) {
	return c.run(ctx, "update")
}

// Outdated returns every installed formula and cask that has a newer version
// available in the local index. Run RefreshIndex first for fresh results.
func (c *Client) Outdated(ctx context.Context) ([]OutdatedPackage, error) {
	out, err := c.run(ctx, "outdated", "--json=v2")
	if err != nil {
		// brew outdated can exit non-zero while still printing the report.
		if pkgs, perr := parseOutdated([]byte(out.Stdout)); perr == nil && strings.TrimSpace(out.Stdout) != "" {
			return pkgs, nil
		}
		return nil, err
	}
	return parseOutdated([]byte(out.Stdout))
}

// parseOutdated decodes `brew outdated --json=v2` output. Results are sorted
// by kind then name so callers get a stable order.
func parseOutdated(data []byte) ([]OutdatedPackage, error) {
	if strings.TrimSpace(string(data)) == "" {
		return []OutdatedPackage{}, nil
	}

	var report brewOutdatedOutput
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse brew outdated output: %w", err)
	}

	pkgs := make([]OutdatedPackage, 0, len(report.Formulae)+len(report.Casks))
	for _, f := range report.Formulae {
		if f.Name == "" {
			continue
		}
		pkgs = append(pkgs, OutdatedPackage{
			Name:              f.Name,
			Kind:              KindFormula,
			InstalledVersions: f.InstalledVersions,
			CurrentVersion:    f.CurrentVersion,
			Pinned:            f.Pinned,
		})
	}
	for _, cask := range report.Casks {
		if cask.Name == "" {
			continue
		}
		pkgs = append(pkgs, OutdatedPackage{
			Name:              cask.Name,
			Kind:              KindCask,
			InstalledVersions: cask.InstalledVersions,
			CurrentVersion:    cask.CurrentVersion,
		})
	}

	sort.Slice(pkgs, func(i, j int) bool {
		if pkgs[i].Kind != pkgs[j].Kind {
			return pkgs[i].Kind == KindFormula
		}
		return pkgs[i].Name < pkgs[j].Name
	})

	return pkgs, nil
}

// Version returns the first line of `brew --version`, e.g. "Homebrew 4.3.1".
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out.Stdout), "\n")
	return strings.TrimSpace(line), nil
}

// Prefix returns the Homebrew installation prefix
func (c *Client) Prefix(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--prefix")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}
