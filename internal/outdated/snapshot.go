// Package outdated tracks the set of Homebrew packages that have newer
// versions available.
//
// A Snapshot is an immutable set of outdated packages keyed by package
// identity. A Tracker holds the live snapshot shown to the user, applies the
// user's ignore list to derive the displayable subset, and notifies
// observers whenever the displayable count changes.
package outdated

import (
	"sort"

	"github.com/blackwell-systems/brewnotify/internal/brew"
)

// Snapshot is an immutable set of outdated packages at a point in time.
// The zero value is an empty set.
type Snapshot struct {
	pkgs map[string]brew.OutdatedPackage
}

// NewSnapshot builds a snapshot from pkgs. Later duplicates of the same
// package replace earlier ones.
func NewSnapshot(pkgs ...brew.OutdatedPackage) Snapshot {
	m := make(map[string]brew.OutdatedPackage, len(pkgs))
	for _, p := range pkgs {
		m[p.Key()] = p
	}
	return Snapshot{pkgs: m}
}

// Len returns the number of packages in the snapshot.
func (s Snapshot) Len() int {
	return len(s.pkgs)
}

// IsEmpty reports whether the snapshot has no packages.
func (s Snapshot) IsEmpty() bool {
	return len(s.pkgs) == 0
}

// Contains reports whether a package with p's identity is in the snapshot.
func (s Snapshot) Contains(p brew.OutdatedPackage) bool {
	_, ok := s.pkgs[p.Key()]
	return ok
}

// Subtract returns the packages in s that are not in other.
func (s Snapshot) Subtract(other Snapshot) Snapshot {
	return s.Filter(func(p brew.OutdatedPackage) bool {
		return !other.Contains(p)
	})
}

// Filter returns the packages in s for which keep returns true.
func (s Snapshot) Filter(keep func(brew.OutdatedPackage) bool) Snapshot {
	m := make(map[string]brew.OutdatedPackage, len(s.pkgs))
	for k, p := range s.pkgs {
		if keep(p) {
			m[k] = p
		}
	}
	return Snapshot{pkgs: m}
}

// Packages returns the packages sorted by kind (formulae first) then name.
func (s Snapshot) Packages() []brew.OutdatedPackage {
	out := make([]brew.OutdatedPackage, 0, len(s.pkgs))
	for _, p := range s.pkgs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == brew.KindFormula
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns the package names in the order of Packages.
func (s Snapshot) Names() []string {
	pkgs := s.Packages()
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return names
}
