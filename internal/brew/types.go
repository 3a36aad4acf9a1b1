package brew

import "strings"

// Kind distinguishes Homebrew formulae from casks.
type Kind string

const (
	KindFormula Kind = "formula"
	KindCask    Kind = "cask"
)

// OutdatedPackage is a package whose installed version differs from the
// latest version in the Homebrew index.
type OutdatedPackage struct {
	Name              string
	Kind              Kind
	InstalledVersions []string
	CurrentVersion    string
	Pinned            bool
}

// Key identifies the package independently of its versions. Two outdated
// entries with the same key are the same package.
func (p OutdatedPackage) Key() string {
	return string(p.Kind) + ":" + p.Name
}

// InstalledVersion returns the installed versions joined for display.
func (p OutdatedPackage) InstalledVersion() string {
	return strings.Join(p.InstalledVersions, ", ")
}

// String formats the package as name@installed -> current.
func (p OutdatedPackage) String() string {
	return p.Name + "@" + p.InstalledVersion() + " -> " + p.CurrentVersion
}

// TerminalOutput holds the captured output streams of a brew invocation.
type TerminalOutput struct {
	Stdout string
	Stderr string
}
