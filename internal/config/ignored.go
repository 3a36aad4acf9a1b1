package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IgnoredFile is the name of the ignore list inside the config directory.
const IgnoredFile = "ignored"

// LoadIgnored reads the ignore list at {dir}/ignored: one package name per
// line, blank lines and # comments skipped. If the file does not exist, an
// empty list is returned without an error. Names are lowercased and
// deduplicated.
func LoadIgnored(dir string) ([]string, error) {
	path := filepath.Join(dir, IgnoredFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		name := strings.ToLower(line)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if err := scanner.Err(); err != nil {
		return names, err
	}
	return names, nil
}

// SaveIgnored writes names to {dir}/ignored, sorted, creating dir if needed.
func SaveIgnored(dir string, names []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("# Packages brewnotify never reports as outdated, one per line.\n")
	for _, n := range sorted {
		b.WriteString(n)
		b.WriteByte('\n')
	}

	// Write to a temp file and rename so the daemon's watcher never sees a
	// half-written list.
	tmp := filepath.Join(dir, "."+IgnoredFile+".tmp")
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write ignore list: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, IgnoredFile)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace ignore list: %w", err)
	}
	return nil
}

// AddIgnored adds name to the ignore list. It reports false if the name was
// already present.
func AddIgnored(dir, name string) (bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false, fmt.Errorf("package name is empty")
	}
	names, err := LoadIgnored(dir)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return false, nil
		}
	}
	return true, SaveIgnored(dir, append(names, name))
}

// RemoveIgnored removes name from the ignore list. It reports false if the
// name was not present.
func RemoveIgnored(dir, name string) (bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	names, err := LoadIgnored(dir)
	if err != nil {
		return false, err
	}
	kept := names[:0]
	removed := false
	for _, n := range names {
		if n == name {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	if !removed {
		return false, nil
	}
	return true, SaveIgnored(dir, kept)
}
