package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultName returns the export name for the current date, e.g.
// "Brewfile Backup 3-1-2024". Slashes in the date become dashes so the name
// is a valid file name. With the omitted format it is just BaseName.
func (m *Manager) DefaultName() string {
	layout := m.dateFormat.Layout()
	if layout == "" {
		return BaseName
	}
	date := strings.ReplaceAll(m.now().Format(layout), "/", "-")
	return BaseName + " " + date
}

// Export dumps the installed package set into dir/name. An empty dir uses
// the manager's directory and an empty name uses DefaultName. An existing
// file is never overwritten: a numeric suffix is added instead. It returns
// the path written.
func (m *Manager) Export(ctx context.Context, dir, name string) (string, error) {
	if dir == "" {
		dir = m.dir
	}
	if name == "" {
		name = m.DefaultName()
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("backup name %q must not contain a path separator", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	contents, err := m.bundler.DumpBrewfile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to dump Brewfile: %w", err)
	}

	path := uniquePath(filepath.Join(dir, name))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("failed to write Brewfile: %w", err)
	}
	return path, nil
}

// List returns the backups in the manager's directory, newest first.
func (m *Manager) List() ([]Backup, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Backup
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), BaseName) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Backup{
			Name:    e.Name(),
			Path:    filepath.Join(m.dir, e.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].ModTime.Equal(backups[j].ModTime) {
			return backups[i].ModTime.After(backups[j].ModTime)
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s %d", path, i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
