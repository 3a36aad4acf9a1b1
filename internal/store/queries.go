package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blackwell-systems/brewnotify/internal/brew"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Outdated package operations

// SaveOutdated replaces the persisted outdated set with pkgs.
func (s *Store) SaveOutdated(pkgs []brew.OutdatedPackage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM outdated_packages`); err != nil {
		tx.Rollback() //nolint:errcheck
		return wrapErr(err, "failed to clear outdated packages")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO outdated_packages (kind, name, installed_versions, current_version, pinned)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range pkgs {
		versions, err := json.Marshal(p.InstalledVersions)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("failed to marshal installed versions for %s: %w", p.Name, err)
		}
		if _, err := stmt.Exec(string(p.Kind), p.Name, string(versions), p.CurrentVersion, p.Pinned); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("failed to insert outdated package %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outdated packages: %w", err)
	}
	return nil
}

// LoadOutdated returns the persisted outdated set ordered by kind and name.
func (s *Store) LoadOutdated() ([]brew.OutdatedPackage, error) {
	rows, err := s.db.Query(`
		SELECT kind, name, installed_versions, current_version, pinned
		FROM outdated_packages
		ORDER BY kind DESC, name
	`)
	if err != nil {
		return nil, wrapErr(err, "failed to load outdated packages")
	}
	defer rows.Close()

	var pkgs []brew.OutdatedPackage
	for rows.Next() {
		var p brew.OutdatedPackage
		var kind, versions string
		var current sql.NullString
		if err := rows.Scan(&kind, &p.Name, &versions, &current, &p.Pinned); err != nil {
			return nil, fmt.Errorf("failed to scan outdated package row: %w", err)
		}
		p.Kind = brew.Kind(kind)
		p.CurrentVersion = current.String
		if err := json.Unmarshal([]byte(versions), &p.InstalledVersions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal installed versions for %s: %w", p.Name, err)
		}
		pkgs = append(pkgs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outdated packages: %w", err)
	}

	return pkgs, nil
}

// Check history operations

// RecordCheck inserts a check run and sets its ID.
func (s *Store) RecordCheck(run *CheckRun) error {
	newPkgs := run.NewPackages
	if newPkgs == nil {
		newPkgs = []string{}
	}
	newJSON, err := json.Marshal(newPkgs)
	if err != nil {
		return fmt.Errorf("failed to marshal new packages: %w", err)
	}

	var errText sql.NullString
	if run.Error != "" {
		errText = sql.NullString{String: run.Error, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO check_runs (trigger_kind, started_at, finished_at, outdated_count, new_packages, notified, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.Trigger,
		run.StartedAt.UTC().Format(timeFormat),
		run.FinishedAt.UTC().Format(timeFormat),
		run.OutdatedCount,
		string(newJSON),
		run.Notified,
		errText,
	)
	if err != nil {
		return wrapErr(err, "failed to record check run")
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get check run ID: %w", err)
	}
	return nil
}

// ListChecks returns the most recent check runs, newest first. A limit of
// zero or less returns all of them.
func (s *Store) ListChecks(limit int) ([]*CheckRun, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, trigger_kind, started_at, finished_at, outdated_count, new_packages, notified, error
		FROM check_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapErr(err, "failed to list check runs")
	}
	defer rows.Close()

	var runs []*CheckRun
	for rows.Next() {
		run, err := scanCheckRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check runs: %w", err)
	}

	return runs, nil
}

// LastCheck returns the most recent check run, or nil if there is none.
func (s *Store) LastCheck() (*CheckRun, error) {
	runs, err := s.ListChecks(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckRun(row scanner) (*CheckRun, error) {
	var run CheckRun
	var startedAt, finishedAt, newJSON string
	var errText sql.NullString

	if err := row.Scan(&run.ID, &run.Trigger, &startedAt, &finishedAt, &run.OutdatedCount, &newJSON, &run.Notified, &errText); err != nil {
		return nil, fmt.Errorf("failed to scan check run row: %w", err)
	}

	var err error
	run.StartedAt, err = time.Parse(timeFormat, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for check run %d: %w", run.ID, err)
	}
	run.FinishedAt, err = time.Parse(timeFormat, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finished_at for check run %d: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(newJSON), &run.NewPackages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal new packages for check run %d: %w", run.ID, err)
	}
	run.Error = errText.String

	return &run, nil
}

// Badge operations

// SetBadge persists the badge label. An empty label clears the badge.
func (s *Store) SetBadge(label string) error {
	_, err := s.db.Exec(`
		INSERT INTO badge (id, label, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label, updated_at = excluded.updated_at
	`, label, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return wrapErr(err, "failed to set badge")
	}
	return nil
}

// GetBadge returns the persisted badge. A badge never set is empty.
func (s *Store) GetBadge() (Badge, error) {
	var b Badge
	var updatedAt string
	err := s.db.QueryRow(`SELECT label, updated_at FROM badge WHERE id = 1`).Scan(&b.Label, &updatedAt)
	if err == sql.ErrNoRows {
		return Badge{}, nil
	}
	if err != nil {
		return Badge{}, wrapErr(err, "failed to get badge")
	}

	b.UpdatedAt, err = time.Parse(timeFormat, updatedAt)
	if err != nil {
		return Badge{}, fmt.Errorf("failed to parse badge updated_at: %w", err)
	}
	return b, nil
}

// Notification operations

// RecordNotification stores a sent notification.
func (s *Store) RecordNotification(title, subtitle string, sentAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO notifications (sent_at, title, subtitle) VALUES (?, ?, ?)
	`, sentAt.UTC().Format(timeFormat), title, subtitle)
	if err != nil {
		return wrapErr(err, "failed to record notification")
	}
	return nil
}

// ListNotifications returns the most recent notifications, newest first.
func (s *Store) ListNotifications(limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, sent_at, title, subtitle
		FROM notifications
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapErr(err, "failed to list notifications")
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		var sentAt string
		if err := rows.Scan(&n.ID, &sentAt, &n.Title, &n.Subtitle); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		n.SentAt, err = time.Parse(timeFormat, sentAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sent_at for notification %d: %w", n.ID, err)
		}
		out = append(out, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return out, nil
}

// PruneHistory deletes check runs and notifications older than cutoff and
// returns the number of rows removed.
func (s *Store) PruneHistory(cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(timeFormat)

	res, err := s.db.Exec(`DELETE FROM check_runs WHERE started_at < ?`, ts)
	if err != nil {
		return 0, wrapErr(err, "failed to prune check runs")
	}
	checks, _ := res.RowsAffected()

	res, err = s.db.Exec(`DELETE FROM notifications WHERE sent_at < ?`, ts)
	if err != nil {
		return 0, wrapErr(err, "failed to prune notifications")
	}
	notes, _ := res.RowsAffected()

	return checks + notes, nil
}
