package store

const schema = `
CREATE TABLE IF NOT EXISTS outdated_packages (
    kind TEXT NOT NULL,
    name TEXT NOT NULL,
    installed_versions TEXT NOT NULL,
    current_version TEXT,
    pinned BOOLEAN NOT NULL DEFAULT 0,
    PRIMARY KEY (kind, name)
);

CREATE TABLE IF NOT EXISTS check_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trigger_kind TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    outdated_count INTEGER NOT NULL,
    new_packages TEXT NOT NULL,
    notified BOOLEAN NOT NULL DEFAULT 0,
    error TEXT
);

CREATE TABLE IF NOT EXISTS badge (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    label TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sent_at TEXT NOT NULL,
    title TEXT NOT NULL,
    subtitle TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_check_runs_started ON check_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_notifications_sent ON notifications(sent_at);
`
