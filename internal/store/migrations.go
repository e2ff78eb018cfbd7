package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    started_at   DATETIME NOT NULL,
    finished_at  DATETIME NOT NULL,
    feeds        INTEGER NOT NULL DEFAULT 0,
    failed_feeds INTEGER NOT NULL DEFAULT 0,
    items        INTEGER NOT NULL DEFAULT 0,
    p33          REAL NOT NULL DEFAULT 0,
    p66          REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS signals (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id          TEXT NOT NULL REFERENCES runs(id),
    position        INTEGER NOT NULL,
    published       TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    link            TEXT NOT NULL DEFAULT '',
    category        TEXT NOT NULL,
    primary_keyword TEXT NOT NULL DEFAULT '',
    hit_count       INTEGER NOT NULL DEFAULT 0,
    trend_score     REAL NOT NULL DEFAULT 0,
    status          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id, position);
CREATE INDEX IF NOT EXISTS idx_signals_category ON signals(category);
CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status);
`
