package database

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    mode TEXT NOT NULL,
    app TEXT,
    framework TEXT,
    runtime TEXT NOT NULL,
    platform TEXT NOT NULL,
    pid INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    status TEXT NOT NULL,
    notes TEXT
);

CREATE TABLE IF NOT EXISTS case_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    test_case TEXT NOT NULL,
    status TEXT NOT NULL,
    warmup_ms REAL,
    started_at TEXT NOT NULL,
    error TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS measurements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    result_id INTEGER NOT NULL,
    test_case TEXT NOT NULL,
    metric TEXT NOT NULL,
    run_index INTEGER NOT NULL,
    value REAL NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id),
    FOREIGN KEY (result_id) REFERENCES case_results(id)
);

CREATE TABLE IF NOT EXISTS history_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    file_path TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    crc32 TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_case_results_run ON case_results(run_id);
CREATE INDEX IF NOT EXISTS idx_measurements_run ON measurements(run_id);
CREATE INDEX IF NOT EXISTS idx_measurements_case ON measurements(test_case, metric);
CREATE INDEX IF NOT EXISTS idx_history_files_path ON history_files(file_path);
`
