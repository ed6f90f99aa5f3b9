package runstore

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    test_target TEXT,
    artifact_subdir TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    candidates INTEGER DEFAULT 0,
    compiled INTEGER DEFAULT 0,
    passed INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS results (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    branch TEXT NOT NULL,
    ident TEXT,
    compile BOOLEAN DEFAULT FALSE,
    test BOOLEAN DEFAULT FALSE,
    reached TEXT,
    failed TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_results_branch ON results(branch);
`
