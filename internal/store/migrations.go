package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME,
	endpoint        TEXT NOT NULL DEFAULT '',
	jql             TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'running'
		CHECK(status IN ('running', 'succeeded', 'failed')),
	pages           INTEGER NOT NULL DEFAULT 0,
	malformed_pages INTEGER NOT NULL DEFAULT 0,
	items           INTEGER NOT NULL DEFAULT 0,
	stages          INTEGER NOT NULL DEFAULT 0,
	output_path     TEXT NOT NULL DEFAULT '',
	uploaded_to     TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
