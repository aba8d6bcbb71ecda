package store

import "database/sql"

// Schema is the audit persistence schema.
//
// audit_records stores one JSON document per (project, bidder) — the
// whole entry map is the unit of atomic replace, guarded by a version
// counter for optimistic concurrency. project_criteria is the criterion
// status source; bidders enumerates the records a project-wide sync
// must visit.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    project_id  TEXT NOT NULL,
    bidder_id   TEXT NOT NULL,
    doc         TEXT NOT NULL,
    version     INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    PRIMARY KEY (project_id, bidder_id)
);

CREATE TABLE IF NOT EXISTS project_criteria (
    project_id   TEXT NOT NULL,
    criterion_id TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT '',
    priority     INTEGER,
    position     INTEGER NOT NULL DEFAULT 0,
    updated_at   INTEGER NOT NULL,
    PRIMARY KEY (project_id, criterion_id)
);
CREATE INDEX IF NOT EXISTS idx_criteria_project ON project_criteria(project_id, position);

CREATE TABLE IF NOT EXISTS bidders (
    project_id  TEXT NOT NULL,
    bidder_id   TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    PRIMARY KEY (project_id, bidder_id)
);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
