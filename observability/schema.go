// Package observability provides SQLite-native monitoring for pruefbuch.
//
// Events write to a dedicated observability database (separate from the
// audit database to avoid write contention). Call Init() on the shared
// *sql.DB first, then pass it to the constructors.
//
// Persistence is non-blocking from the caller's perspective: a failing
// observability store logs via slog and never propagates.
package observability

import "database/sql"

// Schema holds the observability tables.
const Schema = `
CREATE TABLE IF NOT EXISTS business_event_logs (
    event_id     TEXT PRIMARY KEY,
    event_type   TEXT NOT NULL,
    service_name TEXT NOT NULL,
    entity_type  TEXT NOT NULL DEFAULT '',
    entity_id    TEXT NOT NULL DEFAULT '',
    actor        TEXT NOT NULL DEFAULT '',
    action       TEXT NOT NULL DEFAULT '',
    details      TEXT NOT NULL DEFAULT '',
    success      INTEGER NOT NULL DEFAULT 1,
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type_time ON business_event_logs(event_type, created_at DESC);

CREATE TABLE IF NOT EXISTS sync_warnings (
    warning_id  TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL,
    bidder_id   TEXT NOT NULL DEFAULT '',
    reason      TEXT NOT NULL,
    payload     TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_warnings_project ON sync_warnings(project_id, created_at DESC);
`

// Init creates the observability tables on the given database.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
