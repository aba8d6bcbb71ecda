package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hazyhaar/pruefbuch/idgen"
)

// BusinessEvent represents a domain-level event to record.
type BusinessEvent struct {
	EventType   string
	ServiceName string
	EntityType  string
	EntityID    string
	Actor       string
	Action      string
	Details     string // optional JSON
	Success     bool
}

// EventLogger writes business events and sync warnings.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given observability database.
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records a business event. Errors are logged via slog but do
// not propagate, so a failing observability store never blocks the app.
func (l *EventLogger) LogEvent(ctx context.Context, event BusinessEvent) {
	eventID := l.newID()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO business_event_logs (
			event_id, event_type, service_name, entity_type, entity_id,
			actor, action, details, success, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		eventID, event.EventType, event.ServiceName, event.EntityType, event.EntityID,
		event.Actor, event.Action, event.Details, event.Success, time.Now().Unix())
	if err != nil {
		slog.Error("observability event log failed", "error", err, "event_type", event.EventType)
	}
}

// Warning is a persisted synchronization warning (e.g. a source entry
// skipped for a missing id).
type Warning struct {
	WarningID string
	ProjectID string
	BidderID  string
	Reason    string
	Payload   string
	CreatedAt time.Time
}

// LogWarning records a sync warning. Same non-propagating policy as LogEvent.
func (l *EventLogger) LogWarning(ctx context.Context, w Warning) {
	if w.WarningID == "" {
		w.WarningID = idgen.Prefixed("wrn_", idgen.Default)()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_warnings (warning_id, project_id, bidder_id, reason, payload, created_at)
		VALUES (?,?,?,?,?,?)`,
		w.WarningID, w.ProjectID, w.BidderID, w.Reason, w.Payload, time.Now().Unix())
	if err != nil {
		slog.Error("observability warning log failed", "error", err, "reason", w.Reason)
	}
}

// Warnings returns the most recent warnings for a project, newest first.
func (l *EventLogger) Warnings(ctx context.Context, projectID string, limit int) ([]Warning, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT warning_id, project_id, bidder_id, reason, payload, created_at
		FROM sync_warnings WHERE project_id = ?
		ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Warning
	for rows.Next() {
		var w Warning
		var ts int64
		if err := rows.Scan(&w.WarningID, &w.ProjectID, &w.BidderID, &w.Reason, &w.Payload, &ts); err != nil {
			return nil, err
		}
		w.CreatedAt = time.Unix(ts, 0)
		out = append(out, w)
	}
	return out, rows.Err()
}
