package pruefung

import (
	"time"

	"github.com/hazyhaar/pruefbuch/idgen"
)

// SyncResult summarises one sync pass over an audit record.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Reset   int `json:"reset"`
	Removed int `json:"removed"`

	// Skipped holds malformed source entries (missing id). They are
	// reported, never fatal: the rest of the sync always runs.
	Skipped []Criterion `json:"skipped,omitempty"`
}

// Changed reports whether the pass appended at least one event.
func (r SyncResult) Changed() bool {
	return r.Created > 0 || r.Updated > 0 || r.Removed > 0
}

type syncConfig struct {
	now   func() time.Time
	newID idgen.Generator
}

// SyncOption customises a sync pass (clock and event IDs, for tests).
type SyncOption func(*syncConfig)

// WithClock sets the event timestamp source. Default: time.Now.
func WithClock(now func() time.Time) SyncOption {
	return func(c *syncConfig) { c.now = now }
}

// WithIDGenerator sets the event ID generator. Default: "ev_"-prefixed UUIDv7.
func WithIDGenerator(gen idgen.Generator) SyncOption {
	return func(c *syncConfig) { c.newID = gen }
}

func newSyncConfig(opts []SyncOption) syncConfig {
	cfg := syncConfig{
		now:   time.Now,
		newID: idgen.Prefixed("ev_", idgen.Default),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Sync reconciles the project criteria list into the audit record.
//
// Every listed id is synchronized regardless of relevance. New ids get
// an entry with one copied event. A changed status on a finalized entry
// appends reset then copied; on a non-final entry just copied. An
// unchanged status appends nothing, so a repeated pass is a no-op.
// Ids absent from the list get the entfernt sentinel and one removed
// event. Assessment is never touched here; that is the recorder's
// invariant.
func Sync(rec *Record, criteria []Criterion, opts ...SyncOption) SyncResult {
	cfg := newSyncConfig(opts)
	var res SyncResult

	if rec.Entries == nil {
		rec.Entries = make(map[string]*Entry)
	}

	seen := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		if c.ID == "" {
			res.Skipped = append(res.Skipped, c)
			continue
		}
		seen[c.ID] = true

		entry, ok := rec.Entries[c.ID]
		if !ok {
			entry = &Entry{
				ID:       c.ID,
				Status:   c.Status,
				Priority: c.Priority,
			}
			entry.appendEvent(Event{
				ID:           cfg.newID(),
				Time:         cfg.now(),
				Kind:         KindCopied,
				SourceStatus: statusPtr(c.Status),
				Actor:        ActorSystem,
			})
			rec.Entries[c.ID] = entry
			res.Created++
			continue
		}

		// Priority refreshes unconditionally, without an event.
		entry.Priority = c.Priority

		if entry.Status == c.Status {
			continue
		}

		// A finalized decision must not silently persist across a
		// changed criterion definition: reset first, then copy.
		if entry.Audit.State.Final() {
			entry.appendEvent(Event{
				ID:    cfg.newID(),
				Time:  cfg.now(),
				Kind:  KindReset,
				Actor: ActorSystem,
			})
			res.Reset++
		}
		entry.Status = c.Status
		entry.appendEvent(Event{
			ID:           cfg.newID(),
			Time:         cfg.now(),
			Kind:         KindCopied,
			SourceStatus: statusPtr(c.Status),
			Actor:        ActorSystem,
		})
		res.Updated++
	}

	for id, entry := range rec.Entries {
		if seen[id] || entry.Status == StatusEntfernt {
			continue
		}
		entry.Status = StatusEntfernt
		entry.appendEvent(Event{
			ID:    cfg.newID(),
			Time:  cfg.now(),
			Kind:  KindRemoved,
			Actor: ActorSystem,
		})
		res.Removed++
	}

	return res
}

func statusPtr(s Status) *Status { return &s }
