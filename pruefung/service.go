package pruefung

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/pruefbuch/idgen"
	"github.com/hazyhaar/pruefbuch/observability"
	"github.com/hazyhaar/pruefbuch/pruefung/internal/store"
)

// Service is the audit engine facade: it owns persistence, per-record
// locking, and optimistic retry, and exposes one method per logical
// operation. Each method applies exactly one sync pass or one review
// event per record transaction.
type Service struct {
	store  *store.Store
	events *observability.EventLogger
	logger *slog.Logger
	now    func() time.Time
	newID  idgen.Generator

	maxRetries int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the slog logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEventLogger wires the observability event logger. Optional; when
// absent, warnings and business events only go to slog.
func WithEventLogger(l *observability.EventLogger) Option {
	return func(s *Service) { s.events = l }
}

// WithMaxRetries sets how often a conflicted operation is retried from
// a fresh load before ErrConflict surfaces. Default: 5.
func WithMaxRetries(n int) Option {
	return func(s *Service) { s.maxRetries = n }
}

// WithServiceClock sets the event timestamp source (tests).
func WithServiceClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithServiceIDGenerator sets the event ID generator (tests).
func WithServiceIDGenerator(gen idgen.Generator) Option {
	return func(s *Service) { s.newID = gen }
}

// New creates the service on the given audit database and applies the
// schema (idempotent).
func New(db *sql.DB, opts ...Option) (*Service, error) {
	if err := store.ApplySchema(db); err != nil {
		return nil, fmt.Errorf("pruefung: apply schema: %w", err)
	}
	s := &Service{
		store:      store.NewStore(db),
		logger:     slog.Default(),
		now:        time.Now,
		newID:      idgen.Prefixed("ev_", idgen.Default),
		maxRetries: 5,
		locks:      make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Service) syncOpts() []SyncOption {
	return []SyncOption{WithClock(s.now), WithIDGenerator(s.newID)}
}

// lockFor returns the in-process mutex for one (project, bidder) key.
// It serialises a single process; the version column in the store
// protects across processes.
func (s *Service) lockFor(projectID, bidderID string) *sync.Mutex {
	key := projectID + "\x00" + bidderID
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	return mu
}

// withRecord runs one logical operation against a record: load, apply,
// persist via versioned replace. On a version conflict the whole
// operation reruns from a fresh load. fn reports whether it mutated the
// record; an unchanged record is not rewritten unless a cached state
// had to be repaired.
func (s *Service) withRecord(ctx context.Context, projectID, bidderID string, fn func(rec *Record) (bool, error)) error {
	mu := s.lockFor(projectID, bidderID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		doc, version, err := s.store.LoadRecord(ctx, projectID, bidderID)
		if err != nil {
			return fmt.Errorf("pruefung: load record: %w", err)
		}

		rec := NewRecord(projectID, bidderID)
		if doc != nil {
			if err := json.Unmarshal(doc, &rec.Entries); err != nil {
				return fmt.Errorf("pruefung: decode record: %w", err)
			}
		}

		// Defensive: a cached state diverging from its log is data
		// corruption. The recomputed value wins and is rewritten.
		fixed := ReconcileStates(rec)
		if len(fixed) > 0 {
			s.logger.Warn("audit state diverged from log, repaired",
				"project", projectID, "bidder", bidderID, "criteria", strings.Join(fixed, ","))
			s.logEvent(ctx, observability.BusinessEvent{
				EventType:   "state_repaired",
				ServiceName: "pruefung",
				EntityType:  "audit_record",
				EntityID:    projectID + "/" + bidderID,
				Actor:       string(ActorSystem),
				Details:     fmt.Sprintf(`{"criteria":%q}`, strings.Join(fixed, ",")),
				Success:     true,
			})
		}

		changed, err := fn(rec)
		if err != nil {
			return err
		}
		if !changed && len(fixed) == 0 {
			return nil
		}

		out, err := json.Marshal(rec.Entries)
		if err != nil {
			return fmt.Errorf("pruefung: encode record: %w", err)
		}
		err = s.store.ReplaceRecord(ctx, projectID, bidderID, out, version)
		if errors.Is(err, store.ErrVersionConflict) {
			s.logger.Debug("record version conflict, retrying",
				"project", projectID, "bidder", bidderID, "attempt", attempt)
			continue
		}
		if err != nil {
			return fmt.Errorf("pruefung: replace record: %w", err)
		}
		return nil
	}
	return ErrConflict
}

func (s *Service) logEvent(ctx context.Context, ev observability.BusinessEvent) {
	if s.events != nil {
		s.events.LogEvent(ctx, ev)
	}
}

// SyncBidder runs one synchronization pass for one bidder record and
// registers the bidder for the project (idempotent).
func (s *Service) SyncBidder(ctx context.Context, projectID, bidderID string) (SyncResult, error) {
	if projectID == "" || bidderID == "" {
		return SyncResult{}, fmt.Errorf("%w: project and bidder are required", ErrInvalidInput)
	}

	rows, err := s.store.Criteria(ctx, projectID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("pruefung: load criteria: %w", err)
	}
	criteria := make([]Criterion, len(rows))
	for i, r := range rows {
		criteria[i] = Criterion{ID: r.ID, Status: Status(r.Status), Priority: r.Priority}
	}

	if err := s.store.UpsertBidder(ctx, projectID, bidderID, ""); err != nil {
		return SyncResult{}, fmt.Errorf("pruefung: register bidder: %w", err)
	}

	var res SyncResult
	err = s.withRecord(ctx, projectID, bidderID, func(rec *Record) (bool, error) {
		res = Sync(rec, criteria, s.syncOpts()...)
		return res.Changed(), nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	for _, skipped := range res.Skipped {
		s.logger.Warn("criterion skipped during sync: missing id",
			"project", projectID, "bidder", bidderID, "status", skipped.Status)
		if s.events != nil {
			payload, _ := json.Marshal(skipped)
			s.events.LogWarning(ctx, observability.Warning{
				ProjectID: projectID,
				BidderID:  bidderID,
				Reason:    "criterion missing id",
				Payload:   string(payload),
			})
		}
	}
	if res.Changed() {
		s.logEvent(ctx, observability.BusinessEvent{
			EventType:   "sync_completed",
			ServiceName: "pruefung",
			EntityType:  "audit_record",
			EntityID:    projectID + "/" + bidderID,
			Actor:       string(ActorSystem),
			Details: fmt.Sprintf(`{"created":%d,"updated":%d,"reset":%d,"removed":%d}`,
				res.Created, res.Updated, res.Reset, res.Removed),
			Success: true,
		})
	}
	return res, nil
}

// SyncProject runs a sync pass for every bidder registered on the
// project. One bidder failing does not abort the others; all failures
// are joined into the returned error.
func (s *Service) SyncProject(ctx context.Context, projectID string) (map[string]SyncResult, error) {
	bidders, err := s.store.Bidders(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pruefung: list bidders: %w", err)
	}

	results := make(map[string]SyncResult, len(bidders))
	var errs []error
	for _, b := range bidders {
		res, err := s.SyncBidder(ctx, projectID, b.BidderID)
		if err != nil {
			s.logger.Error("bidder sync failed", "project", projectID, "bidder", b.BidderID, "error", err)
			errs = append(errs, fmt.Errorf("bidder %s: %w", b.BidderID, err))
			continue
		}
		results[b.BidderID] = res
	}
	return results, errors.Join(errs...)
}

// Record appends one review event for one criterion of one bidder and
// returns the updated entry. The criterion must have been seen by a
// sync pass before; otherwise ErrNotFound.
func (s *Service) Record(ctx context.Context, projectID, bidderID, criterionID string, in ReviewInput) (*Entry, error) {
	if criterionID == "" {
		return nil, fmt.Errorf("%w: criterion id is required", ErrInvalidInput)
	}

	var out *Entry
	err := s.withRecord(ctx, projectID, bidderID, func(rec *Record) (bool, error) {
		entry, ok := rec.Entries[criterionID]
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrNotFound, criterionID)
		}
		if err := RecordReview(entry, in, s.syncOpts()...); err != nil {
			return false, err
		}
		out = entry
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, observability.BusinessEvent{
		EventType:   "review_recorded",
		ServiceName: "pruefung",
		EntityType:  "criterion",
		EntityID:    criterionID,
		Actor:       string(in.Actor),
		Action:      string(in.Kind),
		Success:     true,
	})
	return out, nil
}

// NextOpen returns the next unreviewed relevant criterion for a bidder
// per the ordering rule, or nil when nothing is left to review.
func (s *Service) NextOpen(ctx context.Context, projectID, bidderID string) (*Entry, error) {
	var next *Entry
	err := s.withRecord(ctx, projectID, bidderID, func(rec *Record) (bool, error) {
		next = NextOpen(rec)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// GetRecord returns the full audit record for one bidder. A bidder
// never synced yields an empty record, not an error.
func (s *Service) GetRecord(ctx context.Context, projectID, bidderID string) (*Record, error) {
	var out *Record
	err := s.withRecord(ctx, projectID, bidderID, func(rec *Record) (bool, error) {
		out = rec
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListEntries returns the open entries of one bidder in consumption
// order (priority desc, id asc). The full record including closed
// entries comes from GetRecord.
func (s *Service) ListEntries(ctx context.Context, projectID, bidderID string) ([]*Entry, error) {
	var open []*Entry
	err := s.withRecord(ctx, projectID, bidderID, func(rec *Record) (bool, error) {
		open = OpenEntries(rec)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return open, nil
}

// PutCriteria replaces the criterion status source of a project.
// Entries without an id are dropped with a recorded warning, never
// fatally.
func (s *Service) PutCriteria(ctx context.Context, projectID string, criteria []Criterion) error {
	if projectID == "" {
		return fmt.Errorf("%w: project is required", ErrInvalidInput)
	}

	rows := make([]store.Criterion, 0, len(criteria))
	for _, c := range criteria {
		if c.ID == "" {
			s.logger.Warn("criterion dropped: missing id", "project", projectID, "status", c.Status)
			if s.events != nil {
				payload, _ := json.Marshal(c)
				s.events.LogWarning(ctx, observability.Warning{
					ProjectID: projectID,
					Reason:    "criterion missing id",
					Payload:   string(payload),
				})
			}
			continue
		}
		rows = append(rows, store.Criterion{ID: c.ID, Status: string(c.Status), Priority: c.Priority})
	}
	if err := s.store.ReplaceCriteria(ctx, projectID, rows); err != nil {
		return fmt.Errorf("pruefung: replace criteria: %w", err)
	}
	return nil
}

// Criteria returns the project's criterion status source in source order.
func (s *Service) Criteria(ctx context.Context, projectID string) ([]Criterion, error) {
	rows, err := s.store.Criteria(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pruefung: load criteria: %w", err)
	}
	out := make([]Criterion, len(rows))
	for i, r := range rows {
		out[i] = Criterion{ID: r.ID, Status: Status(r.Status), Priority: r.Priority}
	}
	return out, nil
}

// AddBidder registers a bidder for a project.
func (s *Service) AddBidder(ctx context.Context, projectID, bidderID, name string) error {
	if projectID == "" || bidderID == "" {
		return fmt.Errorf("%w: project and bidder are required", ErrInvalidInput)
	}
	return s.store.UpsertBidder(ctx, projectID, bidderID, name)
}

// Bidders lists the bidders registered for a project.
func (s *Service) Bidders(ctx context.Context, projectID string) ([]BidderInfo, error) {
	rows, err := s.store.Bidders(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pruefung: list bidders: %w", err)
	}
	out := make([]BidderInfo, len(rows))
	for i, b := range rows {
		out[i] = BidderInfo{BidderID: b.BidderID, Name: b.Name}
	}
	return out, nil
}

// BidderInfo is the public projection of a registered bidder.
type BidderInfo struct {
	BidderID string `json:"bidder_id"`
	Name     string `json:"name"`
}
