package store

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/pruefbuch/dbopen"
	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return NewStore(db)
}

func TestLoadRecordAbsent(t *testing.T) {
	// WHAT: Loading a record that was never synced yields nil doc and
	// version 0.
	// WHY: Version 0 is the insert signal for the first replace.
	s := openTestStore(t)
	doc, version, err := s.LoadRecord(context.Background(), "p1", "b1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc != nil || version != 0 {
		t.Errorf("got doc=%v version=%d", doc, version)
	}
}

func TestReplaceAndLoadRecord(t *testing.T) {
	// WHAT: Insert, reload, update with matching version.
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceRecord(ctx, "p1", "b1", []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	doc, version, err := s.LoadRecord(ctx, "p1", "b1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(doc) != `{"a":1}` || version != 1 {
		t.Errorf("got doc=%s version=%d", doc, version)
	}

	if err := s.ReplaceRecord(ctx, "p1", "b1", []byte(`{"a":2}`), 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc, version, _ = s.LoadRecord(ctx, "p1", "b1")
	if string(doc) != `{"a":2}` || version != 2 {
		t.Errorf("after update: doc=%s version=%d", doc, version)
	}
}

func TestReplaceRecordVersionConflict(t *testing.T) {
	// WHAT: Stale versions and duplicate inserts are rejected.
	// WHY: The version check is the lost-update guard; a silent merge
	// here would interleave two operations' events.
	s := openTestStore(t)
	ctx := context.Background()

	s.ReplaceRecord(ctx, "p1", "b1", []byte(`{}`), 0)

	if err := s.ReplaceRecord(ctx, "p1", "b1", []byte(`{}`), 0); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("duplicate insert: err = %v", err)
	}
	if err := s.ReplaceRecord(ctx, "p1", "b1", []byte(`{}`), 7); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale version: err = %v", err)
	}
}

func TestCriteriaRoundTrip(t *testing.T) {
	// WHAT: ReplaceCriteria stores rows in order; NULL priority
	// round-trips as nil.
	s := openTestStore(t)
	ctx := context.Background()
	ten := 10

	err := s.ReplaceCriteria(ctx, "p1", []Criterion{
		{ID: "F2", Status: "ja", Priority: &ten},
		{ID: "F1", Status: "nein"},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.Criteria(ctx, "p1")
	if err != nil {
		t.Fatalf("criteria: %v", err)
	}
	if len(got) != 2 || got[0].ID != "F2" || got[1].ID != "F1" {
		t.Fatalf("order: %+v", got)
	}
	if got[0].Priority == nil || *got[0].Priority != 10 {
		t.Errorf("priority: %v", got[0].Priority)
	}
	if got[1].Priority != nil {
		t.Errorf("nil priority not preserved: %v", got[1].Priority)
	}

	// Full replace drops rows no longer listed.
	s.ReplaceCriteria(ctx, "p1", []Criterion{{ID: "F1", Status: "ja"}})
	got, _ = s.Criteria(ctx, "p1")
	if len(got) != 1 || got[0].ID != "F1" {
		t.Errorf("after replace: %+v", got)
	}
}

func TestBidders(t *testing.T) {
	// WHAT: Upsert is idempotent and listing is scoped per project.
	s := openTestStore(t)
	ctx := context.Background()

	s.UpsertBidder(ctx, "p1", "b1", "Firma Alpha")
	s.UpsertBidder(ctx, "p1", "b1", "Firma Alpha GmbH")
	s.UpsertBidder(ctx, "p1", "b2", "Firma Beta")
	s.UpsertBidder(ctx, "p2", "b9", "Elsewhere")

	got, err := s.Bidders(ctx, "p1")
	if err != nil {
		t.Fatalf("bidders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("count: %d", len(got))
	}
	if got[0].BidderID != "b1" || got[0].Name != "Firma Alpha GmbH" {
		t.Errorf("upsert name: %+v", got[0])
	}

	// A nameless registration (sync path) must not blank the name.
	s.UpsertBidder(ctx, "p1", "b1", "")
	got, _ = s.Bidders(ctx, "p1")
	if got[0].Name != "Firma Alpha GmbH" {
		t.Errorf("name after empty upsert: %q", got[0].Name)
	}
}
