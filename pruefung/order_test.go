package pruefung

import "testing"

func TestOpenEntriesOrdering(t *testing.T) {
	// WHAT: Relevant unreviewed entries order by priority descending,
	// ties by id ascending.
	rec := NewRecord("p1", "b1")
	Sync(rec, []Criterion{
		{ID: "b", Status: "ja", Priority: intPtr(10)},
		{ID: "a", Status: "ja", Priority: intPtr(5)},
		{ID: "c", Status: "ja", Priority: intPtr(10)},
	}, syncOpts()...)

	open := OpenEntries(rec)
	got := make([]string, len(open))
	for i, e := range open {
		got[i] = e.ID
	}
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: %v, want %v", got, want)
		}
	}
}

func TestOpenEntriesFilters(t *testing.T) {
	// WHAT: Non-relevant, finalized, and removed entries are excluded;
	// reviewed-but-undecided entries stay in.
	rec := NewRecord("p1", "b1")
	Sync(rec, []Criterion{
		{ID: "F1", Status: "ja"},
		{ID: "F2", Status: "nein"},
		{ID: "F3", Status: "ja.int"},
		{ID: "F4", Status: "ja"},
		{ID: "F5", Status: "optional"},
	}, syncOpts()...)
	RecordReview(rec.Entries["F3"], ReviewInput{Kind: KindAIReview, Outcome: strPtr("ok")}, syncOpts()...)
	RecordReview(rec.Entries["F4"], ReviewInput{Kind: KindApprove}, syncOpts()...)

	open := OpenEntries(rec)
	ids := make(map[string]bool)
	for _, e := range open {
		ids[e.ID] = true
	}
	if !ids["F1"] || !ids["F3"] {
		t.Errorf("missing open entries: %v", ids)
	}
	if ids["F2"] || ids["F4"] || ids["F5"] {
		t.Errorf("unexpected entries: %v", ids)
	}
}

func TestNextOpenNilPriorityLast(t *testing.T) {
	// WHAT: Entries without a priority sort below explicit values,
	// including negative ones.
	rec := NewRecord("p1", "b1")
	Sync(rec, []Criterion{
		{ID: "x", Status: "ja"},
		{ID: "y", Status: "ja", Priority: intPtr(-3)},
	}, syncOpts()...)

	next := NextOpen(rec)
	if next == nil || next.ID != "y" {
		t.Fatalf("next: %+v", next)
	}
}

func TestNextOpenEmpty(t *testing.T) {
	rec := NewRecord("p1", "b1")
	Sync(rec, []Criterion{{ID: "F1", Status: "nein"}}, syncOpts()...)
	if next := NextOpen(rec); next != nil {
		t.Errorf("next should be nil, got %+v", next)
	}
}
