package pruefung

import (
	"math"
	"sort"
)

// OpenEntries returns the entries still awaiting a decision for review
// consumption: relevant status, derived state not yet approved or
// rejected. Ordered by priority descending, ties broken by id ascending;
// entries without a priority sort below every explicit value.
func OpenEntries(rec *Record) []*Entry {
	var open []*Entry
	for _, e := range rec.Entries {
		if !e.Status.Relevant() {
			continue
		}
		if e.Audit.State.Final() {
			continue
		}
		open = append(open, e)
	}

	sort.Slice(open, func(i, j int) bool {
		pi, pj := priorityRank(open[i]), priorityRank(open[j])
		if pi != pj {
			return pi > pj
		}
		return open[i].ID < open[j].ID
	})
	return open
}

// NextOpen returns the first open entry per the ordering rule, or nil
// when the bidder has nothing left to review.
func NextOpen(rec *Record) *Entry {
	open := OpenEntries(rec)
	if len(open) == 0 {
		return nil
	}
	return open[0]
}

// priorityRank maps a missing priority below any explicit value.
func priorityRank(e *Entry) int {
	if e.Priority == nil {
		return math.MinInt
	}
	return *e.Priority
}
