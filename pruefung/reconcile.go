package pruefung

import "sort"

// ReconcileStates recomputes every cached entry state from its log and
// returns the ids whose stored value diverged (sorted). The recomputed
// value wins and is written back into the record; divergence is data
// corruption to report, never an error to throw at the caller.
func ReconcileStates(rec *Record) []string {
	var fixed []string
	for id, entry := range rec.Entries {
		derived := Derive(entry.Audit.Log)
		if entry.Audit.State != derived {
			entry.Audit.State = derived
			fixed = append(fixed, id)
		}
	}
	sort.Strings(fixed)
	return fixed
}
