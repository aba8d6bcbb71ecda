package pruefung

import "fmt"

// ReviewInput describes one review event to append to an entry.
type ReviewInput struct {
	Kind    EventKind `json:"kind"`
	Outcome *string   `json:"outcome,omitempty"`
	Actor   Actor     `json:"actor"`
	Note    string    `json:"note,omitempty"`
}

// RecordReview appends one review event to the entry's log and
// re-derives its state.
//
// Only ai_review and human_review overwrite the entry assessment with
// the event outcome; approve/reject mark finality and may carry an
// optional outcome label but never touch the assessment. This is the
// single place the assessment is ever written.
func RecordReview(entry *Entry, in ReviewInput, opts ...SyncOption) error {
	if !in.Kind.Review() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, in.Kind)
	}
	if in.Actor == "" {
		switch in.Kind {
		case KindAIReview:
			in.Actor = ActorAutomation
		default:
			in.Actor = ActorHuman
		}
	}

	cfg := newSyncConfig(opts)
	entry.appendEvent(Event{
		ID:           cfg.newID(),
		Time:         cfg.now(),
		Kind:         in.Kind,
		SourceStatus: statusPtr(entry.Status),
		Outcome:      in.Outcome,
		Actor:        in.Actor,
		Note:         in.Note,
	})

	if in.Kind == KindAIReview || in.Kind == KindHumanReview {
		entry.Assessment = in.Outcome
	}
	return nil
}
