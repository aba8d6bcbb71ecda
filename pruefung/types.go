// Package pruefung implements the per-bidder criteria audit book: it
// projects project-level criterion statuses into bidder audit records,
// appends review events to an append-only log, and derives the
// consolidated review state from that log.
package pruefung

import (
	"strings"
	"time"
)

// Status is the project-side relevance status of a criterion.
// A status is relevant iff it equals "ja" or starts with "ja."
// (e.g. "ja.int", "ja.ki"). Every other value, including the empty
// string, counts as not relevant for synchronization.
type Status string

const (
	StatusJa       Status = "ja"
	StatusNein     Status = "nein"
	StatusOptional Status = "optional"
	StatusHalt     Status = "halt"

	// StatusEntfernt marks an audit entry whose criterion disappeared
	// from the project. Audit-side sentinel, never a source value.
	StatusEntfernt Status = "entfernt"
)

// Relevant reports whether the criterion must be checked for a bidder.
func (s Status) Relevant() bool {
	return s == StatusJa || strings.HasPrefix(string(s), "ja.")
}

// State is the consolidated review stage derived from the event log.
type State string

const (
	StateSynchronized State = "synchronized"
	StateReviewed     State = "reviewed"
	StateApproved     State = "approved"
	StateRejected     State = "rejected"
)

// Final reports whether the state carries a decision that must be
// protected by an explicit reset when the upstream criterion changes.
func (s State) Final() bool {
	return s == StateApproved || s == StateRejected
}

// EventKind identifies an audit event.
type EventKind string

const (
	KindCopied      EventKind = "copied"
	KindAIReview    EventKind = "ai_review"
	KindHumanReview EventKind = "human_review"
	KindApprove     EventKind = "approve"
	KindReject      EventKind = "reject"
	KindReset       EventKind = "reset"
	KindRemoved     EventKind = "removed"
)

// Review reports whether the kind is one of the recorder kinds.
func (k EventKind) Review() bool {
	switch k {
	case KindAIReview, KindHumanReview, KindApprove, KindReject:
		return true
	}
	return false
}

// Actor identifies who caused an audit event.
type Actor string

const (
	ActorAutomation Actor = "automation"
	ActorHuman      Actor = "human"
	ActorSystem     Actor = "system"
)

// Criterion is one entry of the project-level criterion status source.
// Priority is optional; nil sorts below every explicit value.
type Criterion struct {
	ID       string `json:"id" yaml:"id"`
	Status   Status `json:"status" yaml:"status"`
	Priority *int   `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Event is one immutable element of an entry's audit log.
type Event struct {
	ID           string    `json:"id"`
	Time         time.Time `json:"time"`
	Kind         EventKind `json:"kind"`
	SourceStatus *Status   `json:"source_status"` // nil for reset/removed
	Outcome      *string   `json:"outcome,omitempty"`
	Actor        Actor     `json:"actor"`
	Note         string    `json:"note,omitempty"`
}

// Audit combines the derived state with its append-only event log.
// State is a cached projection of Log; Derive is the source of truth.
type Audit struct {
	State State   `json:"state"`
	Log   []Event `json:"log"`
}

// Entry is the per-bidder audit entry for one criterion.
//
// Assessment holds the outcome of the most recent ai/human review
// ("ok", "fail", "review_needed", a numeric score rendered as a string,
// or a free-form flag). It is written only by the review recorder and
// survives criterion removal.
type Entry struct {
	ID         string  `json:"id"`
	Status     Status  `json:"status"`
	Priority   *int    `json:"priority,omitempty"`
	Assessment *string `json:"assessment"`
	Audit      Audit   `json:"audit"`
}

// Record is the audit record for one (project, bidder) pair: a mapping
// from criterion id to audit entry. The whole record is the unit of
// load/replace in persistence.
type Record struct {
	ProjectID string            `json:"project_id"`
	BidderID  string            `json:"bidder_id"`
	Entries   map[string]*Entry `json:"entries"`
}

// NewRecord returns an empty record for the given keys.
func NewRecord(projectID, bidderID string) *Record {
	return &Record{
		ProjectID: projectID,
		BidderID:  bidderID,
		Entries:   make(map[string]*Entry),
	}
}

// appendEvent adds ev to the entry's log and refreshes the cached state.
// All log mutation in this package funnels through here.
func (e *Entry) appendEvent(ev Event) {
	e.Audit.Log = append(e.Audit.Log, ev)
	e.Audit.State = Derive(e.Audit.Log)
}
