package pruefung

import "errors"

// ErrNotFound is returned when a review is recorded against a criterion
// id that no sync pass has ever written into the audit record.
var ErrNotFound = errors.New("pruefung: criterion not found in audit record")

// ErrConflict is returned when the optimistic replace of an audit
// record keeps failing after retries from a fresh load.
var ErrConflict = errors.New("pruefung: concurrent modification of audit record")

// ErrInvalidKind is returned when a recorder call uses an event kind
// outside {ai_review, human_review, approve, reject}.
var ErrInvalidKind = errors.New("pruefung: invalid review event kind")

// ErrInvalidInput is returned when request parameters fail validation.
var ErrInvalidInput = errors.New("pruefung: invalid input")
