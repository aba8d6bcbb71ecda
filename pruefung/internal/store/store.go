// Package store provides the data access layer for audit records.
//
// The store is deliberately ignorant of the audit document's shape: it
// moves opaque JSON in and out and enforces the versioned replace. The
// pruefung package owns encoding and the domain semantics.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrVersionConflict is returned when a replace loses the optimistic
// version check. Callers retry the whole logical operation from a
// fresh load.
var ErrVersionConflict = errors.New("store: audit record version conflict")

// Store wraps the audit database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// LoadRecord returns the JSON document and version for one
// (project, bidder) record. A record that does not exist yet yields a
// nil document and version 0; ReplaceRecord with expected version 0
// then performs the initial insert.
func (s *Store) LoadRecord(ctx context.Context, projectID, bidderID string) ([]byte, int64, error) {
	var doc []byte
	var version int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT doc, version FROM audit_records WHERE project_id = ? AND bidder_id = ?`,
		projectID, bidderID).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return doc, version, nil
}

// ReplaceRecord atomically replaces the whole record document iff the
// stored version still equals expected. Expected 0 means "must not
// exist yet" and inserts with version 1.
func (s *Store) ReplaceRecord(ctx context.Context, projectID, bidderID string, doc []byte, expected int64) error {
	now := time.Now().Unix()

	if expected == 0 {
		_, err := s.DB.ExecContext(ctx,
			`INSERT INTO audit_records (project_id, bidder_id, doc, version, created_at, updated_at)
			 VALUES (?, ?, ?, 1, ?, ?)`,
			projectID, bidderID, doc, now, now)
		if err != nil {
			// Another writer created the record first.
			return ErrVersionConflict
		}
		return nil
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE audit_records SET doc = ?, version = version + 1, updated_at = ?
		 WHERE project_id = ? AND bidder_id = ? AND version = ?`,
		doc, now, projectID, bidderID, expected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
