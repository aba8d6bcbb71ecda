package store

import (
	"context"
	"database/sql"
	"time"
)

// Criterion is one row of the project criterion status source.
type Criterion struct {
	ID       string
	Status   string
	Priority *int
}

// ReplaceCriteria replaces the whole criteria list of a project in one
// transaction. Position preserves the source ordering for listings.
func (s *Store) ReplaceCriteria(ctx context.Context, projectID string, criteria []Criterion) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM project_criteria WHERE project_id = ?`, projectID); err != nil {
		return err
	}

	now := time.Now().Unix()
	for i, c := range criteria {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_criteria (project_id, criterion_id, status, priority, position, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			projectID, c.ID, c.Status, c.Priority, i, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Criteria returns a project's criteria in source order.
func (s *Store) Criteria(ctx context.Context, projectID string) ([]Criterion, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT criterion_id, status, priority FROM project_criteria
		 WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Criterion
	for rows.Next() {
		var c Criterion
		var prio sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Status, &prio); err != nil {
			return nil, err
		}
		if prio.Valid {
			v := int(prio.Int64)
			c.Priority = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Bidder is one responding entity registered for a project.
type Bidder struct {
	ProjectID string
	BidderID  string
	Name      string
	CreatedAt int64
}

// UpsertBidder registers a bidder for a project (idempotent). An empty
// name never overwrites a name set earlier.
func (s *Store) UpsertBidder(ctx context.Context, projectID, bidderID, name string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO bidders (project_id, bidder_id, name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(project_id, bidder_id) DO UPDATE SET
		     name = CASE WHEN excluded.name = '' THEN bidders.name ELSE excluded.name END`,
		projectID, bidderID, name, time.Now().Unix())
	return err
}

// Bidders returns all bidders registered for a project, oldest first.
func (s *Store) Bidders(ctx context.Context, projectID string) ([]Bidder, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT project_id, bidder_id, name, created_at FROM bidders
		 WHERE project_id = ? ORDER BY created_at, bidder_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bidder
	for rows.Next() {
		var b Bidder
		if err := rows.Scan(&b.ProjectID, &b.BidderID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
