package store

import (
	"context"
	"fmt"

	"github.com/ppiankov/grantscout/internal/model"
)

// InsertPivotSuggestions appends suggestions for a project
func (s *Store) InsertPivotSuggestions(ctx context.Context, projectID string, suggestions []string) error {
	if len(suggestions) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pivots: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.timestamp()
	for _, text := range suggestions {
		if text == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO pivot_suggestions (project_id, suggestion, created_at) VALUES (?, ?, ?)",
			projectID, text, now); err != nil {
			return fmt.Errorf("insert pivot: %w", err)
		}
	}
	return tx.Commit()
}

// FetchPivotSuggestions returns the newest suggestions first, optionally for one project
func (s *Store) FetchPivotSuggestions(ctx context.Context, projectID string, limit int) ([]model.PivotSuggestion, error) {
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT id, project_id, suggestion, created_at FROM pivot_suggestions"
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pivots: %w", err)
	}
	defer rows.Close()

	var out []model.PivotSuggestion
	for rows.Next() {
		var (
			p       model.PivotSuggestion
			created string
		)
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Suggestion, &created); err != nil {
			return nil, fmt.Errorf("scan pivot: %w", err)
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}
