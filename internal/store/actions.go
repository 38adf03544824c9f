package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
)

// RecordAction appends to the reply action log. A failed write is logged and
// swallowed so the reply it belongs to still goes out.
func (s *Store) RecordAction(ctx context.Context, rec model.ActionRecord) {
	if err := s.insertAction(ctx, rec); err != nil {
		s.logger.Warn("Failed to record reply action",
			zap.String("action", string(rec.Kind)),
			zap.Int64("result_id", rec.ResultID),
			zap.Error(err))
	}
}

func (s *Store) insertAction(ctx context.Context, rec model.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.timestamp()
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO actions (kind, result_id, subject, created_at) VALUES (?, ?, ?, ?)",
		string(rec.Kind), rec.ResultID, nullString(rec.Subject), created)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// FetchActions returns the action log, oldest first. Used by audits and tests.
func (s *Store) FetchActions(ctx context.Context, limit int) ([]model.ActionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, result_id, COALESCE(subject, ''), created_at FROM actions ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []model.ActionRecord
	for rows.Next() {
		var (
			rec     model.ActionRecord
			kind    string
			created string
		)
		if err := rows.Scan(&kind, &rec.ResultID, &rec.Subject, &created); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		rec.Kind = model.ActionKind(kind)
		rec.CreatedAt = parseTime(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}
