package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
)

const resultColumns = `id, project_id, segment_id, angle_type, query, title, url, snippet, source,
	score, discovered_at, summary, grant_amount, deadline, eligibility_notes, topic_match,
	contact_info, is_new_funder, is_open, funder_type, result_type, shown_in_digest`

// InsertResults upserts candidates by (project_id, url) and returns the stored
// rows in input order. Re-discovering a url keeps its id and refreshes the
// analysis fields that the new candidate carries.
func (s *Store) InsertResults(ctx context.Context, candidates []model.Candidate) ([]model.StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		id, err := s.upsertResult(ctx, tx, c)
		if err != nil {
			return nil, fmt.Errorf("store result %s: %w", c.Result.URL, err)
		}
		ids = append(ids, id)
	}

	stored := make([]model.StoredResult, 0, len(ids))
	for _, id := range ids {
		r, err := scanResult(tx.QueryRowContext(ctx, "SELECT "+resultColumns+" FROM results WHERE id = ?", id))
		if err != nil {
			return nil, fmt.Errorf("reload result %d: %w", id, err)
		}
		stored = append(stored, r)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return stored, nil
}

func (s *Store) upsertResult(ctx context.Context, tx *sql.Tx, c model.Candidate) (int64, error) {
	r := c.Result
	a := c.Analysis
	now := s.timestamp()

	funderID, isNew, err := s.touchFunder(ctx, tx, r.URL, r.Title, now)
	if err != nil {
		return 0, fmt.Errorf("funder: %w", err)
	}

	topics, err := encodeTopics(a.TopicMatch)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal(r.Raw)
	if err != nil {
		return 0, fmt.Errorf("encode raw payload: %w", err)
	}

	var existing int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM results WHERE project_id = ? AND url = ?", c.ProjectID, r.URL).Scan(&existing)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE results SET
				score = COALESCE(?, score),
				is_open = COALESCE(?, is_open),
				summary = COALESCE(?, summary),
				grant_amount = COALESCE(?, grant_amount),
				deadline = COALESCE(?, deadline),
				eligibility_notes = COALESCE(?, eligibility_notes),
				topic_match = COALESCE(?, topic_match),
				contact_info = COALESCE(?, contact_info),
				funder_type = COALESCE(?, funder_type),
				result_type = COALESCE(?, result_type),
				is_new_funder = 0
			WHERE id = ?`,
			nullFloat(a.Score), nullString(string(a.IsOpen)), nullString(a.Summary),
			nullString(a.GrantAmount), nullString(a.Deadline), nullString(a.EligibilityNotes),
			nullString(topics), nullString(a.ContactInfo), nullString(a.FunderType),
			nullString(c.ResultType), existing)
		return existing, err
	case errors.Is(err, sql.ErrNoRows):
	default:
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO results (project_id, segment_id, angle_type, query, title, url, snippet, source,
			score, discovered_at, summary, grant_amount, deadline, eligibility_notes, topic_match,
			contact_info, is_new_funder, is_open, funder_type, raw_json, result_type, funder_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ProjectID, nullString(c.SegmentID), nullString(c.AngleType), nullString(c.Query),
		r.Title, r.URL, nullString(r.Snippet), nullString(r.Source),
		nullFloat(a.Score), now, nullString(a.Summary), nullString(a.GrantAmount),
		nullString(a.Deadline), nullString(a.EligibilityNotes), nullString(topics),
		nullString(a.ContactInfo), boolInt(isNew), nullString(string(a.IsOpen)),
		nullString(a.FunderType), string(raw), nullString(c.ResultType), nullInt(funderID))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FetchRecentResults returns the newest results first, optionally for one project
func (s *Store) FetchRecentResults(ctx context.Context, projectID string, limit int) ([]model.StoredResult, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + resultColumns + " FROM results"
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY discovered_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	return s.queryResults(ctx, query, args...)
}

// FetchResultByID returns one result or ErrNotFound
func (s *Store) FetchResultByID(ctx context.Context, id int64) (model.StoredResult, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, "SELECT "+resultColumns+" FROM results WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredResult{}, fmt.Errorf("result %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.StoredResult{}, fmt.Errorf("fetch result %d: %w", id, err)
	}
	return r, nil
}

// FetchResultsForDigest returns results scoring at least minScore, results not
// yet shown in a digest first, then by score. Unscored results and results
// classified as aggregators or irrelevant are excluded.
func (s *Store) FetchResultsForDigest(ctx context.Context, projectID string, minScore float64, limit int) ([]model.StoredResult, error) {
	query := "SELECT " + resultColumns + " FROM results WHERE score >= ?" +
		" AND COALESCE(result_type, '') NOT IN (?, ?)"
	args := []any{minScore, model.ResultAggregator, model.ResultIrrelevant}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY CASE WHEN shown_in_digest IS NULL THEN 0 ELSE 1 END, score DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryResults(ctx, query, args...)
}

// MarkShown stamps results as included in a sent digest
func (s *Store) MarkShown(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	args := []any{s.timestamp()}
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	if _, err := s.db.ExecContext(ctx,
		"UPDATE results SET shown_in_digest = ? WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("mark shown: %w", err)
	}
	return nil
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]model.StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []model.StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (model.StoredResult, error) {
	var (
		r                                    model.StoredResult
		segment, angle, query, snippet       sql.NullString
		source, summary, amount, deadline    sql.NullString
		eligibility, topics, contact, isOpen sql.NullString
		funderType, resultType, shown        sql.NullString
		discovered                           string
		score                                sql.NullFloat64
		isNewFunder                          int
	)
	err := row.Scan(&r.ID, &r.ProjectID, &segment, &angle, &query, &r.Title, &r.URL, &snippet, &source,
		&score, &discovered, &summary, &amount, &deadline, &eligibility, &topics,
		&contact, &isNewFunder, &isOpen, &funderType, &resultType, &shown)
	if err != nil {
		return model.StoredResult{}, err
	}

	r.SegmentID = segment.String
	r.AngleType = angle.String
	r.Query = query.String
	r.Snippet = snippet.String
	r.Source = source.String
	r.DiscoveredAt = parseTime(discovered)
	r.IsNewFunder = isNewFunder != 0
	r.ResultType = resultType.String
	r.Shown = shown.Valid

	if score.Valid {
		r.Score = model.Float(score.Float64)
	}
	r.Summary = summary.String
	r.GrantAmount = amount.String
	r.Deadline = deadline.String
	r.EligibilityNotes = eligibility.String
	r.TopicMatch = decodeTopics(topics.String)
	r.ContactInfo = contact.String
	r.IsOpen = model.ParseOpenStatus(isOpen.String)
	r.FunderType = funderType.String
	return r, nil
}

// encodeTopics stores topic_match as a JSON list; empty lists are stored as NULL
func encodeTopics(topics []string) (string, error) {
	if len(topics) == 0 {
		return "", nil
	}
	b, err := json.Marshal(topics)
	if err != nil {
		return "", fmt.Errorf("encode topics: %w", err)
	}
	return string(b), nil
}

// decodeTopics reads a JSON list, tolerating rows written as a plain comma separated string
func decodeTopics(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(v), &list); err == nil {
		return list
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
