package store

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
)

// FunderDomain is the host of rawURL without a leading "www."
func FunderDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// touchFunder records a sighting of the result's domain and reports whether
// the domain was seen for the first time.
func (s *Store) touchFunder(ctx context.Context, tx *sql.Tx, rawURL, name, now string) (int64, bool, error) {
	domain := FunderDomain(rawURL)
	if domain == "" {
		return 0, false, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM funders WHERE domain = ?", domain).Scan(&id)
	if err == nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE funders SET last_seen = ?, times_seen = times_seen + 1 WHERE id = ?", now, id)
		return id, false, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	if name == "" {
		name = domain
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO funders (domain, name, first_seen, last_seen, times_seen) VALUES (?, ?, ?, ?, 1)",
		domain, name, now, now)
	if err != nil {
		return 0, false, err
	}
	id, err = res.LastInsertId()
	return id, true, err
}

// FunderSightings returns how often a domain has been seen, 0 if never
func (s *Store) FunderSightings(ctx context.Context, domain string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT times_seen FROM funders WHERE domain = ?", domain).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
