package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobcrawl-engine/internal/domain"
)

const upsertSQLite = `
INSERT INTO job_postings (
  external_id, platform, keyword, title, company, location, experience, employment_type,
  posted_date, deadline_date, detail_link, description, crawled_at, first_seen_at, last_seen_at
) VALUES (
  ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''),
  NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?
)
ON CONFLICT(external_id) DO UPDATE SET last_seen_at = excluded.last_seen_at;`

func (d *DB) UpsertBatch(ctx context.Context, postings []domain.JobPosting) (UpsertResult, error) {
	var total UpsertResult
	for _, chunk := range chunks(dedupe(postings), d.BatchSize) {
		r, err := d.upsertChunk(ctx, chunk)
		if err != nil {
			return total, err
		}
		total.add(r)
	}
	return total, nil
}

func (d *DB) upsertChunk(ctx context.Context, chunk []domain.JobPosting) (UpsertResult, error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := existingIn(ctx, tx, chunk)
	if err != nil {
		return UpsertResult{}, err
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQLite)
	if err != nil {
		return UpsertResult{}, err
	}
	defer stmt.Close()

	now := d.now().Format(time.RFC3339Nano)
	var r UpsertResult
	for _, p := range chunk {
		crawled := p.CrawledAt
		if crawled.IsZero() {
			crawled = d.now()
		}
		platform := p.Platform
		if platform == "" {
			platform = domain.PlatformSaramin
		}
		if _, err := stmt.ExecContext(ctx,
			p.ExternalID, platform, p.Keyword, p.Title, p.Company, p.Location, p.Experience, p.EmploymentType,
			p.PostedDate, p.DeadlineDate, p.DetailLink, p.Description,
			crawled.UTC().Format(time.RFC3339Nano), now, now,
		); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert %s: %w", p.ExternalID, err)
		}
		if existing[p.ExternalID] {
			r.Updated++
		} else {
			r.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, err
	}
	return r, nil
}

func existingIn(ctx context.Context, tx *sql.Tx, chunk []domain.JobPosting) (map[string]bool, error) {
	args := make([]any, len(chunk))
	for i, p := range chunk {
		args[i] = p.ExternalID
	}
	q := `SELECT external_id FROM job_postings WHERE external_id IN (?` +
		strings.Repeat(",?", len(chunk)-1) + `);`

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool, len(chunk))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ExistingIDs reads the external_id column, falling back to the rec_idx in
// the stored link for rows without one.
func (d *DB) ExistingIDs(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT external_id, detail_link FROM job_postings;`)
	if err != nil {
		return nil, fmt.Errorf("existing ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id, link sql.NullString
		if err := rows.Scan(&id, &link); err != nil {
			return nil, err
		}
		if v := resolveID(id.String, link.String); v != "" {
			out = append(out, v)
		}
	}
	return out, rows.Err()
}

func resolveID(id, link string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return domain.ExternalIDFromLink(link)
}

func (d *DB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	postedBefore, today := expiryBounds(now)
	res, err := d.Pool.ExecContext(ctx, `
DELETE FROM job_postings
WHERE (posted_date IS NOT NULL AND posted_date < ?)
   OR (deadline_date GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]' AND deadline_date < ?);`,
		postedBefore, today,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
