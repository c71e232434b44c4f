package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schemaVersion = 1

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS job_postings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  external_id TEXT UNIQUE,
  platform TEXT NOT NULL DEFAULT 'saramin',
  keyword TEXT,
  title TEXT NOT NULL DEFAULT '',
  company TEXT,
  location TEXT,
  experience TEXT,
  employment_type TEXT,
  posted_date TEXT,
  deadline_date TEXT,
  detail_link TEXT,
  description TEXT,
  crawled_at TEXT NOT NULL,
  first_seen_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_job_postings_posted_date
ON job_postings(posted_date);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_job_postings_keyword
ON job_postings(keyword);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) List(ctx context.Context, opts ListOpts) ([]Job, error) {
	q, args := listQuery(opts, d.now(), func(int) string { return "?" })

	rows, err := d.Pool.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var (
			j                        Job
			crawled, first, lastSeen string
		)
		if err := rows.Scan(
			&j.ID,
			&j.ExternalID,
			&j.Platform,
			&j.Keyword,
			&j.Title,
			&j.Company,
			&j.Location,
			&j.Experience,
			&j.EmploymentType,
			&j.PostedDate,
			&j.DeadlineDate,
			&j.DetailLink,
			&j.Description,
			&crawled,
			&first,
			&lastSeen,
		); err != nil {
			return nil, err
		}
		j.CrawledAt, _ = time.Parse(time.RFC3339Nano, crawled)
		j.FirstSeenAt, _ = time.Parse(time.RFC3339Nano, first)
		j.LastSeenAt, _ = time.Parse(time.RFC3339Nano, lastSeen)
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) Count(ctx context.Context) (int64, error) {
	var n int64
	err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_postings;`).Scan(&n)
	return n, err
}
