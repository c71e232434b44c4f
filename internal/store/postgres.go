package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobcrawl-engine/internal/domain"
)

// PG is the Postgres-backed Store.
type PG struct {
	pool      *pgxpool.Pool
	BatchSize int
	Now       func() time.Time
}

// OpenPostgres connects with dsn. A non-empty password replaces the one in
// the DSN so it can come from the keychain instead of the config file.
func OpenPostgres(ctx context.Context, dsn, password string) (*PG, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if password != "" {
		cfg.ConnConfig.Password = password
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PG{pool: pool, BatchSize: DefaultBatchSize, Now: time.Now}, nil
}

func (p *PG) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *PG) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

func (p *PG) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS job_postings (
  id BIGSERIAL PRIMARY KEY,
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
  crawled_at TIMESTAMPTZ NOT NULL,
  first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_job_postings_posted_date ON job_postings(posted_date);
CREATE INDEX IF NOT EXISTS idx_job_postings_keyword ON job_postings(keyword);
`)
	return err
}

const upsertPostgres = `
INSERT INTO job_postings (
  external_id, platform, keyword, title, company, location, experience, employment_type,
  posted_date, deadline_date, detail_link, description, crawled_at, first_seen_at, last_seen_at
) VALUES (
  $1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''),
  NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13, $14, $14
)
ON CONFLICT (external_id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at;`

func (p *PG) UpsertBatch(ctx context.Context, postings []domain.JobPosting) (UpsertResult, error) {
	var total UpsertResult
	for _, chunk := range chunks(dedupe(postings), p.BatchSize) {
		r, err := p.upsertChunk(ctx, chunk)
		if err != nil {
			return total, err
		}
		total.add(r)
	}
	return total, nil
}

func (p *PG) upsertChunk(ctx context.Context, chunk []domain.JobPosting) (UpsertResult, error) {
	ids := make([]string, len(chunk))
	for i, j := range chunk {
		ids[i] = j.ExternalID
	}

	var r UpsertResult
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT external_id FROM job_postings WHERE external_id = ANY($1);`, ids)
		if err != nil {
			return err
		}
		found, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		existing := make(map[string]bool, len(found))
		for _, id := range found {
			existing[id] = true
		}

		now := p.now()
		batch := &pgx.Batch{}
		for _, j := range chunk {
			crawled := j.CrawledAt
			if crawled.IsZero() {
				crawled = now
			}
			platform := j.Platform
			if platform == "" {
				platform = domain.PlatformSaramin
			}
			batch.Queue(upsertPostgres,
				j.ExternalID, platform, j.Keyword, j.Title, j.Company, j.Location, j.Experience, j.EmploymentType,
				j.PostedDate, j.DeadlineDate, j.DetailLink, j.Description, crawled, now,
			)
			if existing[j.ExternalID] {
				r.Updated++
			} else {
				r.Inserted++
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert batch: %w", err)
	}
	return r, nil
}

func (p *PG) ExistingIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT COALESCE(external_id, ''), COALESCE(detail_link, '') FROM job_postings;`)
	if err != nil {
		return nil, fmt.Errorf("existing ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id, link string
		if err := rows.Scan(&id, &link); err != nil {
			return nil, err
		}
		if v := resolveID(id, link); v != "" {
			out = append(out, v)
		}
	}
	return out, rows.Err()
}

func (p *PG) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	postedBefore, today := expiryBounds(now)
	tag, err := p.pool.Exec(ctx, `
DELETE FROM job_postings
WHERE (posted_date IS NOT NULL AND posted_date < $1)
   OR (deadline_date ~ '^\d{4}-\d{2}-\d{2}$' AND deadline_date < $2);`,
		postedBefore, today,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *PG) List(ctx context.Context, opts ListOpts) ([]Job, error) {
	q, args := listQuery(opts, p.now(), func(n int) string { return "$" + strconv.Itoa(n) })

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
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
			&j.CrawledAt,
			&j.FirstSeenAt,
			&j.LastSeenAt,
		); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (p *PG) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM job_postings;`).Scan(&n)
	return n, err
}
