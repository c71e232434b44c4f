// Package store persists crawled postings. SQLite is the embedded default;
// Postgres serves shared deployments. Both keep one row per external id.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobcrawl-engine/internal/domain"
)

const (
	DefaultBatchSize = 500

	// Postings older than this, by posted date, are swept before each crawl.
	RetentionDays = 30
)

// Store is the persistence contract the crawl session runs against.
type Store interface {
	// ExistingIDs returns every stored external id, used to seed the seen-set.
	ExistingIDs(ctx context.Context) ([]string, error)
	// UpsertBatch inserts new postings. Rows that already exist only get
	// last_seen_at refreshed.
	UpsertBatch(ctx context.Context, postings []domain.JobPosting) (UpsertResult, error)
	// DeleteExpired removes postings past retention or past a dated deadline.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, opts ListOpts) ([]Job, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

func (r *UpsertResult) add(o UpsertResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
}

// Job is a stored posting.
type Job struct {
	ID int64 `json:"id"`
	domain.JobPosting
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

type ListOpts struct {
	Sort    string // posted | crawled | deadline | company | title
	Window  string // 24h | 7d | 30d | all
	Keyword string
	Limit   int // <= 0 means no limit
}

type Options struct {
	Driver    string // sqlite | postgres
	Path      string // sqlite file
	DSN       string // postgres connection string
	Password  string // overrides the DSN password when set
	BatchSize int
}

// OpenStore opens and migrates the configured backend.
func OpenStore(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		db, err := Open(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", opts.Path, err)
		}
		if err := Migrate(db.Pool); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		if opts.BatchSize > 0 {
			db.BatchSize = opts.BatchSize
		}
		return db, nil
	case "postgres":
		pg, err := OpenPostgres(ctx, opts.DSN, opts.Password)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		if opts.BatchSize > 0 {
			pg.BatchSize = opts.BatchSize
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func chunks(postings []domain.JobPosting, size int) [][]domain.JobPosting {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]domain.JobPosting
	for len(postings) > size {
		out = append(out, postings[:size])
		postings = postings[size:]
	}
	if len(postings) > 0 {
		out = append(out, postings)
	}
	return out
}

// dedupe keeps the first posting per external id and drops ones without an id.
func dedupe(postings []domain.JobPosting) []domain.JobPosting {
	seen := make(map[string]bool, len(postings))
	out := make([]domain.JobPosting, 0, len(postings))
	for _, p := range postings {
		if p.ExternalID == "" || seen[p.ExternalID] {
			continue
		}
		seen[p.ExternalID] = true
		out = append(out, p)
	}
	return out
}

// expiryBounds returns the posted-date cutoff and today's date, both as
// YYYY-MM-DD, for DeleteExpired.
func expiryBounds(now time.Time) (postedBefore, today string) {
	now = now.UTC()
	return now.AddDate(0, 0, -RetentionDays).Format(domain.DateLayout), now.Format(domain.DateLayout)
}

// listQuery builds the shared SELECT for List. ph renders the n-th
// placeholder in the backend's syntax.
func listQuery(opts ListOpts, now time.Time, ph func(n int) string) (string, []any) {
	sortCol := map[string]string{
		"posted":   "posted_date DESC, id DESC",
		"crawled":  "crawled_at DESC, id DESC",
		"deadline": "deadline_date ASC, id DESC",
		"company":  "company ASC, id DESC",
		"title":    "title ASC, id DESC",
	}[opts.Sort]
	if sortCol == "" {
		sortCol = "posted_date DESC, id DESC"
	}

	var (
		where []string
		args  []any
	)
	var since time.Time
	switch opts.Window {
	case "24h":
		since = now.Add(-24 * time.Hour)
	case "7d":
		since = now.AddDate(0, 0, -7)
	case "30d":
		since = now.AddDate(0, 0, -30)
	}
	if !since.IsZero() {
		args = append(args, since.UTC().Format(domain.DateLayout))
		where = append(where, "posted_date >= "+ph(len(args)))
	}
	if kw := strings.TrimSpace(opts.Keyword); kw != "" {
		args = append(args, kw)
		where = append(where, "keyword = "+ph(len(args)))
	}

	q := `
SELECT id, COALESCE(external_id, ''), platform, COALESCE(keyword, ''), title,
       COALESCE(company, ''), COALESCE(location, ''), COALESCE(experience, ''),
       COALESCE(employment_type, ''), COALESCE(posted_date, ''), COALESCE(deadline_date, ''),
       COALESCE(detail_link, ''), COALESCE(description, ''), crawled_at, first_seen_at, last_seen_at
FROM job_postings`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY " + sortCol
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += "\nLIMIT " + ph(len(args))
	}
	return q + ";", args
}
