// Package poll runs crawl sessions: one locked pass of sweep, preload, crawl,
// store and optional export.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/export"
	"jobcrawl-engine/internal/logger"
	"jobcrawl-engine/internal/scrape"
	"jobcrawl-engine/internal/scrape/types"
	"jobcrawl-engine/internal/store"
)

var ErrAlreadyRunning = errors.New("crawl session already running")

// Options override the configured crawl for a single run.
type Options struct {
	Keywords  []string
	PageLimit int
	Export    bool
}

type Summary struct {
	RunID     string                `json:"run_id"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration_ns"`
	Cutoff    string                `json:"cutoff"`
	Preloaded int                   `json:"preloaded"`
	Deleted   int64                 `json:"deleted"`
	Keywords  []scrape.KeywordStats `json:"keywords"`
	Found     int                   `json:"found"`
	Inserted  int                   `json:"inserted"`
	Updated   int                   `json:"updated"`
	Export    *export.Result        `json:"export,omitempty"`
}

type Status struct {
	Running     bool     `json:"running"`
	RunID       string   `json:"run_id,omitempty"`
	LastRunAt   string   `json:"last_run_at"`
	LastOkAt    string   `json:"last_ok_at"`
	LastError   string   `json:"last_error"`
	LastSummary *Summary `json:"last_summary,omitempty"`
}

type Runner struct {
	Cfg      config.Config
	Store    store.Store
	Fetcher  types.PageFetcher
	Events   events.Publisher // may be nil
	Exporter *export.Exporter // nil disables export
	LockPath string
	Log      logger.Interface
	Now      func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	status  Status
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) publish(runID, typ string, data any) {
	if r.Events != nil {
		r.Events.Publish(events.MakeEvent(runID, typ, 1, data))
	}
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) Running() bool { return r.running.Load() }

// RunOnce executes one crawl session. It returns ErrAlreadyRunning when
// another session holds the lock, in this process or another.
func (r *Runner) RunOnce(ctx context.Context, opts Options) (Summary, error) {
	release, err := r.claim()
	if err != nil {
		return Summary{}, err
	}
	defer release()
	return r.runOnce(ctx, opts)
}

// claim takes the in-process slot and the session file lock. The returned
// func gives both back.
func (r *Runner) claim() (func(), error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	if r.LockPath == "" {
		return func() { r.running.Store(false) }, nil
	}

	lock := flock.New(r.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		r.running.Store(false)
		return nil, fmt.Errorf("session lock %s: %w", r.LockPath, err)
	}
	if !ok {
		r.running.Store(false)
		return nil, ErrAlreadyRunning
	}
	return func() {
		_ = lock.Unlock()
		r.running.Store(false)
	}, nil
}

// runOnce runs a session whose slot the caller already holds.
func (r *Runner) runOnce(ctx context.Context, opts Options) (Summary, error) {
	log := r.Log
	if log == nil {
		log = logger.NewNoOp()
	}
	runID := uuid.NewString()
	log = log.With("run_id", runID)
	start := r.now()

	r.mu.Lock()
	r.status.Running = true
	r.status.RunID = runID
	r.status.LastRunAt = start.Format(time.RFC3339)
	r.mu.Unlock()

	sum, err := r.run(ctx, log, runID, start, opts)
	sum.Duration = r.now().Sub(start)

	r.mu.Lock()
	r.status.Running = false
	if err != nil {
		r.status.LastError = err.Error()
	} else {
		r.status.LastError = ""
		r.status.LastOkAt = r.now().Format(time.RFC3339)
		r.status.LastSummary = &sum
	}
	r.mu.Unlock()

	if err != nil {
		if scrape.IsAbort(err) {
			log.Warn("crawl session cancelled", "found", sum.Found)
		} else {
			log.Error("crawl session failed", "error", err, "found", sum.Found)
		}
		r.publish(runID, events.TypeCrawlFailed, map[string]any{"error": err.Error(), "found": sum.Found})
		return sum, err
	}
	log.Info("crawl session finished",
		"found", sum.Found, "inserted", sum.Inserted, "updated", sum.Updated,
		"deleted", sum.Deleted, "duration", sum.Duration)
	r.publish(runID, events.TypeCrawlFinished, sum)
	return sum, nil
}

func (r *Runner) run(ctx context.Context, log logger.Interface, runID string, start time.Time, opts Options) (Summary, error) {
	cfg := r.Cfg
	keywords := cfg.Crawl.Keywords
	if len(opts.Keywords) > 0 {
		keywords = opts.Keywords
	}
	pageLimit := cfg.Crawl.PageLimit
	if opts.PageLimit > 0 {
		pageLimit = opts.PageLimit
	}
	cutoff := cfg.Cutoff(start)

	sum := Summary{RunID: runID, StartedAt: start, Cutoff: cutoff.Format(domain.DateLayout)}
	r.publish(runID, events.TypeCrawlStarted, map[string]any{"keywords": keywords, "cutoff": sum.Cutoff})
	log.Info("crawl session started", "keywords", keywords, "cutoff", sum.Cutoff, "page_limit", pageLimit)

	deleted, err := r.Store.DeleteExpired(ctx, start)
	if err != nil {
		return sum, fmt.Errorf("expiry sweep: %w", err)
	}
	sum.Deleted = deleted

	ids, err := r.Store.ExistingIDs(ctx)
	if err != nil {
		return sum, fmt.Errorf("preload ids: %w", err)
	}
	seen := types.NewSeenSet(ids...)
	sum.Preloaded = seen.Len()
	log.Info("seen-set preloaded", "ids", sum.Preloaded, "expired_deleted", deleted)

	d := &scrape.Driver{
		Fetcher:     r.Fetcher,
		PageLimit:   pageLimit,
		PageDelay:   cfg.PageDelay(),
		Concurrency: cfg.Crawl.Concurrency,
		ShareSeen:   cfg.Crawl.ShareSeenAcrossKeywords,
		Log:         log,
	}
	stats, err := d.Crawl(ctx, keywords, cutoff, seen, func(ctx context.Context, kw string, page int, batch []domain.JobPosting) error {
		res, err := r.Store.UpsertBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("store batch (keyword %q page %d): %w", kw, page, err)
		}
		sum.Found += len(batch)
		sum.Inserted += res.Inserted
		sum.Updated += res.Updated
		r.publish(runID, events.TypeBatchStored, events.BatchStored{
			Keyword: kw, Page: page, Found: len(batch), Inserted: res.Inserted, Updated: res.Updated,
		})
		return nil
	})
	sum.Keywords = stats
	if err != nil {
		return sum, err
	}

	if r.Exporter != nil && (opts.Export || cfg.Export.AfterCrawl) {
		res, err := ExportAll(ctx, r.Store, r.Exporter)
		if err != nil {
			return sum, fmt.Errorf("export: %w", err)
		}
		sum.Export = &res
	}
	return sum, nil
}

// ExportAll writes every stored posting through e.
func ExportAll(ctx context.Context, s store.Store, e *export.Exporter) (export.Result, error) {
	jobs, err := s.List(ctx, store.ListOpts{Sort: "posted", Window: "all"})
	if err != nil {
		return export.Result{}, err
	}
	postings := make([]domain.JobPosting, len(jobs))
	for i, j := range jobs {
		postings[i] = j.JobPosting
	}
	return e.Export(ctx, postings)
}
