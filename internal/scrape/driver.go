// Package scrape drives listing-page fetchers across pages and keywords.
package scrape

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logger"
	"jobcrawl-engine/internal/scrape/types"
)

const (
	DefaultPageLimit   = 100
	DefaultPageDelay   = 500 * time.Millisecond
	DefaultConcurrency = 10
)

// Why a keyword's traversal ended.
const (
	StopNoResults = "no_results"
	StopCutoff    = "cutoff"
	StopPageLimit = "page_limit"
	StopPageError = "page_error"
	StopSinkError = "sink_error"
	StopCancelled = "cancelled"
)

// BatchHandler receives the new postings of one page, in page order. A
// non-nil error aborts the whole crawl.
type BatchHandler func(ctx context.Context, keyword string, page int, batch []domain.JobPosting) error

type Driver struct {
	Fetcher     types.PageFetcher
	PageLimit   int
	PageDelay   time.Duration
	Concurrency int // detail-fetch permits shared by every page of a Crawl call

	// ShareSeen carries ids found under one keyword into the next. When false
	// every keyword starts again from the initial seen-set.
	ShareSeen bool

	Log logger.Interface
}

type KeywordStats struct {
	Keyword    string `json:"keyword"`
	Pages      int    `json:"pages"`
	Found      int    `json:"found"`
	StopReason string `json:"stop_reason"`
}

func (d *Driver) defaults() {
	if d.PageLimit <= 0 {
		d.PageLimit = DefaultPageLimit
	}
	if d.PageDelay < 0 {
		d.PageDelay = 0
	}
	if d.Concurrency <= 0 {
		d.Concurrency = DefaultConcurrency
	}
	if d.Log == nil {
		d.Log = logger.NewNoOp()
	}
}

// Crawl runs keywords one after another. seen is updated in place with every
// emitted id when ShareSeen is set; otherwise it is left untouched.
func (d *Driver) Crawl(ctx context.Context, keywords []string, cutoff time.Time, seen *types.SeenSet, emit BatchHandler) ([]KeywordStats, error) {
	d.defaults()
	if seen == nil {
		seen = types.NewSeenSet()
	}
	gate := semaphore.NewWeighted(int64(d.Concurrency))

	stats := make([]KeywordStats, 0, len(keywords))
	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		set := seen
		if !d.ShareSeen {
			set = seen.Clone()
		}
		st, err := d.crawlKeyword(ctx, kw, cutoff, set, gate, emit)
		stats = append(stats, st)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// CrawlKeyword walks the result pages of a single keyword, adding emitted ids
// to seen.
func (d *Driver) CrawlKeyword(ctx context.Context, keyword string, cutoff time.Time, seen *types.SeenSet, emit BatchHandler) (KeywordStats, error) {
	d.defaults()
	if seen == nil {
		seen = types.NewSeenSet()
	}
	return d.crawlKeyword(ctx, keyword, cutoff, seen, semaphore.NewWeighted(int64(d.Concurrency)), emit)
}

func (d *Driver) crawlKeyword(ctx context.Context, keyword string, cutoff time.Time, seen *types.SeenSet, gate *semaphore.Weighted, emit BatchHandler) (KeywordStats, error) {
	log := d.Log.With("source", d.Fetcher.Name(), "keyword", keyword)
	st := KeywordStats{Keyword: keyword}
	log.Info("keyword crawl started", "cutoff", cutoff.Format(domain.DateLayout))

	for page := 1; ; page++ {
		res, err := d.Fetcher.FetchPage(ctx, types.PageRequest{
			Page:    page,
			Keyword: keyword,
			Cutoff:  cutoff,
			Seen:    seen,
			Gate:    gate,
		})
		st.Pages = page
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				st.StopReason = StopCancelled
				return st, ctxErr
			}
			log.Warn("page fetch failed, stopping keyword", "page", page, "error", err)
			st.StopReason = StopPageError
			break
		}

		batch := make([]domain.JobPosting, 0, len(res.Postings))
		for _, p := range res.Postings {
			if seen.Add(p.ExternalID) {
				batch = append(batch, p)
			}
		}

		if len(batch) > 0 {
			st.Found += len(batch)
			if emit != nil {
				if err := emit(ctx, keyword, page, batch); err != nil {
					st.StopReason = StopSinkError
					return st, err
				}
			}
		}
		log.Info("page done", "page", page, "cards", res.Cards, "new", len(batch), "total", st.Found)

		if res.Stop {
			st.StopReason = StopCutoff
			if res.Cards == 0 {
				st.StopReason = StopNoResults
			}
			break
		}
		if page >= d.PageLimit {
			st.StopReason = StopPageLimit
			break
		}
		if err := sleep(ctx, d.PageDelay); err != nil {
			st.StopReason = StopCancelled
			return st, err
		}
	}

	log.Info("keyword crawl finished", "pages", st.Pages, "found", st.Found, "reason", st.StopReason)
	return st, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsAbort reports whether err ended a crawl because the caller gave up.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
