package types

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"jobcrawl-engine/internal/domain"
)

// IDLookup is the read-only view of a seen-set handed to page fetchers.
type IDLookup interface {
	Has(id string) bool
}

// PageRequest describes one search-results page fetch.
type PageRequest struct {
	Page    int
	Keyword string
	Cutoff  time.Time // postings dated before this day end the traversal
	Seen    IDLookup
	Gate    *semaphore.Weighted // shared detail-fetch permits for the session
}

// Page is the outcome of one listing page: fully enriched postings plus
// whether the driver should stop after it.
type Page struct {
	Postings []domain.JobPosting
	Stop     bool
	Cards    int // listing cards present on the page, before filtering
}

type PageFetcher interface {
	Name() string
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// SeenSet holds external ids processed in one crawl session. It is not safe
// for concurrent mutation; the crawl driver owns it.
type SeenSet struct {
	m map[string]struct{}
}

func NewSeenSet(ids ...string) *SeenSet {
	s := &SeenSet{m: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *SeenSet) Has(id string) bool {
	_, ok := s.m[id]
	return ok
}

// Add inserts id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	return true
}

func (s *SeenSet) Len() int { return len(s.m) }

func (s *SeenSet) Clone() *SeenSet {
	c := &SeenSet{m: make(map[string]struct{}, len(s.m))}
	for id := range s.m {
		c.m[id] = struct{}{}
	}
	return c
}

// IDs returns the members in sorted order.
func (s *SeenSet) IDs() []string {
	out := make([]string, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
