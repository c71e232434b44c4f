package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/scrape"
	"jobcrawl-engine/internal/scrape/saramin"
	"jobcrawl-engine/internal/scrape/types"
)

type pageKey struct {
	keyword string
	page    int
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[pageKey]types.Page
	errs  map[pageKey]error
	calls []pageKey
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchPage(_ context.Context, req types.PageRequest) (types.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pageKey{req.Keyword, req.Page}
	f.calls = append(f.calls, k)
	if err := f.errs[k]; err != nil {
		return types.Page{}, err
	}
	p, ok := f.pages[k]
	if !ok {
		return types.Page{Stop: true}, nil
	}
	// mimic a fetcher that only filters against what the driver has seen
	var kept []domain.JobPosting
	for _, j := range p.Postings {
		if !req.Seen.Has(j.ExternalID) {
			kept = append(kept, j)
		}
	}
	p.Postings = kept
	return p, nil
}

func postings(ids ...string) []domain.JobPosting {
	out := make([]domain.JobPosting, len(ids))
	for i, id := range ids {
		out[i] = domain.JobPosting{ExternalID: id, Platform: domain.PlatformSaramin}
	}
	return out
}

type collector struct {
	batches [][]string
	pages   []int
}

func (c *collector) handle(_ context.Context, _ string, page int, batch []domain.JobPosting) error {
	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.ExternalID
	}
	c.batches = append(c.batches, ids)
	c.pages = append(c.pages, page)
	return nil
}

func TestCrawlKeyword_StopsOnStopSignal(t *testing.T) {
	f := &fakeFetcher{pages: map[pageKey]types.Page{
		{"LLM", 1}: {Postings: postings("1", "2"), Cards: 2},
		{"LLM", 2}: {Postings: postings("3"), Cards: 5, Stop: true},
		{"LLM", 3}: {Postings: postings("4"), Cards: 1},
	}}
	d := &scrape.Driver{Fetcher: f}
	c := &collector{}
	seen := types.NewSeenSet()

	st, err := d.CrawlKeyword(t.Context(), "LLM", time.Now(), seen, c.handle)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, c.batches)
	assert.Equal(t, []int{1, 2}, c.pages)
	assert.Equal(t, scrape.KeywordStats{Keyword: "LLM", Pages: 2, Found: 3, StopReason: scrape.StopCutoff}, st)
	assert.Equal(t, []string{"1", "2", "3"}, seen.IDs())
}

func TestCrawlKeyword_EmptyBatchNotEmittedAndEmptyPageStops(t *testing.T) {
	f := &fakeFetcher{pages: map[pageKey]types.Page{
		{"AI", 1}: {Postings: postings("1"), Cards: 1},
		{"AI", 2}: {Cards: 3},
		{"AI", 3}: {Stop: true},
	}}
	d := &scrape.Driver{Fetcher: f}
	c := &collector{}

	st, err := d.CrawlKeyword(t.Context(), "AI", time.Now(), types.NewSeenSet("1"), c.handle)
	require.NoError(t, err)
	assert.Empty(t, c.batches)
	assert.Equal(t, 3, st.Pages)
	assert.Equal(t, scrape.StopNoResults, st.StopReason)
}

func TestCrawlKeyword_PageLimit(t *testing.T) {
	f := &fakeFetcher{pages: map[pageKey]types.Page{
		{"rag", 1}: {Postings: postings("1"), Cards: 1},
		{"rag", 2}: {Postings: postings("2"), Cards: 1},
		{"rag", 3}: {Postings: postings("3"), Cards: 1},
	}}
	d := &scrape.Driver{Fetcher: f, PageLimit: 2}
	c := &collector{}

	st, err := d.CrawlKeyword(t.Context(), "rag", time.Now(), nil, c.handle)
	require.NoError(t, err)
	assert.Equal(t, scrape.StopPageLimit, st.StopReason)
	assert.Len(t, f.calls, 2)
}

func TestCrawlKeyword_PageErrorStopsWithoutError(t *testing.T) {
	f := &fakeFetcher{
		pages: map[pageKey]types.Page{{"agent", 1}: {Postings: postings("1"), Cards: 1}},
		errs:  map[pageKey]error{{"agent", 2}: errors.New("connection reset")},
	}
	d := &scrape.Driver{Fetcher: f}
	c := &collector{}

	st, err := d.CrawlKeyword(t.Context(), "agent", time.Now(), nil, c.handle)
	require.NoError(t, err)
	assert.Equal(t, scrape.StopPageError, st.StopReason)
	assert.Equal(t, [][]string{{"1"}}, c.batches)
}

func TestCrawlKeyword_SinkErrorAborts(t *testing.T) {
	f := &fakeFetcher{pages: map[pageKey]types.Page{
		{"LLM", 1}: {Postings: postings("1"), Cards: 1},
		{"LLM", 2}: {Postings: postings("2"), Cards: 1},
	}}
	d := &scrape.Driver{Fetcher: f}
	boom := errors.New("disk full")

	st, err := d.CrawlKeyword(t.Context(), "LLM", time.Now(), nil,
		func(context.Context, string, int, []domain.JobPosting) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, scrape.StopSinkError, st.StopReason)
	assert.Len(t, f.calls, 1)
}

func TestCrawlKeyword_RecheckDropsDuplicatesFromFetcher(t *testing.T) {
	// fetcher that ignores the seen-set entirely
	dup := fetcherFunc(func(req types.PageRequest) (types.Page, error) {
		if req.Page == 1 {
			return types.Page{Postings: postings("7", "8", "7"), Cards: 3}, nil
		}
		return types.Page{Stop: true}, nil
	})
	d := &scrape.Driver{Fetcher: dup}
	c := &collector{}

	_, err := d.CrawlKeyword(t.Context(), "LLM", time.Now(), types.NewSeenSet("8"), c.handle)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"7"}}, c.batches)
}

func TestCrawlKeyword_CancelledDuringDelay(t *testing.T) {
	f := &fakeFetcher{pages: map[pageKey]types.Page{
		{"LLM", 1}: {Postings: postings("1"), Cards: 1},
		{"LLM", 2}: {Postings: postings("2"), Cards: 1},
	}}
	d := &scrape.Driver{Fetcher: f, PageDelay: time.Hour}
	ctx, cancel := context.WithCancel(t.Context())

	st, err := d.CrawlKeyword(ctx, "LLM", time.Now(), nil,
		func(context.Context, string, int, []domain.JobPosting) error {
			cancel()
			return nil
		})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, scrape.IsAbort(err))
	assert.Equal(t, scrape.StopCancelled, st.StopReason)
	assert.Len(t, f.calls, 1)
}

func TestCrawl_SharedSeenAcrossKeywords(t *testing.T) {
	f := &fakeFetcher{pages: map[pageKey]types.Page{
		{"LLM", 1}: {Postings: postings("1", "2"), Cards: 2, Stop: true},
		{"AI", 1}:  {Postings: postings("2", "3"), Cards: 2, Stop: true},
	}}
	d := &scrape.Driver{Fetcher: f, ShareSeen: true}
	c := &collector{}
	seen := types.NewSeenSet("0")

	stats, err := d.Crawl(t.Context(), []string{"LLM", "AI"}, time.Now(), seen, c.handle)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, c.batches)
	assert.Equal(t, []string{"0", "1", "2", "3"}, seen.IDs())
}

func TestCrawl_PerKeywordSeen(t *testing.T) {
	f := &fakeFetcher{pages: map[pageKey]types.Page{
		{"LLM", 1}: {Postings: postings("0", "1", "2"), Cards: 3, Stop: true},
		{"AI", 1}:  {Postings: postings("2", "3"), Cards: 2, Stop: true},
	}}
	d := &scrape.Driver{Fetcher: f, ShareSeen: false}
	c := &collector{}
	seen := types.NewSeenSet("0")

	_, err := d.Crawl(t.Context(), []string{"LLM", "AI"}, time.Now(), seen, c.handle)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"2", "3"}}, c.batches)
	assert.Equal(t, []string{"0"}, seen.IDs())
}

func TestCrawl_OneGateForEveryPageAndKeyword(t *testing.T) {
	var gates []*semaphore.Weighted
	f := fetcherFunc(func(req types.PageRequest) (types.Page, error) {
		gates = append(gates, req.Gate)
		return types.Page{Postings: postings(fmt.Sprintf("%s-%d", req.Keyword, req.Page)), Cards: 1}, nil
	})
	d := &scrape.Driver{Fetcher: f, PageLimit: 3, Concurrency: 4}

	_, err := d.Crawl(t.Context(), []string{"LLM", "AI"}, time.Now(), nil, nil)
	require.NoError(t, err)
	require.Len(t, gates, 6)
	require.NotNil(t, gates[0])
	for _, g := range gates[1:] {
		assert.Same(t, gates[0], g)
	}
	assert.True(t, gates[0].TryAcquire(4))
	assert.False(t, gates[0].TryAcquire(1))
}

type fetcherFunc func(req types.PageRequest) (types.Page, error)

func (fn fetcherFunc) Name() string { return "func" }

func (fn fetcherFunc) FetchPage(_ context.Context, req types.PageRequest) (types.Page, error) {
	return fn(req)
}

// Two listing pages served over HTTP: A, B, C on page one and B, D (too old),
// E on page two. The crawl must emit [A B C] then [E] and stop after page two.
func TestCrawl_EndToEndAgainstListingServer(t *testing.T) {
	now := time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC)
	type row struct{ id, posted string }
	pages := map[string][]row{
		"1": {{"1001", "25/10/15"}, {"1002", "25/10/14"}, {"1003", "25/10/14"}},
		"2": {{"1002", "25/10/14"}, {"1004", "25/09/01"}, {"1005", "25/10/13"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/zf_user/search", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString("<html><body>")
		for _, c := range pages[r.URL.Query().Get("recruitPage")] {
			fmt.Fprintf(&sb, `<div class="item_recruit">
<h2 class="job_tit"><a href="/zf_user/jobs/relay/view?rec_idx=%s" title="job %s">job %s</a></h2>
<div class="job_date"><span class="date">~11/01(토)</span></div>
<div class="job_condition"><span>서울</span><span>신입</span><span>학력무관</span><span>정규직</span></div>
<div class="job_sector">등록일 %s</div>
<strong class="corp_name"><a>corp</a></strong>
</div>`, c.id, c.id, c.id, c.posted)
		}
		sb.WriteString("</body></html>")
		_, _ = w.Write([]byte(sb.String()))
	})
	mux.HandleFunc("/zf_user/jobs/relay/view-detail", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `<div class="wrap_jv_cont">detail %s</div>`, r.URL.Query().Get("rec_idx"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := saramin.New(saramin.Config{BaseURL: srv.URL, Now: func() time.Time { return now }}, nil, nil, nil)
	d := &scrape.Driver{Fetcher: s, PageDelay: time.Millisecond}
	c := &collector{}
	seen := types.NewSeenSet()
	var descs []string

	st, err := d.CrawlKeyword(t.Context(), "LLM", now.AddDate(0, 0, -21), seen,
		func(ctx context.Context, kw string, page int, batch []domain.JobPosting) error {
			for _, p := range batch {
				descs = append(descs, p.Description)
			}
			return c.handle(ctx, kw, page, batch)
		})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1001", "1002", "1003"}, {"1005"}}, c.batches)
	assert.Equal(t, []string{"1001", "1002", "1003", "1005"}, seen.IDs())
	assert.Equal(t, 2, st.Pages)
	assert.Equal(t, scrape.StopCutoff, st.StopReason)
	assert.Equal(t, []string{"detail 1001", "detail 1002", "detail 1003", "detail 1005"}, descs)
}
