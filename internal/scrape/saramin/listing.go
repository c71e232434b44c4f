package saramin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/scrape/types"
	"jobcrawl-engine/internal/scrape/util"
)

// Positions inside .job_condition.
const (
	condLocation       = 0
	condExperience     = 1
	condEmploymentType = 3
)

func (s *Scraper) SearchURL(page int, keyword string) string {
	q := url.Values{}
	q.Set("search_area", "main")
	q.Set("recruitPage", strconv.Itoa(page))
	q.Set("recruitSort", "reg_dt")
	q.Set("recruitPageCount", strconv.Itoa(s.cfg.PageSize))
	if keyword != "" {
		q.Set("searchType", "search")
		q.Set("searchword", keyword)
	}
	if s.cfg.LocationCode != "" {
		q.Set("loc_mcd", s.cfg.LocationCode)
	}
	return s.cfg.BaseURL + searchPath + "?" + q.Encode()
}

// FetchPage downloads one search-results page, keeps the cards that are new
// and not older than req.Cutoff, and fills in each survivor's description.
// Page.Stop is set when the page is empty or when any card predates the cutoff.
func (s *Scraper) FetchPage(ctx context.Context, req types.PageRequest) (types.Page, error) {
	doc, err := s.getDocument(ctx, s.SearchURL(req.Page, req.Keyword), "")
	if err != nil {
		return types.Page{}, fmt.Errorf("saramin page %d: %w", req.Page, err)
	}

	cards := doc.Find(".item_recruit")
	page := types.Page{Cards: cards.Length()}
	if page.Cards == 0 {
		page.Stop = true
		return page, nil
	}

	now := s.cfg.Now()
	cutoff := dayOf(req.Cutoff)
	onPage := make(map[string]bool, page.Cards)

	var postings []domain.JobPosting
	cards.Each(func(_ int, card *goquery.Selection) {
		p, posted, ok := s.parseCard(card, now)
		if !ok {
			return
		}
		if onPage[p.ExternalID] || (req.Seen != nil && req.Seen.Has(p.ExternalID)) {
			return
		}
		onPage[p.ExternalID] = true

		if posted.Before(cutoff) {
			page.Stop = true
			return
		}
		p.Keyword = req.Keyword
		postings = append(postings, p)
	})

	s.enrichAll(ctx, req.Gate, postings)
	page.Postings = postings

	s.log.Debug("page parsed",
		"page", req.Page, "keyword", req.Keyword,
		"cards", page.Cards, "kept", len(postings), "stop", page.Stop)
	return page, nil
}

// parseCard returns ok=false for cards without an id or a posted date.
func (s *Scraper) parseCard(card *goquery.Selection, now time.Time) (domain.JobPosting, time.Time, bool) {
	link := card.Find(".job_tit a").First()
	href := link.AttrOr("href", "")
	id := domain.ExternalIDFromLink(href)
	if id == "" {
		return domain.JobPosting{}, time.Time{}, false
	}

	posted, ok := ParsePostedDate(card.Find(".job_sector").Text())
	if !ok {
		return domain.JobPosting{}, time.Time{}, false
	}

	var conds []string
	card.Find(".job_condition span").Each(func(_ int, sp *goquery.Selection) {
		conds = append(conds, util.CleanText(sp.Text()))
	})
	at := func(i int) string {
		if i < len(conds) {
			return conds[i]
		}
		return ""
	}

	title := util.CleanText(link.AttrOr("title", ""))
	if title == "" {
		title = util.CleanText(link.Text())
	}

	return domain.JobPosting{
		ExternalID:     id,
		Platform:       domain.PlatformSaramin,
		Title:          title,
		Company:        util.CleanText(card.Find(".corp_name a").First().Text()),
		Location:       at(condLocation),
		Experience:     at(condExperience),
		EmploymentType: at(condEmploymentType),
		PostedDate:     posted.Format(domain.DateLayout),
		DeadlineDate:   ParseDeadline(card.Find(".job_date .date").First().Text(), now),
		DetailLink:     util.ResolveURL(s.cfg.BaseURL, href),
		CrawledAt:      now,
	}, posted, true
}

// enrichAll fetches every posting's detail concurrently, each task holding one
// permit of gate for its detail and image work. Failures become placeholder
// descriptions; it never returns early.
func (s *Scraper) enrichAll(ctx context.Context, gate *semaphore.Weighted, postings []domain.JobPosting) {
	if len(postings) == 0 {
		return
	}
	if gate == nil {
		gate = semaphore.NewWeighted(DefaultConcurrency)
	}

	var g errgroup.Group
	for i := range postings {
		p := &postings[i]
		g.Go(func() error {
			if err := gate.Acquire(ctx, 1); err != nil {
				p.Description = DetailErrorText(err)
				return nil
			}
			defer gate.Release(1)

			p.Description = s.describe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scraper) describe(ctx context.Context, p *domain.JobPosting) string {
	text, images, err := s.FetchDetail(ctx, p.ExternalID)
	if err != nil {
		s.log.Warn("detail fetch failed", "rec_idx", p.ExternalID, "title", p.Title, "error", err)
		return DetailErrorText(err)
	}
	if s.fallback != nil {
		text = s.fallback.Enrich(ctx, text, images)
	}
	return text
}
