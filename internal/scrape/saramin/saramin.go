// Package saramin scrapes job postings from the Saramin search and detail pages.
package saramin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobcrawl-engine/internal/logger"
	"jobcrawl-engine/internal/scrape/util"
)

const (
	DefaultBaseURL     = "https://www.saramin.co.kr"
	DefaultPageSize    = 100
	DefaultConcurrency = 10
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	searchPath = "/zf_user/search"
	detailPath = "/zf_user/jobs/relay/view-detail"
)

type Config struct {
	BaseURL      string
	PageSize     int
	LocationCode string // loc_mcd, empty for nationwide
	UserAgent    string
	Timeout      time.Duration
	Now          func() time.Time
}

// ImageFallback enriches short detail text with text read from the detail
// page's images. Implementations decide themselves whether to run.
type ImageFallback interface {
	Enrich(ctx context.Context, text string, imageURLs []string) string
}

type Scraper struct {
	cfg      Config
	hc       *http.Client
	limiter  *util.HostLimiter
	fallback ImageFallback
	log      logger.Interface
}

// New builds a scraper. limiter and fallback may be nil.
func New(cfg Config, limiter *util.HostLimiter, fallback ImageFallback, log logger.Interface) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Scraper{
		cfg:      cfg,
		hc:       &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		fallback: fallback,
		log:      log.WithComponent("saramin"),
	}
}

func (s *Scraper) Name() string { return "saramin" }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

func (s *Scraper) getDocument(ctx context.Context, rawURL, referer string) (*goquery.Document, error) {
	if err := s.limiter.WaitURL(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, Code: res.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", rawURL, err)
	}
	return doc, nil
}
