// Package ocr reads text out of posting images when a detail page carries
// little or no text of its own.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"jobcrawl-engine/internal/logger"
	"jobcrawl-engine/internal/scrape/util"
)

const (
	DefaultShortTextThreshold = 100
	DefaultMaxImageBytes      = 10 << 20
	DefaultTimeout            = 30 * time.Second

	// Label separates the page text from the appended image text.
	Label = "--- extracted image text ---"
)

var ErrImageTooLarge = errors.New("ocr: image exceeds size limit")

// TextExtractor turns image bytes into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

type Config struct {
	ShortTextThreshold int // runes
	MaxImageBytes      int64
	UserAgent          string
	Timeout            time.Duration
}

type Fallback struct {
	cfg       Config
	hc        *http.Client
	limiter   *util.HostLimiter
	extractor TextExtractor
	log       logger.Interface
}

func New(cfg Config, extractor TextExtractor, limiter *util.HostLimiter, log logger.Interface) *Fallback {
	if cfg.ShortTextThreshold <= 0 {
		cfg.ShortTextThreshold = DefaultShortTextThreshold
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Fallback{
		cfg:       cfg,
		hc:        &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		extractor: extractor,
		log:       log.WithComponent("ocr"),
	}
}

// ShouldRun reports whether text is short enough, and images present, for
// the fallback to kick in.
func (f *Fallback) ShouldRun(text string, imageURLs []string) bool {
	return len(imageURLs) > 0 && utf8.RuneCountInString(text) < f.cfg.ShortTextThreshold
}

// Enrich appends text read from imageURLs to text when ShouldRun holds.
// Images are processed concurrently; an image that fails contributes nothing.
func (f *Fallback) Enrich(ctx context.Context, text string, imageURLs []string) string {
	if !f.ShouldRun(text, imageURLs) {
		return text
	}
	f.log.Debug("detail text short, reading images", "runes", utf8.RuneCountInString(text), "images", len(imageURLs))

	texts := make([]string, len(imageURLs))
	var g errgroup.Group
	for i, u := range imageURLs {
		g.Go(func() error {
			t, err := f.imageText(ctx, u)
			if err != nil {
				f.log.Warn("image text extraction failed", "url", u, "error", err)
				return nil
			}
			texts[i] = util.PreprocessText(t)
			return nil
		})
	}
	_ = g.Wait()

	var found []string
	for _, t := range texts {
		if t != "" {
			found = append(found, t)
		}
	}
	if len(found) == 0 {
		return text
	}

	extra := Label + "\n" + strings.Join(found, "\n\n")
	if text == "" {
		return extra
	}
	return text + "\n\n" + extra
}

func (f *Fallback) imageText(ctx context.Context, rawURL string) (string, error) {
	b, ct, err := f.fetchImage(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return f.extractor.ExtractText(ctx, b, ct)
}

func (f *Fallback) fetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(b)) > f.cfg.MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}
	if len(b) == 0 {
		return nil, "", errors.New("ocr: empty image body")
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		// sniff as fallback
		ct = http.DetectContentType(b)
	}
	return b, ct, nil
}
