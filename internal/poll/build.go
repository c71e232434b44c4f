package poll

import (
	"context"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/export"
	"jobcrawl-engine/internal/logger"
	"jobcrawl-engine/internal/scrape/ocr"
	"jobcrawl-engine/internal/scrape/saramin"
	"jobcrawl-engine/internal/scrape/util"
)

// BuildFetcher wires the site scraper, its limiter and, when enabled, the
// Gemini image-text fallback. The returned func releases the extractor.
func BuildFetcher(ctx context.Context, cfg config.Config, log logger.Interface) (*saramin.Scraper, func() error, error) {
	limiter := util.NewHostLimiter(cfg.Crawl.RequestsPerSecond, 2)
	closer := func() error { return nil }

	var fallback saramin.ImageFallback
	if cfg.OCR.Enabled {
		gem, err := ocr.NewGeminiExtractor(ctx, cfg.OCR.APIKey, cfg.OCR.Model)
		if err != nil {
			return nil, nil, err
		}
		closer = gem.Close
		fallback = ocr.New(ocr.Config{
			ShortTextThreshold: cfg.OCR.ShortTextThreshold,
			UserAgent:          saramin.DefaultUserAgent,
			Timeout:            cfg.HTTPTimeout(),
		}, gem, limiter, log)
	}

	s := saramin.New(saramin.Config{
		BaseURL:      cfg.Crawl.BaseURL,
		PageSize:     cfg.Crawl.PageSize,
		LocationCode: cfg.Crawl.LocationCode,
		Timeout:      cfg.HTTPTimeout(),
	}, limiter, fallback, log)
	return s, closer, nil
}

// BuildExporter targets GCS when a bucket is configured, else export.dir.
func BuildExporter(ctx context.Context, cfg config.Config, log logger.Interface) (*export.Exporter, func() error, error) {
	e := &export.Exporter{LinesPerFile: cfg.Export.LinesPerFile, Log: log}
	if cfg.Export.GCSBucket != "" {
		g, err := export.NewGCS(ctx, cfg.Export.GCSBucket, cfg.Export.GCSPrefix)
		if err != nil {
			return nil, nil, err
		}
		e.Target = g
		return e, g.Close, nil
	}
	e.Target = export.Dir(cfg.ExportDir())
	return e, func() error { return nil }, nil
}
