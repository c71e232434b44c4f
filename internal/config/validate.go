package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("config validation failed:\n- %s", strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Crawl.Keywords = trimList(out.Crawl.Keywords)
	out.Crawl.BaseURL = strings.TrimRight(strings.TrimSpace(out.Crawl.BaseURL), "/")
	out.Crawl.Schedule = strings.TrimSpace(out.Crawl.Schedule)
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if len(out.Crawl.Keywords) == 0 {
		res.addWarn("crawl.keywords is empty; the unfiltered listing will be crawled.")
		out.Crawl.Keywords = []string{""}
	}
	if !strings.HasPrefix(out.Crawl.BaseURL, "http://") && !strings.HasPrefix(out.Crawl.BaseURL, "https://") {
		res.addErr("crawl.base_url must be an http(s) URL")
	}
	if out.Crawl.LookbackDays <= 0 {
		res.addErr("crawl.lookback_days must be > 0")
	}
	if out.Crawl.PageLimit <= 0 {
		res.addErr("crawl.page_limit must be > 0")
	}
	if out.Crawl.PageSize <= 0 || out.Crawl.PageSize > 100 {
		res.addErr("crawl.page_size must be 1..100")
	}
	if out.Crawl.PageDelayMillis < 0 {
		res.addErr("crawl.page_delay_ms must be >= 0")
	} else if out.Crawl.PageDelayMillis < 200 {
		res.addWarn("crawl.page_delay_ms is very low (%d) and may get the crawler blocked.", out.Crawl.PageDelayMillis)
	}
	if out.Crawl.Concurrency <= 0 {
		res.addErr("crawl.concurrency must be > 0")
	} else if out.Crawl.Concurrency > 20 {
		res.addWarn("crawl.concurrency is high (%d) and may get the crawler blocked.", out.Crawl.Concurrency)
	}
	if out.Crawl.TimeoutSeconds <= 0 {
		res.addErr("crawl.timeout_seconds must be > 0")
	}
	if out.Crawl.RequestsPerSecond < 0 {
		res.addErr("crawl.requests_per_second must be >= 0")
	}
	if out.Crawl.Schedule != "" {
		if _, err := cron.ParseStandard(out.Crawl.Schedule); err != nil {
			res.addErr("crawl.schedule is not a valid cron expression: %v", err)
		}
	}

	if out.OCR.Enabled {
		if out.OCR.APIKey == "" {
			res.addErr("ocr.enabled=true requires %s in the environment", EnvGeminiKey)
		}
		if out.OCR.ShortTextThreshold <= 0 {
			res.addErr("ocr.short_text_threshold must be > 0")
		}
	}

	switch out.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(out.Store.Path) == "" {
			res.addErr("store.path is required when store.driver=sqlite")
		}
	case "postgres":
		if strings.TrimSpace(out.Store.DSN) == "" {
			res.addErr("store.dsn (or %s) is required when store.driver=postgres", EnvPGDSN)
		}
	default:
		res.addErr("store.driver must be sqlite or postgres, got %q", out.Store.Driver)
	}
	if out.Store.BatchSize <= 0 {
		res.addErr("store.batch_size must be > 0")
	}

	if out.Export.LinesPerFile <= 0 {
		res.addErr("export.lines_per_file must be > 0")
	}
	if out.Export.AfterCrawl && out.Export.GCSBucket == "" && strings.TrimSpace(out.Export.Dir) == "" {
		res.addErr("export.after_crawl=true needs export.dir or export.gcs_bucket")
	}

	switch out.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		res.addErr("log.level must be debug, info, warn or error")
	}

	return out, res
}
