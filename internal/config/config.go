// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"jobcrawl-engine/internal/logger"
)

var DefaultKeywords = []string{"LLM", "데이터 분석", "AI", "rag", "agent"}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Log logger.Config `yaml:"log"`

	Crawl struct {
		BaseURL                 string   `yaml:"base_url"`
		Keywords                []string `yaml:"keywords"`
		LookbackDays            int      `yaml:"lookback_days"`
		PageLimit               int      `yaml:"page_limit"`
		PageSize                int      `yaml:"page_size"`
		PageDelayMillis         int      `yaml:"page_delay_ms"`
		Concurrency             int      `yaml:"concurrency"`
		TimeoutSeconds          int      `yaml:"timeout_seconds"`
		LocationCode            string   `yaml:"location_code"`
		RequestsPerSecond       float64  `yaml:"requests_per_second"`
		ShareSeenAcrossKeywords bool     `yaml:"share_seen_across_keywords"`
		Schedule                string   `yaml:"schedule"` // cron expression, empty disables
	} `yaml:"crawl"`

	OCR struct {
		Enabled            bool   `yaml:"enabled"`
		Model              string `yaml:"model"`
		ShortTextThreshold int    `yaml:"short_text_threshold"`
		APIKey             string `yaml:"-" json:"-"` // GEMINI_API_KEY
	} `yaml:"ocr"`

	Store struct {
		Driver         string `yaml:"driver"` // sqlite | postgres
		Path           string `yaml:"path"`   // relative to app.data_dir
		DSN            string `yaml:"dsn"`
		KeyringAccount string `yaml:"keyring_account"`
		BatchSize      int    `yaml:"batch_size"`
		Password       string `yaml:"-" json:"-"`
	} `yaml:"store"`

	Export struct {
		AfterCrawl   bool   `yaml:"after_crawl"`
		Dir          string `yaml:"dir"`
		GCSBucket    string `yaml:"gcs_bucket"`
		GCSPrefix    string `yaml:"gcs_prefix"`
		LinesPerFile int    `yaml:"lines_per_file"`
	} `yaml:"export"`
}

func Default() Config {
	var cfg Config
	cfg.App.Port = 38471
	cfg.App.DataDir = "."

	cfg.Log = logger.Config{Level: "info", Encoding: "console"}

	cfg.Crawl.BaseURL = "https://www.saramin.co.kr"
	cfg.Crawl.Keywords = append([]string(nil), DefaultKeywords...)
	cfg.Crawl.LookbackDays = 21
	cfg.Crawl.PageLimit = 100
	cfg.Crawl.PageSize = 100
	cfg.Crawl.PageDelayMillis = 500
	cfg.Crawl.Concurrency = 10
	cfg.Crawl.TimeoutSeconds = 30
	cfg.Crawl.ShareSeenAcrossKeywords = true

	cfg.OCR.Model = "gemini-1.5-flash"
	cfg.OCR.ShortTextThreshold = 100

	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "jobcrawl.db"
	cfg.Store.BatchSize = 500

	cfg.Export.Dir = "export"
	cfg.Export.LinesPerFile = 2500
	return cfg
}

// Load reads path over the defaults, so omitted keys keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Crawl.PageDelayMillis) * time.Millisecond
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Crawl.TimeoutSeconds) * time.Second
}

// Cutoff is the oldest posted day still collected: today minus the lookback.
func (c Config) Cutoff(now time.Time) time.Time {
	d := now.AddDate(0, 0, -c.Crawl.LookbackDays)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// StorePath resolves store.path against the data dir.
func (c Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.App.DataDir, c.Store.Path)
}

func (c Config) ExportDir() string {
	if filepath.IsAbs(c.Export.Dir) {
		return c.Export.Dir
	}
	return filepath.Join(c.App.DataDir, c.Export.Dir)
}
