package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcrawl-engine/internal/config"
)

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  keywords: [\"Go\"]\n  page_limit: 3\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, cfg.Crawl.Keywords)
	assert.Equal(t, 3, cfg.Crawl.PageLimit)
	assert.Equal(t, 21, cfg.Crawl.LookbackDays)
	assert.Equal(t, 500*time.Millisecond, cfg.PageDelay())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestDefaultConfigFileMatchesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestEnsureUserConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := config.EnsureUserConfig(dir, filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	// existing file is left alone
	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 9000\n"), 0o644))
	_, err = config.EnsureUserConfig(dir, filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.App.Port)
}

func TestCutoff(t *testing.T) {
	cfg := config.Default()
	now := time.Date(2025, time.October, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.September, 24, 0, 0, 0, 0, time.UTC), cfg.Cutoff(now))
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Crawl.Keywords = []string{" LLM ", "llm", "", "AI"}
	cfg.Crawl.BaseURL = "https://www.saramin.co.kr/"
	cfg.Store.Driver = " SQLite "

	out, v := config.NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), v.Errors)
	assert.NoError(t, v.Err())
	assert.Equal(t, []string{"LLM", "AI"}, out.Crawl.Keywords)
	assert.Equal(t, "https://www.saramin.co.kr", out.Crawl.BaseURL)
	assert.Equal(t, "sqlite", out.Store.Driver)
}

func TestNormalizeAndValidate_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Enabled = true
	cfg.Store.Driver = "postgres"
	cfg.Crawl.Schedule = "every tuesday"
	cfg.Crawl.PageSize = 500

	_, v := config.NormalizeAndValidate(cfg)
	require.False(t, v.OK())
	assert.Len(t, v.Errors, 4)
	assert.ErrorContains(t, v.Err(), "GEMINI_API_KEY")
}

func TestNormalizeAndValidate_WarnsOnAggressiveSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Crawl.PageDelayMillis = 0
	cfg.Crawl.Concurrency = 50

	_, v := config.NormalizeAndValidate(cfg)
	assert.True(t, v.OK())
	assert.Len(t, v.Warnings, 2)
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv(config.EnvGeminiKey, " key ")
	t.Setenv(config.EnvPGDSN, "postgres://u@localhost/jobs")
	t.Setenv(config.EnvGCSBucket, "")

	cfg := config.Default()
	cfg.Export.GCSBucket = "from-file"
	config.OverlayEnv(&cfg)

	assert.Equal(t, "key", cfg.OCR.APIKey)
	assert.Equal(t, "postgres://u@localhost/jobs", cfg.Store.DSN)
	assert.Equal(t, "from-file", cfg.Export.GCSBucket)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JOBCRAWL_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Setenv("JOBCRAWL_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("JOBCRAWL_TEST_VALUE"))

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "nope.env"), envFile))
	assert.Equal(t, "from-dotenv", os.Getenv("JOBCRAWL_TEST_VALUE"))
}
