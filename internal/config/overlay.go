// config/overlay.go
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvGeminiKey  = "GEMINI_API_KEY"
	EnvPGDSN      = "JOBCRAWL_PG_DSN"
	EnvPGPassword = "JOBCRAWL_PG_PASSWORD"
	EnvGCSBucket  = "JOBCRAWL_GCS_BUCKET"
	EnvDataDir    = "JOBCRAWL_DATA_DIR"
)

// LoadDotEnv loads KEY=VALUE pairs from envFiles into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// OverlayEnv copies secrets and deployment overrides from the environment
// onto cfg.
func OverlayEnv(cfg *Config) {
	if v := env(EnvGeminiKey); v != "" {
		cfg.OCR.APIKey = v
	}
	if v := env(EnvPGDSN); v != "" {
		cfg.Store.DSN = v
	}
	if v := env(EnvGCSBucket); v != "" {
		cfg.Export.GCSBucket = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
