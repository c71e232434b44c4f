package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"jobcrawl-engine/internal/config"
)

const (
	// “Service” groups the app’s secrets in the OS keychain.
	KeyringService = "jobcrawl"
)

var ErrPasswordNotFound = errors.New("postgres password not found (set it in keychain or via env)")

// GetStorePassword looks in the keychain first, then in JOBCRAWL_PG_PASSWORD.
func GetStorePassword(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	if pw := os.Getenv(config.EnvPGPassword); strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	return "", ErrPasswordNotFound
}

func SetStorePassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteStorePassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// ResolveStorePassword fills cfg.Store.Password for the postgres driver. A
// missing password is not an error; the DSN may carry one.
func ResolveStorePassword(cfg *config.Config) {
	if cfg.Store.Driver != "postgres" {
		return
	}
	if pw, err := GetStorePassword(cfg.Store.KeyringAccount); err == nil {
		cfg.Store.Password = pw
	}
}
