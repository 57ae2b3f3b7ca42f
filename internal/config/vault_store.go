package config

import (
	"errors"
	"time"
)

const defaultVaultStoreOpenTimeout = 5 * time.Second

type VaultStoreConfig struct {
	// Path of the bbolt file holding every hosted vault instance
	Path        string        `mapstructure:"path"`
	OpenTimeout time.Duration `mapstructure:"open-timeout"`
}

func (cfg *VaultStoreConfig) Validate() error {
	if cfg.Path == "" {
		return errors.New("vault-store path is required")
	}

	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultVaultStoreOpenTimeout
	}

	return nil
}
