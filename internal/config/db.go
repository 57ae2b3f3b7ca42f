package config

import (
	"fmt"
	"net/url"
)

const defaultMaxPaginationLimit = 100

type DbConfig struct {
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	DbName             string `mapstructure:"db-name"`
	Address            string `mapstructure:"address"`
	MaxPaginationLimit int64  `mapstructure:"max-pagination-limit"`
}

func (cfg *DbConfig) Validate() error {
	if cfg.Username == "" {
		return fmt.Errorf("missing db username")
	}

	if cfg.Password == "" {
		return fmt.Errorf("missing db password")
	}

	if cfg.Address == "" {
		return fmt.Errorf("missing db address")
	}

	if cfg.DbName == "" {
		return fmt.Errorf("missing db name")
	}

	u, err := url.Parse(cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid db address: %w", err)
	}

	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("unsupported db scheme: %s", u.Scheme)
	}

	if cfg.MaxPaginationLimit <= 0 {
		cfg.MaxPaginationLimit = defaultMaxPaginationLimit
	}

	return nil
}
