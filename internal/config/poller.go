package config

import (
	"errors"
	"time"
)

const defaultStatsPollingInterval = 5 * time.Minute

type PollerConfig struct {
	StatsPollingInterval time.Duration `mapstructure:"stats-polling-interval"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.StatsPollingInterval < 0 {
		return errors.New("stats-polling-interval must not be negative")
	}

	if cfg.StatsPollingInterval == 0 {
		cfg.StatsPollingInterval = defaultStatsPollingInterval
	}

	return nil
}
