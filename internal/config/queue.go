package config

import (
	"errors"
	"time"
)

const (
	defaultCallsExchange   = "vault_factory"
	defaultCallQueue       = "deferred_calls"
	defaultResultQueue     = "deferred_call_results"
	defaultPrefetchCount   = 16
	defaultReconnectDelay  = 2 * time.Second
	defaultMaxReconnectTry = 5
)

type QueueConfig struct {
	Url               string        `mapstructure:"url"`
	QueueUser         string        `mapstructure:"queue-user"`
	QueuePassword     string        `mapstructure:"queue-password"`
	Exchange          string        `mapstructure:"exchange"`
	CallQueue         string        `mapstructure:"call-queue"`
	ResultQueue       string        `mapstructure:"result-queue"`
	PrefetchCount     int           `mapstructure:"prefetch-count"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect-delay"`
	MaxReconnectTimes uint          `mapstructure:"max-reconnect-times"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.Url == "" {
		return errors.New("queue url is required")
	}
	if cfg.QueueUser == "" {
		return errors.New("queue user is required")
	}
	if cfg.QueuePassword == "" {
		return errors.New("queue password is required")
	}

	if cfg.Exchange == "" {
		cfg.Exchange = defaultCallsExchange
	}
	if cfg.CallQueue == "" {
		cfg.CallQueue = defaultCallQueue
	}
	if cfg.ResultQueue == "" {
		cfg.ResultQueue = defaultResultQueue
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = defaultPrefetchCount
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectTimes == 0 {
		cfg.MaxReconnectTimes = defaultMaxReconnectTry
	}

	return nil
}
