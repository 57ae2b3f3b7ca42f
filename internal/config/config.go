package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Db         DbConfig         `mapstructure:"db"`
	VaultStore VaultStoreConfig `mapstructure:"vault-store"`
	Factory    FactoryConfig    `mapstructure:"factory"`
	Calls      CallsConfig      `mapstructure:"calls"`
	Queue      *QueueConfig     `mapstructure:"queue"`
	Server     ServerConfig     `mapstructure:"server"`
	Poller     PollerConfig     `mapstructure:"poller"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Db.Validate(); err != nil {
		return err
	}

	if err := cfg.VaultStore.Validate(); err != nil {
		return err
	}

	if err := cfg.Factory.Validate(); err != nil {
		return err
	}

	if err := cfg.Calls.Validate(); err != nil {
		return err
	}

	// queue section is only required when deferred calls go over amqp
	if cfg.Calls.Transport == CallsTransportAmqp {
		if cfg.Queue == nil {
			return fmt.Errorf("queue config is required for %s calls transport", CallsTransportAmqp)
		}
		if err := cfg.Queue.Validate(); err != nil {
			return err
		}
	}

	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	if err := cfg.Poller.Validate(); err != nil {
		return err
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}

	return nil
}

// New returns a fully parsed Config object from a given file directory
func New(cfgFile string) (*Config, error) {
	viper.SetConfigFile(cfgFile)

	viper.AutomaticEnv()
	/*
		Below code will replace nested fields in yml into `_` and any `-` into `__` when you try to override this config via env variable
		To give an example:
		1. `factory.storage-price-per-byte` can be overridden by `FACTORY_STORAGE__PRICE__PER__BYTE`
		2. `db.address` can be overridden by `DB_ADDRESS`
	*/
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "__"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
