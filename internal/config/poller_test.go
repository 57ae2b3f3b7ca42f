package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerConfig_Validate(t *testing.T) {
	t.Run("stats polling interval set", func(t *testing.T) {
		cfg := &PollerConfig{StatsPollingInterval: 3 * time.Minute}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 3*time.Minute, cfg.StatsPollingInterval)
	})

	t.Run("stats polling interval not set - should use default", func(t *testing.T) {
		cfg := &PollerConfig{}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, defaultStatsPollingInterval, cfg.StatsPollingInterval)
	})

	t.Run("stats polling interval negative - should error", func(t *testing.T) {
		cfg := &PollerConfig{StatsPollingInterval: -1 * time.Minute}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stats-polling-interval must not be negative")
	})
}
