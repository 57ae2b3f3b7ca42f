package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/utils/poller"
)

// StartStatsPoller starts the stats polling service
func (s *Service) StartStatsPoller(ctx context.Context) {
	statsPoller := poller.NewPoller(
		"stats",
		s.cfg.Poller.StatsPollingInterval,
		metrics.TimedPoll("stats", s.updateStats),
	)
	go statsPoller.Start(ctx)
}

func (s *Service) updateStats(ctx context.Context) error {
	count, err := s.db.CountVaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to count vaults: %w", err)
	}
	metrics.RecordVaultsCount(count)

	hosted := s.host.Vaults()
	byState := map[types.VaultState]int{
		types.StateLocked:    0,
		types.StateUnlocking: 0,
		types.StateUnlocked:  0,
	}
	for _, v := range hosted {
		byState[v.Status().State]++
	}
	for state, n := range byState {
		metrics.RecordHostedVaults(state.String(), n)
	}
	metrics.RecordPendingCalls(s.dispatcher.Pending())

	log.Ctx(ctx).Debug().
		Int64("vaults", count).
		Int("hosted", len(hosted)).
		Int("pending_calls", s.dispatcher.Pending()).
		Msg("stats updated")
	return nil
}
