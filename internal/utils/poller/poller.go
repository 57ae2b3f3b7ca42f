package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller runs pollMethod once on start and then on every tick until stopped.
type Poller struct {
	name       string
	interval   time.Duration
	quit       chan struct{}
	pollMethod func(ctx context.Context) error
}

func NewPoller(name string, interval time.Duration, pollMethod func(ctx context.Context) error) *Poller {
	return &Poller{
		name:       name,
		interval:   interval,
		quit:       make(chan struct{}),
		pollMethod: pollMethod,
	}
}

func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logger := log.Ctx(ctx).With().Str("poller", p.name).Logger()
	logger.Info().Msgf("Starting poller with interval %s", p.interval)

	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			logger.Info().Msg("Poller stopped due to context cancellation")
			return
		case <-p.quit:
			logger.Info().Msg("Poller stopped")
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.pollMethod(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("poller", p.name).Msg("Error polling")
	}
}

func (p *Poller) Stop() {
	close(p.quit)
}
