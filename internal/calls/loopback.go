package calls

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Loopback is an in-process facility: submitted calls are queued and applied
// by an Applier from a single worker, results go to the result handler.
type Loopback struct {
	applier Applier
	queue   chan Call

	mu      sync.RWMutex
	handler ResultHandler
}

func NewLoopback(applier Applier, size int) *Loopback {
	return &Loopback{
		applier: applier,
		queue:   make(chan Call, size),
	}
}

func (l *Loopback) OnResult(handler ResultHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = handler
}

// Submit never blocks, a full backlog is reported as ErrFacilityBusy.
func (l *Loopback) Submit(ctx context.Context, call Call) error {
	select {
	case l.queue <- call:
		return nil
	default:
		return ErrFacilityBusy
	}
}

// Start applies queued calls until ctx is done.
func (l *Loopback) Start(ctx context.Context) {
	log.Ctx(ctx).Info().Msg("Starting loopback call facility")
	for {
		select {
		case call := <-l.queue:
			l.apply(ctx, call)
		case <-ctx.Done():
			log.Ctx(ctx).Info().Msg("Loopback call facility stopped due to context cancellation")
			return
		}
	}
}

// Drain synchronously applies every queued call, including calls submitted by
// continuations while draining, and returns how many were applied.
func (l *Loopback) Drain(ctx context.Context) int {
	applied := 0
	for {
		select {
		case call := <-l.queue:
			l.apply(ctx, call)
			applied++
		default:
			return applied
		}
	}
}

func (l *Loopback) apply(ctx context.Context, call Call) {
	result, err := l.applier.Apply(ctx, call)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("call_id", call.ID.String()).
			Str("target", call.Target).
			Bool("operator_action_required", true).
			Msg("call left without result")
		return
	}

	l.mu.RLock()
	handler := l.handler
	l.mu.RUnlock()

	if handler == nil {
		log.Ctx(ctx).Warn().Str("call_id", call.ID.String()).Msg("no result handler registered")
		return
	}
	handler(ctx, result)
}
