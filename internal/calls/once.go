package calls

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrCallUnresolved is returned for a call whose execution started earlier
// without storing a result, e.g. before a crash. Its effects are unknown so it
// is not applied again.
var ErrCallUnresolved = errors.New("call started earlier without a stored result")

// CallLog persists the calls a host executed and their results.
type CallLog interface {
	// StartCall marks id as executing. It returns the stored result of a call
	// that was already applied, and ErrCallUnresolved for a call that started
	// but never finished.
	StartCall(id uuid.UUID) (*Result, error)
	FinishCall(result Result) error
}

// Applier applies calls delivered by a facility.
type Applier interface {
	Apply(ctx context.Context, call Call) (Result, error)
}

// Once applies every call id at most once. A redelivered call gets the result
// of its first execution.
type Once struct {
	executor Executor
	log      CallLog
}

func NewOnce(executor Executor, log CallLog) *Once {
	return &Once{executor: executor, log: log}
}

func (o *Once) Apply(ctx context.Context, call Call) (Result, error) {
	stored, err := o.log.StartCall(call.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to start call %s: %w", call.ID, err)
	}
	if stored != nil {
		log.Ctx(ctx).Info().
			Str("call_id", call.ID.String()).
			Str("target", call.Target).
			Msg("call already applied, replaying its result")
		return *stored, nil
	}

	result := o.executor.Execute(ctx, call)
	result.CallID = call.ID
	if err := o.log.FinishCall(result); err != nil {
		// the result is still delivered, only a redelivery is left unresolved
		log.Ctx(ctx).Error().Err(err).
			Str("call_id", call.ID.String()).
			Msg("failed to store call result")
	}
	return result, nil
}
