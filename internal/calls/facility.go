package calls

import (
	"context"
	"errors"
)

var ErrFacilityBusy = errors.New("deferred call facility is busy")

// ResultHandler receives call results from a facility.
type ResultHandler func(ctx context.Context, result Result)

// Facility dispatches calls to remote hosts and reports their results to the
// registered handler.
type Facility interface {
	Submit(ctx context.Context, call Call) error
	OnResult(handler ResultHandler)
}

// Executor applies a call on a host and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, call Call) Result
}
