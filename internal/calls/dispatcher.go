package calls

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
)

// Continuation is run with the result of the call it was registered for.
type Continuation func(ctx context.Context, result Result)

// Handle identifies an in-flight call.
type Handle struct {
	CallID uuid.UUID
	Target string
	Method string
}

type pendingCall struct {
	handle       Handle
	continuation Continuation
}

// Dispatcher pairs submitted calls with their continuations. A continuation
// runs at most once, only after the facility delivered the call result.
type Dispatcher struct {
	facility Facility

	mu      sync.Mutex
	pending map[uuid.UUID]pendingCall
}

func NewDispatcher(facility Facility) *Dispatcher {
	d := &Dispatcher{
		facility: facility,
		pending:  make(map[uuid.UUID]pendingCall),
	}
	facility.OnResult(d.Deliver)
	return d
}

// Begin registers continuation for call and submits it. When submission fails
// the continuation is dropped and never runs.
func (d *Dispatcher) Begin(ctx context.Context, call Call, continuation Continuation) (Handle, error) {
	handle := Handle{CallID: call.ID, Target: call.Target, Method: call.Method()}

	d.mu.Lock()
	if _, exists := d.pending[call.ID]; exists {
		d.mu.Unlock()
		return Handle{}, fmt.Errorf("call %s is already in flight", call.ID)
	}
	d.pending[call.ID] = pendingCall{handle: handle, continuation: continuation}
	metrics.RecordPendingCalls(len(d.pending))
	d.mu.Unlock()

	if err := d.facility.Submit(ctx, call); err != nil {
		d.mu.Lock()
		delete(d.pending, call.ID)
		metrics.RecordPendingCalls(len(d.pending))
		d.mu.Unlock()
		return Handle{}, fmt.Errorf("failed to submit call %s to %s: %w", call.ID, call.Target, err)
	}

	return handle, nil
}

// Await registers continuation for a call that was submitted earlier, for
// example before a restart. It fails if the call is already registered.
func (d *Dispatcher) Await(handle Handle, continuation Continuation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.pending[handle.CallID]; exists {
		return fmt.Errorf("call %s is already in flight", handle.CallID)
	}
	d.pending[handle.CallID] = pendingCall{handle: handle, continuation: continuation}
	metrics.RecordPendingCalls(len(d.pending))
	return nil
}

// Deliver runs the continuation registered for result.CallID. Results for
// unknown or already completed calls are dropped.
func (d *Dispatcher) Deliver(ctx context.Context, result Result) {
	d.mu.Lock()
	pc, ok := d.pending[result.CallID]
	if ok {
		delete(d.pending, result.CallID)
	}
	metrics.RecordPendingCalls(len(d.pending))
	d.mu.Unlock()

	if !ok {
		log.Ctx(ctx).Warn().
			Str("call_id", result.CallID.String()).
			Bool("success", result.Success).
			Msg("dropping result of unknown or completed call")
		return
	}

	log.Ctx(ctx).Debug().
		Str("call_id", result.CallID.String()).
		Str("target", pc.handle.Target).
		Str("method", pc.handle.Method).
		Bool("success", result.Success).
		Msg("delivering call result")

	if pc.continuation != nil {
		pc.continuation(ctx, result)
	}
}

// Pending returns the number of calls waiting for a result.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
