package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const TraceIDHeader = "X-Request-Id"

func InjectTraceID(ctx context.Context) context.Context {
	return InjectTraceIDValue(ctx, uuid.New().String())
}

// InjectTraceIDValue attaches a logger carrying id to ctx. An empty id is
// replaced with a fresh one.
func InjectTraceIDValue(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}
