package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/babylonlabs-io/price-vault-factory/internal/observability/tracing"
)

const maxRequestBodyBytes = 1 << 20

// TracingMiddleware attaches a trace id logger to the request context and
// echoes the id back. A caller supplied id is reused.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(tracing.TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := tracing.InjectTraceIDValue(r.Context(), traceID)
		w.Header().Set(tracing.TraceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ContentLengthMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
