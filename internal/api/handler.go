package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/api/handlers"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func newErrorResponse(err *types.Error) ErrorResponse {
	msg := err.Err.Error()
	// internal details stay in the logs
	if err.StatusCode == http.StatusInternalServerError {
		msg = "Internal service error"
	}
	return ErrorResponse{ErrorCode: err.ErrorCode.String(), Message: msg}
}

func writeResponse(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write response")
	}
}

func registerHandler(route string, handlerFunc func(*http.Request) (*handlers.Result, *types.Error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		finish := metrics.StartHttpRequestDurationTimer(r.Method, route)

		result, err := handlerFunc(r)
		if err != nil {
			logger := log.Ctx(r.Context())
			if err.StatusCode >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("errorCode", err.ErrorCode.String()).Msg("request failed")
			} else {
				logger.Warn().Err(err).Str("errorCode", err.ErrorCode.String()).Msg("request rejected")
			}
			writeResponse(w, r, err.StatusCode, newErrorResponse(err))
			finish(err.StatusCode)
			return
		}

		writeResponse(w, r, result.Status, result.Data)
		finish(result.Status)
	}
}
