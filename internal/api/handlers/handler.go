package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/services"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

// CallerHeader carries the account on whose behalf a request is made.
const CallerHeader = "X-Account-Id"

type Handler struct {
	cfg     *config.ServerConfig
	service *services.Service
}

type Result struct {
	Data   any
	Status int
}

type paginatedResponse struct {
	Data       any   `json:"data"`
	NextOffset int64 `json:"next_offset,omitempty"`
}

type publicResponse struct {
	Data any `json:"data"`
}

func New(cfg *config.ServerConfig, service *services.Service) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
	}
}

func NewResult(data any) *Result {
	return &Result{Data: publicResponse{Data: data}, Status: http.StatusOK}
}

func NewResultWithStatus(data any, status int) *Result {
	return &Result{Data: publicResponse{Data: data}, Status: status}
}

// NewPaginatedResult sets next_offset only when the page was full.
func NewPaginatedResult(data any, size int, offset, limit int64) *Result {
	resp := paginatedResponse{Data: data}
	if int64(size) == limit {
		resp.NextOffset = offset + limit
	}
	return &Result{Data: resp, Status: http.StatusOK}
}

// toTypedError maps errors from the service layer, anything untyped is
// reported as an internal error.
func toTypedError(err error) *types.Error {
	var typedErr *types.Error
	if errors.As(err, &typedErr) {
		return typedErr
	}
	return types.NewInternalServiceError(err)
}

func parseCaller(r *http.Request) (string, *types.Error) {
	caller := r.Header.Get(CallerHeader)
	if caller == "" {
		return "", types.NewErrorWithMsg(
			http.StatusUnauthorized, types.Unauthorized,
			fmt.Sprintf("missing %s header", CallerHeader),
		)
	}
	if err := types.ValidateAccountID(caller); err != nil {
		return "", types.NewValidationFailedError(fmt.Errorf("invalid caller: %w", err))
	}
	return caller, nil
}

func parseURLParam(r *http.Request, name string) (string, *types.Error) {
	value := chi.URLParam(r, name)
	if value == "" {
		return "", types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, name+" is required")
	}
	return value, nil
}

func parseBody(r *http.Request, dst any) *types.Error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return types.NewValidationFailedError(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

// parsePagination reads offset and limit query params. A missing or oversized
// limit falls back to the configured max page size.
func (h *Handler) parsePagination(r *http.Request) (int64, int64, *types.Error) {
	maxLimit := int64(h.cfg.MaxPageSize)
	offset, err := parseInt64Query(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := parseInt64Query(r, "limit", maxLimit)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 || limit <= 0 {
		return 0, 0, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "offset must not be negative and limit must be positive")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit, nil
}

func parseInt64Query(r *http.Request, name string, defaultValue int64) (int64, *types.Error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, types.NewValidationFailedError(fmt.Errorf("invalid %s: %w", name, err))
	}
	return value, nil
}
