package handlers

import (
	"net/http"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/price-vault-factory/internal/services"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

// CreateVault responds 202: the deployment completes asynchronously.
func (h *Handler) CreateVault(r *http.Request) (*Result, *types.Error) {
	caller, err := parseCaller(r)
	if err != nil {
		return nil, err
	}
	var req services.CreateVaultRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}

	result, svcErr := h.service.CreateVault(r.Context(), caller, req)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResultWithStatus(result, http.StatusAccepted), nil
}

func (h *Handler) GetVault(r *http.Request) (*Result, *types.Error) {
	identifier, err := parseURLParam(r, "identifier")
	if err != nil {
		return nil, err
	}
	record, svcErr := h.service.GetVault(r.Context(), identifier)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(record), nil
}

func (h *Handler) ListVaults(r *http.Request) (*Result, *types.Error) {
	offset, limit, err := h.parsePagination(r)
	if err != nil {
		return nil, err
	}
	records, svcErr := h.service.ListVaults(r.Context(), offset, limit)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewPaginatedResult(records, len(records), offset, limit), nil
}

func (h *Handler) CountVaults(r *http.Request) (*Result, *types.Error) {
	count, err := h.service.CountVaults(r.Context())
	if err != nil {
		return nil, toTypedError(err)
	}
	return NewResult(count), nil
}

func (h *Handler) GetVaultStatus(r *http.Request) (*Result, *types.Error) {
	identifier, err := parseURLParam(r, "identifier")
	if err != nil {
		return nil, err
	}
	status, svcErr := h.service.GetVaultStatus(r.Context(), identifier)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(status), nil
}

func (h *Handler) GetVaultInfo(r *http.Request) (*Result, *types.Error) {
	identifier, err := parseURLParam(r, "identifier")
	if err != nil {
		return nil, err
	}
	info, svcErr := h.service.GetVaultInfo(r.Context(), identifier)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(info), nil
}

func (h *Handler) UnlockVault(r *http.Request) (*Result, *types.Error) {
	caller, identifier, err := parseVaultAction(r)
	if err != nil {
		return nil, err
	}
	status, svcErr := h.service.Unlock(r.Context(), caller, identifier)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(status), nil
}

// WithdrawFromVault responds 202 with the pending token transfer.
func (h *Handler) WithdrawFromVault(r *http.Request) (*Result, *types.Error) {
	caller, identifier, err := parseVaultAction(r)
	if err != nil {
		return nil, err
	}
	pending, svcErr := h.service.Withdraw(r.Context(), caller, identifier)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResultWithStatus(pending, http.StatusAccepted), nil
}

type wrapRequest struct {
	Amount sdkmath.Uint `json:"amount"`
}

func (h *Handler) WrapIntoVault(r *http.Request) (*Result, *types.Error) {
	caller, identifier, err := parseVaultAction(r)
	if err != nil {
		return nil, err
	}
	var req wrapRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}
	result, svcErr := h.service.Wrap(r.Context(), caller, identifier, req.Amount)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(result), nil
}

func parseVaultAction(r *http.Request) (string, string, *types.Error) {
	caller, err := parseCaller(r)
	if err != nil {
		return "", "", err
	}
	identifier, err := parseURLParam(r, "identifier")
	if err != nil {
		return "", "", err
	}
	return caller, identifier, nil
}
