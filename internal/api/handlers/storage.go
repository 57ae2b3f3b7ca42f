package handlers

import (
	"net/http"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

type storageDepositRequest struct {
	Amount sdkmath.Uint `json:"amount"`
}

func (h *Handler) StorageDeposit(r *http.Request) (*Result, *types.Error) {
	caller, err := parseCaller(r)
	if err != nil {
		return nil, err
	}
	var req storageDepositRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}

	budget, svcErr := h.service.StorageDeposit(r.Context(), caller, req.Amount)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(budget), nil
}

func (h *Handler) GetStorageBudget(r *http.Request) (*Result, *types.Error) {
	accountID, err := parseURLParam(r, "account_id")
	if err != nil {
		return nil, err
	}
	budget, svcErr := h.service.GetStorageBudget(r.Context(), accountID)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(budget), nil
}
