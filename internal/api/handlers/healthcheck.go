package handlers

import (
	"net/http"
	"time"

	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

func (h *Handler) HealthCheck(r *http.Request) (*Result, *types.Error) {
	if err := h.service.Healthcheck(r.Context()); err != nil {
		return nil, toTypedError(err)
	}
	return NewResult("Server is up and running"), nil
}

type FactoryInfo struct {
	AccountID        string `json:"account_id"`
	RegistrationCost string `json:"registration_cost"`
	PricePerByte     string `json:"storage_price_per_byte"`
	ServerTime       int64  `json:"server_time"`
}

func (h *Handler) GetFactoryInfo(r *http.Request) (*Result, *types.Error) {
	return NewResult(FactoryInfo{
		AccountID:        h.service.FactoryAccountID(),
		RegistrationCost: h.service.RegistrationCost().String(),
		PricePerByte:     h.service.StoragePricePerByte().String(),
		ServerTime:       time.Now().Unix(),
	}), nil
}
