package handlers

import (
	"net/http"
	"time"

	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

// SubmitPrices takes a full price data batch pushed by the calling feed.
func (h *Handler) SubmitPrices(r *http.Request) (*Result, *types.Error) {
	feed, err := parseCaller(r)
	if err != nil {
		return nil, err
	}
	var data types.PriceData
	if err := parseBody(r, &data); err != nil {
		return nil, err
	}
	outcomes, svcErr := h.service.SubmitPrices(r.Context(), feed, data)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(outcomes), nil
}

type submitPriceRequest struct {
	// Price may be null, reported as no price for the asset
	Price *types.FixedPrice `json:"price"`
}

func (h *Handler) SubmitAssetPrice(r *http.Request) (*Result, *types.Error) {
	feed, err := parseCaller(r)
	if err != nil {
		return nil, err
	}
	assetID, err := parseURLParam(r, "asset_id")
	if err != nil {
		return nil, err
	}
	var req submitPriceRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}
	outcomes, svcErr := h.service.SubmitPrice(r.Context(), feed, assetID, req.Price, time.Now())
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(outcomes), nil
}
