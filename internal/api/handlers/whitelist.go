package handlers

import (
	"net/http"

	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/services"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

func (h *Handler) WhitelistAsset(r *http.Request) (*Result, *types.Error) {
	caller, err := parseCaller(r)
	if err != nil {
		return nil, err
	}
	var req services.WhitelistAssetRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}
	if svcErr := h.service.WhitelistAsset(r.Context(), caller, req); svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResultWithStatus(req.TokenID, http.StatusCreated), nil
}

type whitelistFeedRequest struct {
	AccountID string `json:"account_id"`
}

func (h *Handler) WhitelistFeed(r *http.Request) (*Result, *types.Error) {
	caller, err := parseCaller(r)
	if err != nil {
		return nil, err
	}
	var req whitelistFeedRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}
	if svcErr := h.service.WhitelistFeed(r.Context(), caller, req.AccountID); svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResultWithStatus(req.AccountID, http.StatusCreated), nil
}

func (h *Handler) RemoveWhitelistedAsset(r *http.Request) (*Result, *types.Error) {
	return h.removeWhitelisted(r, model.WhitelistKindAsset, "token_id")
}

func (h *Handler) RemoveWhitelistedFeed(r *http.Request) (*Result, *types.Error) {
	return h.removeWhitelisted(r, model.WhitelistKindFeed, "account_id")
}

func (h *Handler) removeWhitelisted(r *http.Request, kind model.WhitelistKind, param string) (*Result, *types.Error) {
	caller, err := parseCaller(r)
	if err != nil {
		return nil, err
	}
	accountID, err := parseURLParam(r, param)
	if err != nil {
		return nil, err
	}
	if svcErr := h.service.RemoveWhitelisted(r.Context(), caller, kind, accountID); svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewResult(accountID), nil
}

func (h *Handler) ListWhitelistedAssets(r *http.Request) (*Result, *types.Error) {
	offset, limit, err := h.parsePagination(r)
	if err != nil {
		return nil, err
	}
	assets, svcErr := h.service.ListWhitelistedAssets(r.Context(), offset, limit)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewPaginatedResult(assets, len(assets), offset, limit), nil
}

func (h *Handler) ListWhitelistedFeeds(r *http.Request) (*Result, *types.Error) {
	offset, limit, err := h.parsePagination(r)
	if err != nil {
		return nil, err
	}
	feeds, svcErr := h.service.ListWhitelistedFeeds(r.Context(), offset, limit)
	if svcErr != nil {
		return nil, toTypedError(svcErr)
	}
	return NewPaginatedResult(feeds, len(feeds), offset, limit), nil
}
