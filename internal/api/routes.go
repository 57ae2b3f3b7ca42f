package api

import (
	"github.com/go-chi/chi/v5"
)

func (a *Server) SetupRoutes(r *chi.Mux) {
	h := a.handlers
	r.Get("/healthcheck", registerHandler("/healthcheck", h.HealthCheck))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/factory", registerHandler("/v1/factory", h.GetFactoryInfo))

		r.Post("/storage/deposit", registerHandler("/v1/storage/deposit", h.StorageDeposit))
		r.Get("/storage/{account_id}", registerHandler("/v1/storage/{account_id}", h.GetStorageBudget))

		r.Post("/vaults", registerHandler("/v1/vaults", h.CreateVault))
		r.Get("/vaults", registerHandler("/v1/vaults", h.ListVaults))
		r.Get("/vaults/count", registerHandler("/v1/vaults/count", h.CountVaults))
		r.Get("/vaults/{identifier}", registerHandler("/v1/vaults/{identifier}", h.GetVault))
		r.Get("/vaults/{identifier}/status", registerHandler("/v1/vaults/{identifier}/status", h.GetVaultStatus))
		r.Get("/vaults/{identifier}/info", registerHandler("/v1/vaults/{identifier}/info", h.GetVaultInfo))
		r.Post("/vaults/{identifier}/unlock", registerHandler("/v1/vaults/{identifier}/unlock", h.UnlockVault))
		r.Post("/vaults/{identifier}/withdraw", registerHandler("/v1/vaults/{identifier}/withdraw", h.WithdrawFromVault))
		r.Post("/vaults/{identifier}/wrap", registerHandler("/v1/vaults/{identifier}/wrap", h.WrapIntoVault))

		r.Post("/prices", registerHandler("/v1/prices", h.SubmitPrices))
		r.Post("/prices/{asset_id}", registerHandler("/v1/prices/{asset_id}", h.SubmitAssetPrice))

		r.Get("/whitelist/assets", registerHandler("/v1/whitelist/assets", h.ListWhitelistedAssets))
		r.Post("/whitelist/assets", registerHandler("/v1/whitelist/assets", h.WhitelistAsset))
		r.Delete("/whitelist/assets/{token_id}", registerHandler("/v1/whitelist/assets/{token_id}", h.RemoveWhitelistedAsset))
		r.Get("/whitelist/feeds", registerHandler("/v1/whitelist/feeds", h.ListWhitelistedFeeds))
		r.Post("/whitelist/feeds", registerHandler("/v1/whitelist/feeds", h.WhitelistFeed))
		r.Delete("/whitelist/feeds/{account_id}", registerHandler("/v1/whitelist/feeds/{account_id}", h.RemoveWhitelistedFeed))
	})
}
