package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"

	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vault"
)

// PriceUpdateOutcome is the effect of pushed price data on one vault.
type PriceUpdateOutcome struct {
	Vault  string             `json:"vault"`
	Status *types.VaultStatus `json:"status,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// SubmitPrice pushes a single asset price observed at asOf.
func (s *Service) SubmitPrice(
	ctx context.Context, feed, assetID string, price *types.FixedPrice, asOf time.Time,
) ([]PriceUpdateOutcome, error) {
	if assetID == "" {
		return nil, types.NewValidationFailedError(fmt.Errorf("asset_id is required"))
	}
	data := types.PriceData{
		Timestamp: uint64(asOf.UnixNano()),
		Prices:    []types.AssetOptionalPrice{{AssetID: assetID, Price: price}},
	}
	return s.SubmitPrices(ctx, feed, data)
}

// SubmitPrices delivers data to every hosted vault served by feed whose asset
// is listed in data. Vaults are updated concurrently, each vault applies its
// updates in order. The feed whitelist only gates vault creation, a vault
// keeps accepting prices from its configured feed after the feed is removed.
func (s *Service) SubmitPrices(ctx context.Context, feed string, data types.PriceData) ([]PriceUpdateOutcome, error) {
	var targets []*vault.Vault
	for _, v := range s.host.Vaults() {
		cfg := v.Config()
		if cfg.PriceOracleAccountID == feed && data.HasAsset(cfg.AssetID) {
			targets = append(targets, v)
		}
	}

	outcomes := iter.Map(targets, func(v **vault.Vault) PriceUpdateOutcome {
		outcome := PriceUpdateOutcome{Vault: (*v).AccountID()}
		status, err := (*v).OnPriceUpdate(ctx, feed, data)
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Status = &status
		return outcome
	})

	log.Ctx(ctx).Debug().
		Str("feed", feed).
		Int("assets", len(data.Prices)).
		Int("vaults", len(outcomes)).
		Msg("price data delivered")
	return outcomes, nil
}
