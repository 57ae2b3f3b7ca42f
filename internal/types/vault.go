package types

import "fmt"

// VaultConfig is fixed at vault initialisation and is also the payload of the
// init call issued by the factory.
type VaultConfig struct {
	LockedTokenAccountID   string                `json:"locked_token_account_id"`
	Meta                   FungibleTokenMetadata `json:"meta"`
	BackupTriggerAccountID *string               `json:"backup_trigger_account_id,omitempty"`
	PriceOracleAccountID   string                `json:"price_oracle_account_id"`
	AssetID                string                `json:"asset_id"`
	MinimumUnlockPrice     FixedPrice            `json:"minimum_unlock_price"`
}

func (c *VaultConfig) Validate() error {
	accounts := map[string]string{
		"locked_token_account_id": c.LockedTokenAccountID,
		"price_oracle_account_id": c.PriceOracleAccountID,
	}
	if c.BackupTriggerAccountID != nil {
		accounts["backup_trigger_account_id"] = *c.BackupTriggerAccountID
	}
	for field, id := range accounts {
		if err := ValidateAccountID(id); err != nil {
			return fmt.Errorf("invalid %s: %w", field, err)
		}
	}
	if c.AssetID == "" {
		return fmt.Errorf("asset_id is required")
	}
	if c.MinimumUnlockPrice.IsZero() {
		return fmt.Errorf("minimum_unlock_price must be positive")
	}
	return c.Meta.Validate()
}

type AssetOptionalPrice struct {
	AssetID string      `json:"asset_id"`
	Price   *FixedPrice `json:"price"`
}

// PriceData is what a price feed pushes to the vaults it serves. Timestamp is
// in nanoseconds.
type PriceData struct {
	Timestamp          uint64               `json:"timestamp,string"`
	RecencyDurationSec uint32               `json:"recency_duration_sec"`
	Prices             []AssetOptionalPrice `json:"prices"`
}

// PriceFor returns the first reported price for assetID. It returns nil when
// the asset is missing or reported without a price.
func (d *PriceData) PriceFor(assetID string) *FixedPrice {
	for _, p := range d.Prices {
		if p.AssetID == assetID {
			return p.Price
		}
	}
	return nil
}

// HasAsset reports whether assetID is listed, with or without a price.
func (d *PriceData) HasAsset(assetID string) bool {
	for _, p := range d.Prices {
		if p.AssetID == assetID {
			return true
		}
	}
	return false
}
