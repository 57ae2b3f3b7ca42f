package model

import (
	sdkmath "cosmossdk.io/math"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

// VaultRecordDocument is the factory record of a deployed vault. It is
// inserted once and never updated.
type VaultRecordDocument struct {
	Identifier             string                      `bson:"_id"`
	AccountID              string                      `bson:"account_id"`
	TokenID                string                      `bson:"token_id"`
	AssetID                string                      `bson:"asset_id"`
	PriceFeedID            string                      `bson:"price_feed_id"`
	TargetPriceRaw         string                      `bson:"target_price_raw"`
	TriggerMultiplier      string                      `bson:"trigger_multiplier"`
	TriggerDecimals        uint8                       `bson:"trigger_decimals"`
	BackupTriggerAccountID *string                     `bson:"backup_trigger_account_id,omitempty"`
	Metadata               types.FungibleTokenMetadata `bson:"metadata"`
	Creator                string                      `bson:"creator"`
	CreatedAt              int64                       `bson:"created_at"`
}

func NewVaultRecordDocument(
	identifier, accountID, creator string,
	targetPriceRaw sdkmath.Uint,
	cfg types.VaultConfig,
	createdAt int64,
) *VaultRecordDocument {
	return &VaultRecordDocument{
		Identifier:             identifier,
		AccountID:              accountID,
		TokenID:                cfg.LockedTokenAccountID,
		AssetID:                cfg.AssetID,
		PriceFeedID:            cfg.PriceOracleAccountID,
		TargetPriceRaw:         targetPriceRaw.String(),
		TriggerMultiplier:      cfg.MinimumUnlockPrice.Multiplier.String(),
		TriggerDecimals:        cfg.MinimumUnlockPrice.Decimals,
		BackupTriggerAccountID: cfg.BackupTriggerAccountID,
		Metadata:               cfg.Meta,
		Creator:                creator,
		CreatedAt:              createdAt,
	}
}

// TriggerPrice decodes the stored trigger price.
func (d *VaultRecordDocument) TriggerPrice() (types.FixedPrice, error) {
	multiplier, err := sdkmath.ParseUint(d.TriggerMultiplier)
	if err != nil {
		return types.FixedPrice{}, err
	}
	return types.NewFixedPrice(multiplier, d.TriggerDecimals)
}

// VaultConfig rebuilds the init payload the vault was deployed with.
func (d *VaultRecordDocument) VaultConfig() (types.VaultConfig, error) {
	trigger, err := d.TriggerPrice()
	if err != nil {
		return types.VaultConfig{}, err
	}
	return types.VaultConfig{
		LockedTokenAccountID:   d.TokenID,
		Meta:                   d.Metadata,
		BackupTriggerAccountID: d.BackupTriggerAccountID,
		PriceOracleAccountID:   d.PriceFeedID,
		AssetID:                d.AssetID,
		MinimumUnlockPrice:     trigger,
	}, nil
}

// StorageBytes is the encoded size of the record, used to price the storage
// the factory keeps for it.
func (d *VaultRecordDocument) StorageBytes() (uint64, error) {
	raw, err := bson.Marshal(d)
	if err != nil {
		return 0, err
	}
	return uint64(len(raw)), nil
}
