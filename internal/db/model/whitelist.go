package model

import (
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

type WhitelistKind string

const (
	WhitelistKindAsset WhitelistKind = "asset"
	WhitelistKindFeed  WhitelistKind = "feed"
)

func (k WhitelistKind) String() string {
	return string(k)
}

const (
	WhitelistSchemaV0 = 0
	WhitelistSchemaV1 = 1
)

// WhitelistDocument is a whitelisted backing asset or price feed.
//
// Schema v0 asset entries carry Title and Decimals; v1 entries carry Metadata
// instead. Feed entries only carry the account id.
type WhitelistDocument struct {
	ID            string                       `bson:"_id"`
	Kind          WhitelistKind                `bson:"kind"`
	AccountID     string                       `bson:"account_id"`
	AssetID       string                       `bson:"asset_id,omitempty"`
	Metadata      *types.FungibleTokenMetadata `bson:"metadata,omitempty"`
	Title         string                       `bson:"title,omitempty"`
	Decimals      *uint8                       `bson:"decimals,omitempty"`
	SchemaVersion int                          `bson:"schema_version"`
	CreatedAt     int64                        `bson:"created_at"`
}

func WhitelistID(kind WhitelistKind, accountID string) string {
	return kind.String() + ":" + accountID
}

func NewWhitelistedAsset(tokenID, assetID string, meta types.FungibleTokenMetadata, createdAt int64) *WhitelistDocument {
	return &WhitelistDocument{
		ID:            WhitelistID(WhitelistKindAsset, tokenID),
		Kind:          WhitelistKindAsset,
		AccountID:     tokenID,
		AssetID:       assetID,
		Metadata:      &meta,
		SchemaVersion: WhitelistSchemaV1,
		CreatedAt:     createdAt,
	}
}

func NewWhitelistedFeed(accountID string, createdAt int64) *WhitelistDocument {
	return &WhitelistDocument{
		ID:            WhitelistID(WhitelistKindFeed, accountID),
		Kind:          WhitelistKindFeed,
		AccountID:     accountID,
		SchemaVersion: WhitelistSchemaV1,
		CreatedAt:     createdAt,
	}
}

// MigratedMetadata converts a v0 asset entry into v1 metadata.
func (d *WhitelistDocument) MigratedMetadata() types.FungibleTokenMetadata {
	var decimals uint8
	if d.Decimals != nil {
		decimals = *d.Decimals
	}
	return types.FungibleTokenMetadata{
		Spec:     types.FTMetadataSpec,
		Name:     d.Title,
		Decimals: decimals,
	}
}
