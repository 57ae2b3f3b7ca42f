package db

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	/**
	 * SaveNewVault inserts a vault record.
	 * @param ctx The context
	 * @param record The vault record
	 * @return An error if the operation failed, DuplicateKeyError if the
	 * identifier is already recorded
	 */
	SaveNewVault(ctx context.Context, record *model.VaultRecordDocument) error
	GetVault(ctx context.Context, identifier string) (*model.VaultRecordDocument, error)
	ListVaults(ctx context.Context, offset, limit int64) ([]*model.VaultRecordDocument, error)
	CountVaults(ctx context.Context) (int64, error)

	GetStorageBudget(ctx context.Context, accountID string) (*model.StorageBudgetDocument, error)
	/**
	 * DepositStorageBudget credits a storage budget, registering the account
	 * on its first deposit.
	 * @param ctx The context
	 * @param accountID The depositing account
	 * @param amount The attached amount
	 * @param registrationCost The cost paid out of the first deposit
	 * @return The updated budget or InsufficientBudgetError
	 */
	DepositStorageBudget(ctx context.Context, accountID string, amount, registrationCost sdkmath.Uint) (*model.StorageBudgetDocument, error)
	ChargeStorageBudget(ctx context.Context, accountID string, charge model.StorageCharge) (*model.StorageBudgetDocument, error)
	ReverseStorageCharge(ctx context.Context, accountID string, charged *model.StorageBudgetDocument, charge model.StorageCharge) error

	SaveWhitelistedAsset(ctx context.Context, tokenID, assetID string, meta types.FungibleTokenMetadata) error
	SaveWhitelistedFeed(ctx context.Context, accountID string) error
	GetWhitelistedAsset(ctx context.Context, tokenID string) (*model.WhitelistDocument, error)
	GetWhitelistedFeed(ctx context.Context, accountID string) (*model.WhitelistDocument, error)
	DeleteWhitelisted(ctx context.Context, kind model.WhitelistKind, accountID string) error
	ListWhitelisted(ctx context.Context, kind model.WhitelistKind, offset, limit int64) ([]*model.WhitelistDocument, error)
	MigrateWhitelistV0ToV1(ctx context.Context) (int, error)
}
