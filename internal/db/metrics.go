package db

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) SaveNewVault(ctx context.Context, record *model.VaultRecordDocument) error {
	return d.run("SaveNewVault", func() error {
		return d.db.SaveNewVault(ctx, record)
	})
}

func (d *DbWithMetrics) GetVault(ctx context.Context, identifier string) (result *model.VaultRecordDocument, err error) {
	//nolint:errcheck
	d.run("GetVault", func() error {
		result, err = d.db.GetVault(ctx, identifier)
		return err
	})
	return
}

func (d *DbWithMetrics) ListVaults(ctx context.Context, offset, limit int64) (result []*model.VaultRecordDocument, err error) {
	//nolint:errcheck
	d.run("ListVaults", func() error {
		result, err = d.db.ListVaults(ctx, offset, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) CountVaults(ctx context.Context) (result int64, err error) {
	//nolint:errcheck
	d.run("CountVaults", func() error {
		result, err = d.db.CountVaults(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) GetStorageBudget(ctx context.Context, accountID string) (result *model.StorageBudgetDocument, err error) {
	//nolint:errcheck
	d.run("GetStorageBudget", func() error {
		result, err = d.db.GetStorageBudget(ctx, accountID)
		return err
	})
	return
}

func (d *DbWithMetrics) DepositStorageBudget(ctx context.Context, accountID string, amount, registrationCost sdkmath.Uint) (result *model.StorageBudgetDocument, err error) {
	//nolint:errcheck
	d.run("DepositStorageBudget", func() error {
		result, err = d.db.DepositStorageBudget(ctx, accountID, amount, registrationCost)
		return err
	})
	return
}

func (d *DbWithMetrics) ChargeStorageBudget(ctx context.Context, accountID string, charge model.StorageCharge) (result *model.StorageBudgetDocument, err error) {
	//nolint:errcheck
	d.run("ChargeStorageBudget", func() error {
		result, err = d.db.ChargeStorageBudget(ctx, accountID, charge)
		return err
	})
	return
}

func (d *DbWithMetrics) ReverseStorageCharge(ctx context.Context, accountID string, charged *model.StorageBudgetDocument, charge model.StorageCharge) error {
	return d.run("ReverseStorageCharge", func() error {
		return d.db.ReverseStorageCharge(ctx, accountID, charged, charge)
	})
}

func (d *DbWithMetrics) SaveWhitelistedAsset(ctx context.Context, tokenID, assetID string, meta types.FungibleTokenMetadata) error {
	return d.run("SaveWhitelistedAsset", func() error {
		return d.db.SaveWhitelistedAsset(ctx, tokenID, assetID, meta)
	})
}

func (d *DbWithMetrics) SaveWhitelistedFeed(ctx context.Context, accountID string) error {
	return d.run("SaveWhitelistedFeed", func() error {
		return d.db.SaveWhitelistedFeed(ctx, accountID)
	})
}

func (d *DbWithMetrics) GetWhitelistedAsset(ctx context.Context, tokenID string) (result *model.WhitelistDocument, err error) {
	//nolint:errcheck
	d.run("GetWhitelistedAsset", func() error {
		result, err = d.db.GetWhitelistedAsset(ctx, tokenID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetWhitelistedFeed(ctx context.Context, accountID string) (result *model.WhitelistDocument, err error) {
	//nolint:errcheck
	d.run("GetWhitelistedFeed", func() error {
		result, err = d.db.GetWhitelistedFeed(ctx, accountID)
		return err
	})
	return
}

func (d *DbWithMetrics) DeleteWhitelisted(ctx context.Context, kind model.WhitelistKind, accountID string) error {
	return d.run("DeleteWhitelisted", func() error {
		return d.db.DeleteWhitelisted(ctx, kind, accountID)
	})
}

func (d *DbWithMetrics) ListWhitelisted(ctx context.Context, kind model.WhitelistKind, offset, limit int64) (result []*model.WhitelistDocument, err error) {
	//nolint:errcheck
	d.run("ListWhitelisted", func() error {
		result, err = d.db.ListWhitelisted(ctx, kind, offset, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) MigrateWhitelistV0ToV1(ctx context.Context) (result int, err error) {
	//nolint:errcheck
	d.run("MigrateWhitelistV0ToV1", func() error {
		result, err = d.db.MigrateWhitelistV0ToV1(ctx)
		return err
	})
	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
