//go:build integration

package db_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

func TestVaultRecords(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	t.Run("save nil", func(t *testing.T) {
		err := testDB.SaveNewVault(ctx, nil)
		require.Error(t, err)
	})
	t.Run("get missing", func(t *testing.T) {
		record, err := testDB.GetVault(ctx, gofakeit.UUID())
		require.Error(t, err)
		assert.True(t, db.IsNotFoundError(err))
		assert.Nil(t, record)
	})
	t.Run("save and get", func(t *testing.T) {
		record := createVaultRecord(t, time.Now().UnixMilli())
		err := testDB.SaveNewVault(ctx, record)
		require.NoError(t, err)

		stored, err := testDB.GetVault(ctx, record.Identifier)
		require.NoError(t, err)
		assert.Equal(t, record, stored)

		cfg, err := stored.VaultConfig()
		require.NoError(t, err)
		assert.True(t, cfg.MinimumUnlockPrice.Equal(types.MustFixedPrice(6000000, 12)))
		assert.Equal(t, record.TokenID, cfg.LockedTokenAccountID)
	})
	t.Run("duplicate", func(t *testing.T) {
		record := createVaultRecord(t, time.Now().UnixMilli())
		require.NoError(t, testDB.SaveNewVault(ctx, record))

		again := *record
		again.Creator = "someone-else.near"
		err := testDB.SaveNewVault(ctx, &again)
		require.Error(t, err)
		assert.True(t, db.IsDuplicateKeyError(err))

		stored, err := testDB.GetVault(ctx, record.Identifier)
		require.NoError(t, err)
		assert.Equal(t, record.Creator, stored.Creator)
	})
}

func TestListVaults(t *testing.T) {
	ctx := t.Context()
	resetDatabase(t)
	t.Cleanup(func() {
		resetDatabase(t)
	})

	var expected []*model.VaultRecordDocument
	for i := range 12 {
		record := createVaultRecord(t, int64(1_700_000_000_000+i))
		require.NoError(t, testDB.SaveNewVault(ctx, record))
		expected = append(expected, record)
	}

	count, err := testDB.CountVaults(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12, count)

	// limit above the configured maximum is capped
	page, err := testDB.ListVaults(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, expected[:10], page)

	page, err = testDB.ListVaults(ctx, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, expected[10:], page)

	page, err = testDB.ListVaults(ctx, 20, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func createVaultRecord(t *testing.T, createdAt int64) *model.VaultRecordDocument {
	t.Helper()

	asset := randomAccountID()
	backup := randomAccountID()
	raw := sdkmath.NewUint(60_000_000)
	price := types.FormatTargetPrice(raw)
	cfg := types.VaultConfig{
		LockedTokenAccountID: asset,
		Meta: types.FungibleTokenMetadata{
			Spec:     types.FTMetadataSpec,
			Name:     types.VaultDisplayName("wbtc", price),
			Symbol:   types.VaultSymbol("wbtc", price),
			Decimals: 8,
		},
		BackupTriggerAccountID: &backup,
		PriceOracleAccountID:   randomAccountID(),
		AssetID:                asset,
		MinimumUnlockPrice:     types.MustFixedPrice(6000000, 12),
	}
	identifier := types.VaultIdentifier(gofakeit.LetterN(8), raw)
	return model.NewVaultRecordDocument(
		identifier,
		types.SubAccountID(identifier, "factory.near"),
		randomAccountID(),
		raw,
		cfg,
		createdAt,
	)
}

func randomAccountID() string {
	return gofakeit.Regex("[a-z]{6,12}") + ".near"
}
