//go:build integration

package db_test

import (
	"sync"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
)

func TestStorageBudget(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	registration := sdkmath.NewUint(1_000)

	t.Run("first deposit below registration cost", func(t *testing.T) {
		account := randomAccountID()
		_, err := testDB.DepositStorageBudget(ctx, account, sdkmath.NewUint(999), registration)
		require.Error(t, err)
		assert.True(t, db.IsInsufficientBudgetError(err))

		_, err = testDB.GetStorageBudget(ctx, account)
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("deposit charge reverse", func(t *testing.T) {
		account := randomAccountID()
		doc, err := testDB.DepositStorageBudget(ctx, account, sdkmath.NewUint(5_000), registration)
		require.NoError(t, err)
		assert.Equal(t, "4000", doc.Balance)
		assert.EqualValues(t, 1, doc.Version)

		// later deposits do not pay registration again
		doc, err = testDB.DepositStorageBudget(ctx, account, sdkmath.NewUint(500), registration)
		require.NoError(t, err)
		assert.Equal(t, "4500", doc.Balance)

		charge := model.StorageCharge{
			Attached:         sdkmath.NewUint(300),
			RegistrationCost: registration,
			Amount:           sdkmath.NewUint(4_000),
		}
		charged, err := testDB.ChargeStorageBudget(ctx, account, charge)
		require.NoError(t, err)
		assert.Equal(t, "800", charged.Balance)

		_, err = testDB.ChargeStorageBudget(ctx, account, model.StorageCharge{
			Attached:         sdkmath.NewUint(1),
			RegistrationCost: registration,
			Amount:           sdkmath.NewUint(802),
		})
		require.Error(t, err)
		assert.True(t, db.IsInsufficientBudgetError(err))

		require.NoError(t, testDB.ReverseStorageCharge(ctx, account, charged, charge))
		stored, err := testDB.GetStorageBudget(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, "4500", stored.Balance)
		assert.EqualValues(t, 4, stored.Version)
		amount, err := stored.Amount()
		require.NoError(t, err)
		assert.True(t, amount.Equal(sdkmath.NewUint(4_500)))
	})
	t.Run("reverse removes a budget registered by the charge", func(t *testing.T) {
		account := randomAccountID()
		charge := model.StorageCharge{
			Attached:         sdkmath.NewUint(3_000),
			RegistrationCost: registration,
			Amount:           sdkmath.NewUint(1_500),
		}
		charged, err := testDB.ChargeStorageBudget(ctx, account, charge)
		require.NoError(t, err)
		assert.Equal(t, "500", charged.Balance)

		require.NoError(t, testDB.ReverseStorageCharge(ctx, account, charged, charge))
		_, err = testDB.GetStorageBudget(ctx, account)
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("reverse keeps later deposits", func(t *testing.T) {
		account := randomAccountID()
		charge := model.StorageCharge{
			Attached:         sdkmath.NewUint(3_000),
			RegistrationCost: registration,
			Amount:           sdkmath.NewUint(1_500),
		}
		charged, err := testDB.ChargeStorageBudget(ctx, account, charge)
		require.NoError(t, err)
		_, err = testDB.DepositStorageBudget(ctx, account, sdkmath.NewUint(700), registration)
		require.NoError(t, err)

		require.NoError(t, testDB.ReverseStorageCharge(ctx, account, charged, charge))
		stored, err := testDB.GetStorageBudget(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, "700", stored.Balance)
	})
	t.Run("charge unregistered without deposit", func(t *testing.T) {
		account := randomAccountID()
		_, err := testDB.ChargeStorageBudget(ctx, account, model.StorageCharge{
			Attached:         sdkmath.ZeroUint(),
			RegistrationCost: registration,
			Amount:           sdkmath.NewUint(1),
		})
		require.Error(t, err)
		assert.True(t, db.IsInsufficientBudgetError(err))

		_, err = testDB.GetStorageBudget(ctx, account)
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("reverse unregistered", func(t *testing.T) {
		charge := model.StorageCharge{
			Attached:         sdkmath.ZeroUint(),
			RegistrationCost: registration,
			Amount:           sdkmath.NewUint(1),
		}
		err := testDB.ReverseStorageCharge(ctx, randomAccountID(), &model.StorageBudgetDocument{Version: 3}, charge)
		require.Error(t, err)
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("concurrent charges", func(t *testing.T) {
		account := randomAccountID()
		_, err := testDB.DepositStorageBudget(ctx, account, sdkmath.NewUint(1_500), registration)
		require.NoError(t, err)

		const workers = 5
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := testDB.ChargeStorageBudget(ctx, account, model.StorageCharge{
					Attached:         sdkmath.ZeroUint(),
					RegistrationCost: registration,
					Amount:           sdkmath.NewUint(100),
				})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		stored, err := testDB.GetStorageBudget(ctx, account)
		require.NoError(t, err)
		amount, err := stored.Amount()
		require.NoError(t, err)
		assert.True(t, amount.Equal(sdkmath.NewUint(uint64(500-100*accepted))), amount.String())
		assert.EqualValues(t, 1+accepted, stored.Version)
	})
}
