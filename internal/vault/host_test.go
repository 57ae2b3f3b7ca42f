package vault

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

const factoryAccount = "factory.near"

type hostEnv struct {
	store      *vaultstore.Store
	host       *Host
	applier    calls.Applier
	loopback   *calls.Loopback
	dispatcher *calls.Dispatcher
	now        time.Time
}

func openStore(t *testing.T, path string) *vaultstore.Store {
	t.Helper()
	store, err := vaultstore.Open(&config.VaultStoreConfig{Path: path, OpenTimeout: time.Second})
	require.NoError(t, err)
	return store
}

func newHostEnv(t *testing.T, store *vaultstore.Store) *hostEnv {
	t.Helper()
	env := &hostEnv{store: store, now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	env.host = NewHost(store, HostConfig{
		MinStorageDeposit: sdkmath.NewUint(125),
		Now:               func() time.Time { return env.now },
	})
	router := calls.NewRouter().
		HandleSuffix(factoryAccount, env.host).
		HandleDefault(env.host.Assets())
	env.applier = calls.NewOnce(router, store)
	env.loopback = calls.NewLoopback(env.applier, 64)
	env.dispatcher = calls.NewDispatcher(env.loopback)
	require.NoError(t, env.host.Attach(context.Background(), env.dispatcher))
	return env
}

// submit issues call and returns its result once the loopback queue drained.
func (env *hostEnv) submit(t *testing.T, call calls.Call) calls.Result {
	t.Helper()
	ctx := context.Background()
	var got *calls.Result
	_, err := env.dispatcher.Begin(ctx, call, func(ctx context.Context, result calls.Result) {
		got = &result
	})
	require.NoError(t, err)
	env.loopback.Drain(ctx)
	require.NotNil(t, got)
	return *got
}

func functionCall(t *testing.T, predecessor, target, method string, args any, deposit uint64) calls.Call {
	t.Helper()
	call, err := calls.NewFunctionCall(predecessor, target, method, args, sdkmath.NewUint(deposit), 0)
	require.NoError(t, err)
	return call
}

func deployCall(t *testing.T, target string, cfg types.VaultConfig) calls.Call {
	t.Helper()
	args, err := json.Marshal(InitArgs{Config: cfg})
	require.NoError(t, err)
	funding := sdkmath.NewUint(5_000_000)
	zero := sdkmath.ZeroUint()
	return calls.Call{
		ID:          uuid.New(),
		Predecessor: factoryAccount,
		Target:      target,
		Actions: []calls.Action{
			{Kind: calls.ActionCreateAccount},
			{Kind: calls.ActionTransfer, Amount: &funding},
			{Kind: calls.ActionDeployCode, CodeSize: 180_000},
			{Kind: calls.ActionFunctionCall, Method: MethodNew, Args: args, Amount: &zero},
		},
	}
}

func hostVaultConfig() types.VaultConfig {
	backup := backupAccount
	return types.VaultConfig{
		LockedTokenAccountID:   tokenAccount,
		Meta:                   types.FungibleTokenMetadata{Spec: types.FTMetadataSpec, Name: "wbtc at $60000", Symbol: "wbtc@60000", Decimals: 8},
		BackupTriggerAccountID: &backup,
		PriceOracleAccountID:   oracleAccount,
		AssetID:                tokenAccount,
		MinimumUnlockPrice:     types.MustFixedPrice(600000000, 12),
	}
}

func TestHostLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaults.db")
	store := openStore(t, path)
	env := newHostEnv(t, store)
	const target = "wbtc-60000-0000." + factoryAccount

	// deploy
	result := env.submit(t, deployCall(t, target, hostVaultConfig()))
	require.True(t, result.Success, result.Error)
	v, err := env.host.Vault(target)
	require.NoError(t, err)
	assert.Equal(t, types.StateLocked, v.Status().State)
	native, err := store.NativeBalance(target)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewUint(5_000_000), native)

	// a second deployment of the same account fails at account creation
	result = env.submit(t, deployCall(t, target, hostVaultConfig()))
	assert.False(t, result.Success)

	// wrap through the token
	require.NoError(t, store.Asset(tokenAccount).Mint("alice.near", sdkmath.NewUint(1000)))
	result = env.submit(t, functionCall(t, "alice.near", tokenAccount, MethodFtTransferCall,
		FtTransferCallArgs{ReceiverID: target, Amount: sdkmath.NewUint(400)}, 1))
	require.True(t, result.Success, result.Error)
	assert.JSONEq(t, `"400"`, string(result.Value))

	info, err := v.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewUint(400), info.TotalSupply)

	// price rises, cooldown, unlock
	above := priceData(tokenAccount, pricePtr(61000, 8))
	result = env.submit(t, functionCall(t, oracleAccount, target, MethodOracleOnCall,
		OracleOnCallArgs{SenderID: oracleAccount, Data: above}, 0))
	require.True(t, result.Success, result.Error)
	assert.Equal(t, types.StateUnlocking, v.Status().State)

	// deposits are refunded by the token once the vault is no longer locked
	result = env.submit(t, functionCall(t, "alice.near", tokenAccount, MethodFtTransferCall,
		FtTransferCallArgs{ReceiverID: target, Amount: sdkmath.NewUint(100)}, 1))
	require.True(t, result.Success, result.Error)
	assert.JSONEq(t, `"0"`, string(result.Value))
	balance, err := store.Asset(tokenAccount).Balance("alice.near")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewUint(600), balance)

	env.now = env.now.Add(UnlockDuration)
	result = env.submit(t, functionCall(t, oracleAccount, target, MethodOracleOnCall,
		OracleOnCallArgs{SenderID: oracleAccount, Data: above}, 0))
	require.True(t, result.Success, result.Error)
	assert.Equal(t, types.StateUnlocked, v.Status().State)

	// unwrap transfers the asset back and refunds storage
	result = env.submit(t, functionCall(t, "alice.near", target, MethodUnwrap, struct{}{}, 1))
	require.True(t, result.Success, result.Error)
	env.loopback.Drain(context.Background())

	balance, err = store.Asset(tokenAccount).Balance("alice.near")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewUint(1000), balance)
	refund, err := store.NativeBalance("alice.near")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewUint(125), refund)
	assert.Equal(t, 0, env.dispatcher.Pending())

	// the state survives a restart
	require.NoError(t, store.Close())
	reopened := openStore(t, path)
	defer reopened.Close()
	restarted := newHostEnv(t, reopened)
	v, err = restarted.host.Vault(target)
	require.NoError(t, err)
	assert.Equal(t, types.StateUnlocked, v.Status().State)
	assert.Len(t, restarted.host.Vaults(), 1)
}

func TestHostResumesPendingTransfers(t *testing.T) {
	const target = "wbtc-60000-0000." + factoryAccount
	ctx := context.Background()

	withdrawBeforeRestart := func(t *testing.T, path string) (*hostEnv, *Vault, *PendingWithdrawal) {
		t.Helper()
		env := newHostEnv(t, openStore(t, path))
		require.True(t, env.submit(t, deployCall(t, target, hostVaultConfig())).Success)
		v, err := env.host.Vault(target)
		require.NoError(t, err)
		require.NoError(t, v.Deposit(ctx, tokenAccount, "alice.near", sdkmath.NewUint(50)))
		require.NoError(t, v.Unlock(ctx, backupAccount))

		pending, err := v.BeginWithdraw(ctx, "alice.near")
		require.NoError(t, err)
		return env, v, pending
	}

	t.Run("unsent transfer is submitted after restart", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vaults.db")
		env, _, _ := withdrawBeforeRestart(t, path)
		// the vault holds no asset on the token ledger, so the transfer fails
		require.NoError(t, env.store.Close())

		reopened := openStore(t, path)
		defer reopened.Close()
		restarted := newHostEnv(t, reopened)
		assert.Equal(t, 1, restarted.dispatcher.Pending())

		restarted.loopback.Drain(ctx)
		assert.Equal(t, 0, restarted.dispatcher.Pending())

		balance, err := reopened.Ledger(target, sdkmath.ZeroUint()).Balance("alice.near")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewUint(50), balance)
		pendingTransfers, err := reopened.Journal(target).Pending()
		require.NoError(t, err)
		assert.Empty(t, pendingTransfers)
	})

	t.Run("transfer applied before restart is not applied again", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vaults.db")
		env, v, pending := withdrawBeforeRestart(t, path)
		require.NoError(t, env.store.Asset(tokenAccount).Mint(target, sdkmath.NewUint(50)))

		// the transfer runs but its result never reaches the vault
		call, err := v.transferCall(pending.CallID, pending.Holder, pending.Amount)
		require.NoError(t, err)
		result, err := env.applier.Apply(ctx, call)
		require.NoError(t, err)
		require.True(t, result.Success, result.Error)
		require.NoError(t, env.store.Close())

		reopened := openStore(t, path)
		defer reopened.Close()
		restarted := newHostEnv(t, reopened)
		restarted.loopback.Drain(ctx)
		assert.Equal(t, 0, restarted.dispatcher.Pending())

		asset, err := reopened.Asset(tokenAccount).Balance("alice.near")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewUint(50), asset)
		registered, err := reopened.Ledger(target, sdkmath.ZeroUint()).IsRegistered("alice.near")
		require.NoError(t, err)
		assert.False(t, registered)
		pendingTransfers, err := reopened.Journal(target).Pending()
		require.NoError(t, err)
		assert.Empty(t, pendingTransfers)
	})
}

func TestHostRejects(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "vaults.db"))
	defer store.Close()
	env := newHostEnv(t, store)
	const target = "wbtc-60000-0000." + factoryAccount

	_, err := env.host.Vault(target)
	assert.True(t, types.IsErrorCode(err, types.NotFound))

	invalid := hostVaultConfig()
	invalid.PriceOracleAccountID = "NOT VALID"
	result := env.submit(t, deployCall(t, target, invalid))
	assert.False(t, result.Success)
	_, err = env.host.Vault(target)
	assert.Error(t, err)

	result = env.submit(t, functionCall(t, "alice.near", "other."+factoryAccount, MethodUnlock, struct{}{}, 0))
	assert.False(t, result.Success)
	result = env.submit(t, functionCall(t, "alice.near", tokenAccount, "mint", struct{}{}, 0))
	assert.False(t, result.Success)
}
