package vault

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

const (
	vaultAccount  = "btc-60000-0000.factory.near"
	tokenAccount  = "wbtc.near"
	oracleAccount = "oracle.near"
	backupAccount = "guardian.near"
)

type memLedger struct {
	balances map[string]sdkmath.Uint
	minimum  sdkmath.Uint
	failNext error
}

func newMemLedger() *memLedger {
	return &memLedger{balances: make(map[string]sdkmath.Uint), minimum: sdkmath.NewUint(125)}
}

func (l *memLedger) Deposit(holder string, amount sdkmath.Uint) error {
	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return err
	}
	balance, ok := l.balances[holder]
	if !ok {
		balance = sdkmath.ZeroUint()
	}
	l.balances[holder] = balance.Add(amount)
	return nil
}

func (l *memLedger) withdraw(holder string, amount sdkmath.Uint) error {
	balance, ok := l.balances[holder]
	if !ok || balance.LT(amount) {
		return vaultstore.ErrInsufficientBalance
	}
	l.balances[holder] = balance.Sub(amount)
	return nil
}

func (l *memLedger) Balance(holder string) (sdkmath.Uint, error) {
	if balance, ok := l.balances[holder]; ok {
		return balance, nil
	}
	return sdkmath.ZeroUint(), nil
}

func (l *memLedger) StorageRegister(holder string) error {
	if _, ok := l.balances[holder]; !ok {
		l.balances[holder] = sdkmath.ZeroUint()
	}
	return nil
}

func (l *memLedger) StorageUnregister(holder string) error {
	balance, ok := l.balances[holder]
	if !ok {
		return vaultstore.ErrNotRegistered
	}
	if !balance.IsZero() {
		return vaultstore.ErrNonZeroBalance
	}
	delete(l.balances, holder)
	return nil
}

func (l *memLedger) MinStorageDeposit() sdkmath.Uint {
	return l.minimum
}

func (l *memLedger) TotalSupply() (sdkmath.Uint, error) {
	total := sdkmath.ZeroUint()
	for _, balance := range l.balances {
		total = total.Add(balance)
	}
	return total, nil
}

type memJournal struct {
	ledger  *memLedger
	pending map[uuid.UUID]vaultstore.PendingTransfer
}

func newMemJournal(ledger *memLedger) *memJournal {
	return &memJournal{ledger: ledger, pending: make(map[uuid.UUID]vaultstore.PendingTransfer)}
}

func (j *memJournal) Debit(t vaultstore.PendingTransfer) error {
	if err := j.ledger.withdraw(t.Holder, t.Amount); err != nil {
		return err
	}
	j.pending[t.CallID] = t
	return nil
}

func (j *memJournal) Recredit(callID uuid.UUID) error {
	t, ok := j.pending[callID]
	if !ok {
		return vaultstore.ErrTransferNotPending
	}
	if err := j.ledger.Deposit(t.Holder, t.Amount); err != nil {
		return err
	}
	delete(j.pending, callID)
	return nil
}

func (j *memJournal) Settle(callID uuid.UUID) error {
	if _, ok := j.pending[callID]; !ok {
		return vaultstore.ErrTransferNotPending
	}
	delete(j.pending, callID)
	return nil
}

func (j *memJournal) Pending() ([]vaultstore.PendingTransfer, error) {
	var pending []vaultstore.PendingTransfer
	for _, t := range j.pending {
		pending = append(pending, t)
	}
	return pending, nil
}

type memStatuses struct {
	saved []types.VaultStatus
	err   error
}

func (s *memStatuses) SaveStatus(account string, status types.VaultStatus) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, status)
	return nil
}

type fakeDispatcher struct {
	calls         []calls.Call
	continuations map[uuid.UUID]calls.Continuation
	err           error
	// failAfter lets that many Begin calls through before failing with err.
	failAfter int
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{continuations: make(map[uuid.UUID]calls.Continuation)}
}

func (d *fakeDispatcher) Begin(ctx context.Context, call calls.Call, continuation calls.Continuation) (calls.Handle, error) {
	if d.err != nil {
		if d.failAfter == 0 {
			return calls.Handle{}, d.err
		}
		d.failAfter--
	}
	d.calls = append(d.calls, call)
	d.continuations[call.ID] = continuation
	return calls.Handle{CallID: call.ID, Target: call.Target, Method: call.Method()}, nil
}

func (d *fakeDispatcher) Await(handle calls.Handle, continuation calls.Continuation) error {
	d.continuations[handle.CallID] = continuation
	return nil
}

type testVault struct {
	*Vault
	now        time.Time
	ledger     *memLedger
	journal    *memJournal
	statuses   *memStatuses
	dispatcher *fakeDispatcher
}

func (tv *testVault) advance(d time.Duration) {
	tv.now = tv.now.Add(d)
}

func newTestVault(t *testing.T, status types.VaultStatus) *testVault {
	t.Helper()
	backup := backupAccount
	ledger := newMemLedger()
	tv := &testVault{
		now:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ledger:     ledger,
		journal:    newMemJournal(ledger),
		statuses:   &memStatuses{},
		dispatcher: newFakeDispatcher(),
	}
	record := &vaultstore.VaultRecord{
		AccountID: vaultAccount,
		Config: types.VaultConfig{
			LockedTokenAccountID:   tokenAccount,
			Meta:                   types.FungibleTokenMetadata{Spec: types.FTMetadataSpec, Name: "btc at $60000", Symbol: "btc@60000", Decimals: 8},
			BackupTriggerAccountID: &backup,
			PriceOracleAccountID:   oracleAccount,
			AssetID:                tokenAccount,
			// 60000.0000 with 8 asset decimals
			MinimumUnlockPrice: types.MustFixedPrice(600000000, 12),
		},
		Status: status,
	}
	tv.Vault = New(record, tv.statuses, tv.ledger, tv.journal, tv.dispatcher, WithClock(func() time.Time { return tv.now }))
	return tv
}

func priceData(asset string, price *types.FixedPrice) types.PriceData {
	return types.PriceData{
		Timestamp:          uint64(time.Now().UnixNano()),
		RecencyDurationSec: 90,
		Prices:             []types.AssetOptionalPrice{{AssetID: asset, Price: price}},
	}
}

func pricePtr(multiplier uint64, decimals uint8) *types.FixedPrice {
	p := types.MustFixedPrice(multiplier, decimals)
	return &p
}

func TestOnPriceUpdate(t *testing.T) {
	ctx := context.Background()
	above := priceData(tokenAccount, pricePtr(61000, 8))
	below := priceData(tokenAccount, pricePtr(59000, 8))

	t.Run("only the price feed may push prices", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())
		_, err := tv.OnPriceUpdate(ctx, "mallory.near", above)
		require.True(t, types.IsErrorCode(err, types.Unauthorized))
		assert.Equal(t, types.StateLocked, tv.Status().State)
		assert.Empty(t, tv.statuses.saved)
	})
	t.Run("cooldown idempotence", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())

		status, err := tv.OnPriceUpdate(ctx, oracleAccount, above)
		require.NoError(t, err)
		require.Equal(t, types.StateUnlocking, status.State)
		started := *status.InitiatedAt
		assert.True(t, started.Equal(tv.now))

		for i := 0; i < 3; i++ {
			tv.advance(6 * time.Hour)
			status, err = tv.OnPriceUpdate(ctx, oracleAccount, above)
			require.NoError(t, err)
			assert.Equal(t, types.StateUnlocking, status.State)
			assert.True(t, started.Equal(*status.InitiatedAt))
		}
		assert.Len(t, tv.statuses.saved, 1)

		tv.advance(6 * time.Hour)
		status, err = tv.OnPriceUpdate(ctx, oracleAccount, above)
		require.NoError(t, err)
		assert.Equal(t, types.StateUnlocked, status.State)
		assert.Nil(t, status.InitiatedAt)
		assert.Len(t, tv.statuses.saved, 2)
	})
	t.Run("price equal to trigger qualifies", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())
		status, err := tv.OnPriceUpdate(ctx, oracleAccount, priceData(tokenAccount, pricePtr(6, 4)))
		require.NoError(t, err)
		assert.Equal(t, types.StateUnlocking, status.State)
	})
	t.Run("price below trigger reverses unlocking", func(t *testing.T) {
		tv := newTestVault(t, types.UnlockingStatus(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
		status, err := tv.OnPriceUpdate(ctx, oracleAccount, below)
		require.NoError(t, err)
		assert.Equal(t, types.StateLocked, status.State)
	})
	t.Run("missing price counts as below trigger", func(t *testing.T) {
		for name, data := range map[string]types.PriceData{
			"asset not listed":  priceData("usdc.near", pricePtr(1, 0)),
			"price not present": priceData(tokenAccount, nil),
			"no prices":         {Timestamp: 1},
		} {
			t.Run(name, func(t *testing.T) {
				tv := newTestVault(t, types.UnlockingStatus(tv0()))
				status, err := tv.OnPriceUpdate(ctx, oracleAccount, data)
				require.NoError(t, err)
				assert.Equal(t, types.StateLocked, status.State)
			})
		}
	})
	t.Run("locked stays locked below trigger", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())
		status, err := tv.OnPriceUpdate(ctx, oracleAccount, below)
		require.NoError(t, err)
		assert.Equal(t, types.StateLocked, status.State)
		assert.Empty(t, tv.statuses.saved)
	})
	t.Run("unlocked ignores every price", func(t *testing.T) {
		tv := newTestVault(t, types.UnlockedStatus())
		for _, data := range []types.PriceData{above, below, priceData(tokenAccount, nil)} {
			status, err := tv.OnPriceUpdate(ctx, oracleAccount, data)
			require.NoError(t, err)
			assert.Equal(t, types.StateUnlocked, status.State)
		}
		assert.Empty(t, tv.statuses.saved)
	})
	t.Run("out of order prices", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())
		for _, data := range []types.PriceData{below, above, below, below, above} {
			_, err := tv.OnPriceUpdate(ctx, oracleAccount, data)
			require.NoError(t, err)
		}
		assert.Equal(t, types.StateUnlocking, tv.Status().State)
	})
	t.Run("status persisted before it changes", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())
		tv.statuses.err = errors.New("disk full")
		_, err := tv.OnPriceUpdate(ctx, oracleAccount, above)
		require.True(t, types.IsErrorCode(err, types.InternalServiceError))
		assert.Equal(t, types.StateLocked, tv.Status().State)
	})
}

func tv0() time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()

	t.Run("backup trigger unlocks without cooldown", func(t *testing.T) {
		tv := newTestVault(t, types.UnlockingStatus(tv0()))
		require.NoError(t, tv.Unlock(ctx, backupAccount))
		assert.Equal(t, types.StateUnlocked, tv.Status().State)

		err := tv.Unlock(ctx, backupAccount)
		assert.True(t, types.IsErrorCode(err, types.WrongState))
	})
	t.Run("other callers", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())
		err := tv.Unlock(ctx, oracleAccount)
		assert.True(t, types.IsErrorCode(err, types.Unauthorized))
		assert.Equal(t, types.StateLocked, tv.Status().State)
	})
	t.Run("no backup trigger configured", func(t *testing.T) {
		tv := newTestVault(t, types.LockedStatus())
		tv.config.BackupTriggerAccountID = nil
		err := tv.Unlock(ctx, backupAccount)
		assert.True(t, types.IsErrorCode(err, types.Unauthorized))
	})
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	tv := newTestVault(t, types.LockedStatus())
	require.NoError(t, tv.Deposit(ctx, tokenAccount, "alice.near", sdkmath.NewUint(40)))
	require.NoError(t, tv.Deposit(ctx, tokenAccount, "alice.near", sdkmath.NewUint(2)))
	assert.Equal(t, sdkmath.NewUint(42), tv.ledger.balances["alice.near"])

	err := tv.Deposit(ctx, "usdc.near", "alice.near", sdkmath.NewUint(1))
	assert.True(t, types.IsErrorCode(err, types.Unauthorized))

	err = tv.Deposit(ctx, tokenAccount, "alice.near", sdkmath.ZeroUint())
	assert.True(t, types.IsErrorCode(err, types.BadRequest))

	for _, status := range []types.VaultStatus{types.UnlockingStatus(tv0()), types.UnlockedStatus()} {
		tv := newTestVault(t, status)
		err := tv.Deposit(ctx, tokenAccount, "alice.near", sdkmath.NewUint(1))
		assert.True(t, types.IsErrorCode(err, types.WrongState), status.String())
		assert.Empty(t, tv.ledger.balances)
	}

	info, err := tv.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewUint(42), info.TotalSupply)
	assert.Equal(t, vaultAccount, info.AccountID)
}

func unlockedWithBalance(t *testing.T, holders map[string]uint64) *testVault {
	t.Helper()
	tv := newTestVault(t, types.UnlockedStatus())
	for holder, amount := range holders {
		tv.ledger.balances[holder] = sdkmath.NewUint(amount)
	}
	return tv
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("requires unlocked vault", func(t *testing.T) {
		for _, status := range []types.VaultStatus{types.LockedStatus(), types.UnlockingStatus(tv0())} {
			tv := newTestVault(t, status)
			tv.ledger.balances["alice.near"] = sdkmath.NewUint(10)
			_, err := tv.BeginWithdraw(ctx, "alice.near")
			assert.True(t, types.IsErrorCode(err, types.WrongState))
			assert.Empty(t, tv.dispatcher.calls)
		}
	})
	t.Run("nothing to withdraw", func(t *testing.T) {
		tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 0})
		_, err := tv.BeginWithdraw(ctx, "alice.near")
		assert.True(t, types.IsErrorCode(err, types.NothingToWithdraw))
		_, err = tv.BeginWithdraw(ctx, "bob.near")
		assert.True(t, types.IsErrorCode(err, types.NothingToWithdraw))
		assert.Empty(t, tv.dispatcher.calls)
	})
	t.Run("successful transfer closes holder", func(t *testing.T) {
		tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 70, "bob.near": 30})

		pending, err := tv.BeginWithdraw(ctx, "alice.near")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewUint(70), pending.Amount)
		assert.True(t, tv.ledger.balances["alice.near"].IsZero())
		assert.Len(t, tv.journal.pending, 1)

		require.Len(t, tv.dispatcher.calls, 1)
		call := tv.dispatcher.calls[0]
		assert.Equal(t, tokenAccount, call.Target)
		assert.Equal(t, vaultAccount, call.Predecessor)
		assert.Equal(t, MethodFtTransfer, call.Method())
		assert.JSONEq(t, `{"receiver_id":"alice.near","amount":"70"}`, string(call.Actions[0].Args))
		assert.Equal(t, sdkmath.OneUint(), *call.Actions[0].Amount)

		tv.dispatcher.continuations[call.ID](ctx, calls.SuccessResult(call.ID, nil))

		_, registered := tv.ledger.balances["alice.near"]
		assert.False(t, registered)
		assert.Empty(t, tv.journal.pending)
		require.Len(t, tv.dispatcher.calls, 2)
		refund := tv.dispatcher.calls[1]
		assert.Equal(t, "alice.near", refund.Target)
		assert.Equal(t, calls.ActionTransfer, refund.Actions[0].Kind)
		assert.Equal(t, sdkmath.NewUint(125), *refund.Actions[0].Amount)

		_, err = tv.CompleteWithdraw(ctx, call.ID, calls.SuccessResult(call.ID, nil))
		assert.Error(t, err)
	})
	t.Run("failed transfer is compensated", func(t *testing.T) {
		tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 70})

		pending, err := tv.BeginWithdraw(ctx, "alice.near")
		require.NoError(t, err)

		outcome, err := tv.CompleteWithdraw(ctx, pending.CallID, calls.FailureResult(pending.CallID, errors.New("receiver not registered")))
		require.NoError(t, err)
		assert.False(t, outcome.Transferred)
		assert.Nil(t, outcome.StorageRefund)
		assert.Equal(t, sdkmath.NewUint(70), tv.ledger.balances["alice.near"])
		assert.Empty(t, tv.journal.pending)
		assert.Len(t, tv.dispatcher.calls, 1)
	})
	t.Run("failed re-credit keeps the journal entry", func(t *testing.T) {
		tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 70})
		pending, err := tv.BeginWithdraw(ctx, "alice.near")
		require.NoError(t, err)

		tv.ledger.failNext = errors.New("io error")
		_, err = tv.CompleteWithdraw(ctx, pending.CallID, calls.FailureResult(pending.CallID, errors.New("boom")))
		require.Error(t, err)
		assert.Len(t, tv.journal.pending, 1)

		outcome, err := tv.CompleteWithdraw(ctx, pending.CallID, calls.FailureResult(pending.CallID, errors.New("boom")))
		require.NoError(t, err)
		assert.False(t, outcome.Transferred)
		assert.Equal(t, sdkmath.NewUint(70), tv.ledger.balances["alice.near"])
	})
	t.Run("submission failure re-credits", func(t *testing.T) {
		tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 70})
		tv.dispatcher.err = calls.ErrFacilityBusy

		_, err := tv.BeginWithdraw(ctx, "alice.near")
		assert.True(t, types.IsErrorCode(err, types.TransferFailed))
		assert.Equal(t, sdkmath.NewUint(70), tv.ledger.balances["alice.near"])
		assert.Empty(t, tv.journal.pending)
	})
}

func TestWithdrawConservation(t *testing.T) {
	ctx := context.Background()

	for _, success := range []bool{true, false} {
		t.Run(fmt.Sprintf("success=%t", success), func(t *testing.T) {
			tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 123456789, "bob.near": 1})
			before, err := tv.ledger.TotalSupply()
			require.NoError(t, err)

			pending, err := tv.BeginWithdraw(ctx, "alice.near")
			require.NoError(t, err)

			during, err := tv.ledger.TotalSupply()
			require.NoError(t, err)
			assert.Equal(t, before, during.Add(pending.Amount))

			result := calls.SuccessResult(pending.CallID, nil)
			if !success {
				result = calls.FailureResult(pending.CallID, errors.New("rejected"))
			}
			outcome, err := tv.CompleteWithdraw(ctx, pending.CallID, result)
			require.NoError(t, err)

			after, err := tv.ledger.TotalSupply()
			require.NoError(t, err)
			transferred := sdkmath.ZeroUint()
			if outcome.Transferred {
				transferred = outcome.Amount
			}
			assert.Equal(t, before.String(), after.Add(transferred).String())
		})
	}
}

func TestResumeTransfers(t *testing.T) {
	ctx := context.Background()

	t.Run("pending transfer is submitted again under its call ID", func(t *testing.T) {
		tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 0})
		callID := uuid.New()
		tv.journal.pending[callID] = vaultstore.PendingTransfer{CallID: callID, Holder: "alice.near", Amount: sdkmath.NewUint(9)}

		require.NoError(t, tv.resumeTransfers(ctx))
		require.Len(t, tv.dispatcher.calls, 1)
		call := tv.dispatcher.calls[0]
		assert.Equal(t, callID, call.ID)
		assert.Equal(t, tokenAccount, call.Target)
		assert.JSONEq(t, `{"receiver_id":"alice.near","amount":"9"}`, string(call.Actions[0].Args))

		tv.dispatcher.continuations[callID](ctx, calls.FailureResult(callID, errors.New("rejected")))
		assert.Equal(t, sdkmath.NewUint(9), tv.ledger.balances["alice.near"])
		assert.Empty(t, tv.journal.pending)
	})
	t.Run("rejected submission awaits the result", func(t *testing.T) {
		tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 0})
		tv.dispatcher.err = calls.ErrFacilityBusy
		callID := uuid.New()
		tv.journal.pending[callID] = vaultstore.PendingTransfer{CallID: callID, Holder: "alice.near", Amount: sdkmath.NewUint(9)}

		require.NoError(t, tv.resumeTransfers(ctx))
		assert.Empty(t, tv.dispatcher.calls)
		continuation, ok := tv.dispatcher.continuations[callID]
		require.True(t, ok)

		continuation(ctx, calls.SuccessResult(callID, nil))
		assert.Empty(t, tv.journal.pending)
		assert.True(t, tv.ledger.balances["alice.near"].IsZero())
	})
}

func TestStorageRefundFailureKeepsHolderRegistered(t *testing.T) {
	ctx := context.Background()
	tv := unlockedWithBalance(t, map[string]uint64{"alice.near": 70})
	tv.dispatcher.err = calls.ErrFacilityBusy
	tv.dispatcher.failAfter = 1

	pending, err := tv.BeginWithdraw(ctx, "alice.near")
	require.NoError(t, err)

	outcome, err := tv.CompleteWithdraw(ctx, pending.CallID, calls.SuccessResult(pending.CallID, nil))
	require.NoError(t, err)
	assert.True(t, outcome.Transferred)
	assert.Nil(t, outcome.StorageRefund)
	assert.Len(t, tv.dispatcher.calls, 1)

	balance, registered := tv.ledger.balances["alice.near"]
	require.True(t, registered)
	assert.True(t, balance.IsZero())
	assert.Empty(t, tv.journal.pending)
}
