package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

// Ledger is the fungible balance ledger owned by a vault.
type Ledger interface {
	Deposit(holder string, amount sdkmath.Uint) error
	Balance(holder string) (sdkmath.Uint, error)
	StorageRegister(holder string) error
	StorageUnregister(holder string) error
	MinStorageDeposit() sdkmath.Uint
	TotalSupply() (sdkmath.Uint, error)
}

// Journal debits holders for outbound transfers and persists the transfers
// until their result is applied. Each method changes the balance and the
// journal together or not at all.
type Journal interface {
	// Debit fails without any change when the balance is insufficient.
	Debit(t vaultstore.PendingTransfer) error
	Recredit(callID uuid.UUID) error
	Settle(callID uuid.UUID) error
	Pending() ([]vaultstore.PendingTransfer, error)
}

type StatusStore interface {
	SaveStatus(account string, status types.VaultStatus) error
}

// Dispatcher issues deferred calls and runs their continuation once.
type Dispatcher interface {
	Begin(ctx context.Context, call calls.Call, continuation calls.Continuation) (calls.Handle, error)
	Await(handle calls.Handle, continuation calls.Continuation) error
}
