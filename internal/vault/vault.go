package vault

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

// UnlockDuration is the cooldown between the first qualifying price and the
// final unlock.
const UnlockDuration = 24 * time.Hour

const DefaultTransferGas uint64 = 10_000_000_000_000

// Vault is a price gated lock over the balance of a backing asset. Operations
// on one vault never interleave.
type Vault struct {
	accountID string
	config    types.VaultConfig

	statuses   StatusStore
	ledger     Ledger
	journal    Journal
	dispatcher Dispatcher

	now         func() time.Time
	transferGas uint64

	mu       sync.Mutex
	status   types.VaultStatus
	inflight map[uuid.UUID]vaultstore.PendingTransfer
}

type Option func(v *Vault)

func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		v.now = now
	}
}

func WithTransferGas(gas uint64) Option {
	return func(v *Vault) {
		v.transferGas = gas
	}
}

func New(
	record *vaultstore.VaultRecord,
	statuses StatusStore,
	ledger Ledger,
	journal Journal,
	dispatcher Dispatcher,
	opts ...Option,
) *Vault {
	v := &Vault{
		accountID:   record.AccountID,
		config:      record.Config,
		status:      record.Status,
		statuses:    statuses,
		ledger:      ledger,
		journal:     journal,
		dispatcher:  dispatcher,
		now:         time.Now,
		transferGas: DefaultTransferGas,
		inflight:    make(map[uuid.UUID]vaultstore.PendingTransfer),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vault) AccountID() string {
	return v.accountID
}

func (v *Vault) Config() types.VaultConfig {
	return v.config
}

func (v *Vault) Status() types.VaultStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

type Info struct {
	AccountID   string            `json:"account_id"`
	Config      types.VaultConfig `json:"config"`
	Status      types.VaultStatus `json:"status"`
	TotalSupply sdkmath.Uint      `json:"total_supply"`
}

func (v *Vault) Info(ctx context.Context) (*Info, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	supply, err := v.ledger.TotalSupply()
	if err != nil {
		return nil, types.NewInternalServiceError(
			fmt.Errorf("failed to read total supply of %s: %w", v.accountID, err),
		)
	}
	return &Info{
		AccountID:   v.accountID,
		Config:      v.config,
		Status:      v.status,
		TotalSupply: supply,
	}, nil
}

// OnPriceUpdate applies price data pushed by the configured price feed. A
// missing price for the vault asset counts as below the trigger.
func (v *Vault) OnPriceUpdate(ctx context.Context, predecessor string, data types.PriceData) (types.VaultStatus, error) {
	if predecessor != v.config.PriceOracleAccountID {
		metrics.RecordPriceUpdate(true)
		return types.VaultStatus{}, types.NewErrorWithMsg(
			http.StatusForbidden, types.Unauthorized,
			fmt.Sprintf("%s is not the price feed of %s", predecessor, v.accountID),
		)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	price := data.PriceFor(v.config.AssetID)
	var err error
	if price != nil && price.GTE(v.config.MinimumUnlockPrice) {
		err = v.advanceTowardUnlock(ctx)
	} else {
		err = v.reverseTowardLock(ctx)
	}
	metrics.RecordPriceUpdate(err != nil)
	if err != nil {
		return types.VaultStatus{}, err
	}

	return v.status, nil
}

func (v *Vault) advanceTowardUnlock(ctx context.Context) error {
	switch v.status.State {
	case types.StateLocked:
		return v.setStatus(ctx, types.UnlockingStatus(v.now()))
	case types.StateUnlocking:
		if v.status.InitiatedAt == nil {
			return v.setStatus(ctx, types.UnlockingStatus(v.now()))
		}
		elapsed := v.now().Sub(*v.status.InitiatedAt)
		if elapsed >= UnlockDuration {
			return v.setStatus(ctx, types.UnlockedStatus())
		}
		log.Ctx(ctx).Debug().
			Str("vault", v.accountID).
			Dur("remaining", UnlockDuration-elapsed).
			Msg("unlock cooldown not elapsed")
		return nil
	default:
		log.Ctx(ctx).Info().Str("vault", v.accountID).Msg("vault already unlocked, ignoring qualifying price")
		return nil
	}
}

func (v *Vault) reverseTowardLock(ctx context.Context) error {
	switch v.status.State {
	case types.StateUnlocking:
		return v.setStatus(ctx, types.LockedStatus())
	case types.StateLocked:
		return nil
	default:
		log.Ctx(ctx).Warn().Str("vault", v.accountID).Msg("vault already unlocked, ignoring price below trigger")
		return nil
	}
}

// Unlock is the backup trigger path. It skips the price check and the
// cooldown.
func (v *Vault) Unlock(ctx context.Context, predecessor string) error {
	backup := v.config.BackupTriggerAccountID
	if backup == nil || *backup != predecessor {
		return types.NewErrorWithMsg(
			http.StatusForbidden, types.Unauthorized,
			fmt.Sprintf("%s is not the backup trigger of %s", predecessor, v.accountID),
		)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.status.Is(types.StateUnlocked) {
		return types.NewErrorWithMsg(http.StatusConflict, types.WrongState, "vault is already unlocked")
	}
	return v.setStatus(ctx, types.UnlockedStatus())
}

// Deposit credits sender with amount received from the locked token. Deposits
// are accepted only while the vault is locked.
func (v *Vault) Deposit(ctx context.Context, predecessor, sender string, amount sdkmath.Uint) error {
	if predecessor != v.config.LockedTokenAccountID {
		return types.NewErrorWithMsg(
			http.StatusForbidden, types.Unauthorized,
			fmt.Sprintf("%s is not the locked token of %s", predecessor, v.accountID),
		)
	}
	if amount.IsZero() {
		return types.NewValidationFailedError(fmt.Errorf("deposit amount must be positive"))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.status.Is(types.StateLocked) {
		return types.NewErrorWithMsg(
			http.StatusConflict, types.WrongState,
			fmt.Sprintf("deposits are accepted only while locked, vault is %s", v.status.State),
		)
	}
	if err := v.ledger.Deposit(sender, amount); err != nil {
		return types.NewInternalServiceError(fmt.Errorf("failed to credit %s: %w", sender, err))
	}

	log.Ctx(ctx).Info().
		Str("vault", v.accountID).
		Str("holder", sender).
		Stringer("amount", amount).
		Msg("deposit credited")
	return nil
}

func (v *Vault) setStatus(ctx context.Context, next types.VaultStatus) error {
	if err := v.statuses.SaveStatus(v.accountID, next); err != nil {
		return types.NewInternalServiceError(
			fmt.Errorf("failed to persist status of %s: %w", v.accountID, err),
		)
	}

	prev := v.status
	v.status = next
	metrics.RecordVaultTransition(prev.State.String(), next.State.String())

	log.Ctx(ctx).Info().
		Str("vault", v.accountID).
		Stringer("from", prev).
		Stringer("to", next).
		Msg("vault state changed")
	return nil
}

// resumeTransfers submits again the transfers debited before a restart under
// their journaled call IDs. A transfer that already ran has its stored result
// replayed instead of running twice.
func (v *Vault) resumeTransfers(ctx context.Context) error {
	pending, err := v.journal.Pending()
	if err != nil {
		return fmt.Errorf("failed to load pending transfers of %s: %w", v.accountID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for _, t := range pending {
		call, err := v.transferCall(t.CallID, t.Holder, t.Amount)
		if err != nil {
			return err
		}
		v.inflight[t.CallID] = t
		if _, err := v.dispatcher.Begin(ctx, call, v.transferContinuation(t.CallID)); err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("vault", v.accountID).
				Str("call_id", t.CallID.String()).
				Msg("failed to submit pending transfer again, awaiting its result")
			handle := calls.Handle{CallID: t.CallID, Target: v.config.LockedTokenAccountID, Method: MethodFtTransfer}
			if err := v.dispatcher.Await(handle, v.transferContinuation(t.CallID)); err != nil {
				delete(v.inflight, t.CallID)
				return err
			}
		}
		log.Ctx(ctx).Info().
			Str("vault", v.accountID).
			Str("call_id", t.CallID.String()).
			Str("holder", t.Holder).
			Msg("resumed pending transfer")
	}
	return nil
}
