package vault

import (
	"context"
	"fmt"
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

// PendingWithdrawal is the in-flight handle of a withdrawal. The holder
// balance is already debited by the time it exists.
type PendingWithdrawal struct {
	Handle calls.Handle `json:"-"`
	CallID uuid.UUID    `json:"call_id"`
	Holder string       `json:"holder"`
	Amount sdkmath.Uint `json:"amount"`
}

type WithdrawOutcome struct {
	Holder        string        `json:"holder"`
	Amount        sdkmath.Uint  `json:"amount"`
	Transferred   bool          `json:"transferred"`
	StorageRefund *sdkmath.Uint `json:"storage_refund,omitempty"`
}

// BeginWithdraw debits the whole balance of holder and issues the transfer of
// the backing asset. The result is applied by CompleteWithdraw, which the
// dispatcher runs once the transfer concludes.
func (v *Vault) BeginWithdraw(ctx context.Context, holder string) (*PendingWithdrawal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.status.Is(types.StateUnlocked) {
		return nil, types.NewErrorWithMsg(
			http.StatusConflict, types.WrongState,
			fmt.Sprintf("withdrawals require an unlocked vault, vault is %s", v.status.State),
		)
	}

	balance, err := v.ledger.Balance(holder)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to read balance of %s: %w", holder, err))
	}
	if balance.IsZero() {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.NothingToWithdraw,
			fmt.Sprintf("%s has no balance in %s", holder, v.accountID),
		)
	}

	call, err := v.transferCall(uuid.New(), holder, balance)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}

	pending := vaultstore.PendingTransfer{CallID: call.ID, Holder: holder, Amount: balance}
	if err := v.journal.Debit(pending); err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to debit %s: %w", holder, err))
	}
	v.inflight[call.ID] = pending

	handle, err := v.dispatcher.Begin(ctx, call, v.transferContinuation(call.ID))
	if err != nil {
		delete(v.inflight, call.ID)
		if rerr := v.journal.Recredit(call.ID); rerr != nil {
			// The transfer stays in the journal and is submitted again on restart.
			log.Ctx(ctx).Error().Err(rerr).
				Str("vault", v.accountID).
				Str("holder", holder).
				Stringer("amount", balance).
				Str("call_id", call.ID.String()).
				Bool("operator_action_required", true).
				Msg("failed to re-credit holder after rejected transfer")
		}
		return nil, types.NewError(http.StatusServiceUnavailable, types.TransferFailed, err)
	}

	log.Ctx(ctx).Info().
		Str("vault", v.accountID).
		Str("holder", holder).
		Stringer("amount", balance).
		Str("call_id", call.ID.String()).
		Msg("withdrawal started")

	return &PendingWithdrawal{Handle: handle, CallID: call.ID, Holder: holder, Amount: balance}, nil
}

// transferCall builds the ft_transfer of amount to holder. A resumed transfer
// keeps the call ID it was journaled with.
func (v *Vault) transferCall(callID uuid.UUID, holder string, amount sdkmath.Uint) (calls.Call, error) {
	call, err := calls.NewFunctionCall(
		v.accountID, v.config.LockedTokenAccountID, MethodFtTransfer,
		FtTransferArgs{ReceiverID: holder, Amount: amount},
		sdkmath.OneUint(), v.transferGas,
	)
	if err != nil {
		return calls.Call{}, err
	}
	call.ID = callID
	return call, nil
}

func (v *Vault) transferContinuation(callID uuid.UUID) calls.Continuation {
	return func(ctx context.Context, result calls.Result) {
		if _, err := v.CompleteWithdraw(ctx, callID, result); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("vault", v.accountID).
				Str("call_id", callID.String()).
				Msg("failed to complete withdrawal")
		}
	}
}

// CompleteWithdraw applies the transfer result of a withdrawal. On failure the
// exact debited amount is credited back. On success a holder left with a zero
// balance is unregistered and its minimum storage deposit is sent back.
func (v *Vault) CompleteWithdraw(ctx context.Context, callID uuid.UUID, result calls.Result) (*WithdrawOutcome, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pending, ok := v.inflight[callID]
	if !ok {
		return nil, fmt.Errorf("no withdrawal in flight for call %s", callID)
	}
	metrics.RecordCallResult(MethodFtTransfer, !calls.IsSuccess(result))

	outcome := &WithdrawOutcome{Holder: pending.Holder, Amount: pending.Amount}
	if !calls.IsSuccess(result) {
		if err := v.journal.Recredit(callID); err != nil {
			// The transfer stays in the journal so it can be resolved by hand.
			return nil, types.NewInternalServiceError(
				fmt.Errorf("failed to re-credit %s with %s: %w", pending.Holder, pending.Amount, err),
			)
		}
		delete(v.inflight, callID)

		log.Ctx(ctx).Warn().
			Str("vault", v.accountID).
			Str("holder", pending.Holder).
			Stringer("amount", pending.Amount).
			Str("reason", result.Error).
			Msg("transfer failed, balance re-credited")
		return outcome, nil
	}

	delete(v.inflight, callID)
	if err := v.journal.Settle(callID); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("vault", v.accountID).
			Str("call_id", callID.String()).
			Msg("failed to settle pending transfer")
	}
	outcome.Transferred = true

	log.Ctx(ctx).Info().
		Str("vault", v.accountID).
		Str("holder", pending.Holder).
		Stringer("amount", pending.Amount).
		Msg("withdrawal transferred")

	refund, err := v.closeHolder(ctx, pending.Holder)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("vault", v.accountID).
			Str("holder", pending.Holder).
			Msg("failed to close holder storage")
		return outcome, nil
	}
	outcome.StorageRefund = refund
	return outcome, nil
}

func (v *Vault) closeHolder(ctx context.Context, holder string) (*sdkmath.Uint, error) {
	balance, err := v.ledger.Balance(holder)
	if err != nil {
		return nil, err
	}
	if !balance.IsZero() {
		return nil, nil
	}
	if err := v.ledger.StorageUnregister(holder); err != nil {
		return nil, err
	}

	refund := v.ledger.MinStorageDeposit()
	if refund.IsZero() {
		return nil, nil
	}
	transfer := calls.NewTransfer(v.accountID, holder, refund)
	if _, err := v.dispatcher.Begin(ctx, transfer, nil); err != nil {
		// Registered again so the holder keeps its claim on the deposit.
		if rerr := v.ledger.StorageRegister(holder); rerr != nil {
			log.Ctx(ctx).Error().Err(rerr).
				Str("vault", v.accountID).
				Str("holder", holder).
				Stringer("amount", refund).
				Bool("operator_action_required", true).
				Msg("failed to restore holder registration")
		}
		return nil, fmt.Errorf("failed to refund storage deposit: %w", err)
	}
	return &refund, nil
}
