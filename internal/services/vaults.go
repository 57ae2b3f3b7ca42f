package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vault"
)

type VaultRecord struct {
	Identifier  string            `json:"identifier"`
	AccountID   string            `json:"account_id"`
	TargetPrice string            `json:"target_price"`
	Creator     string            `json:"creator"`
	CreatedAt   int64             `json:"created_at"`
	Config      types.VaultConfig `json:"config"`
}

func toVaultRecord(doc *model.VaultRecordDocument) (*VaultRecord, error) {
	cfg, err := doc.VaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to decode vault record %s: %w", doc.Identifier, err)
	}
	return &VaultRecord{
		Identifier:  doc.Identifier,
		AccountID:   doc.AccountID,
		TargetPrice: doc.TargetPriceRaw,
		Creator:     doc.Creator,
		CreatedAt:   doc.CreatedAt,
		Config:      cfg,
	}, nil
}

func (s *Service) GetVault(ctx context.Context, identifier string) (*VaultRecord, error) {
	doc, err := s.db.GetVault(ctx, identifier)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewError(http.StatusNotFound, types.NotFound, err)
		}
		return nil, types.NewInternalServiceError(err)
	}
	record, err := toVaultRecord(doc)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return record, nil
}

func (s *Service) ListVaults(ctx context.Context, offset, limit int64) ([]*VaultRecord, error) {
	docs, err := s.db.ListVaults(ctx, offset, limit)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to list vaults: %w", err))
	}
	records := make([]*VaultRecord, 0, len(docs))
	for _, doc := range docs {
		record, err := toVaultRecord(doc)
		if err != nil {
			return nil, types.NewInternalServiceError(err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Service) CountVaults(ctx context.Context) (int64, error) {
	count, err := s.db.CountVaults(ctx)
	if err != nil {
		return 0, types.NewInternalServiceError(fmt.Errorf("failed to count vaults: %w", err))
	}
	return count, nil
}

func (s *Service) hostedVault(identifier string) (*vault.Vault, error) {
	return s.host.Vault(s.VaultAccountID(identifier))
}

func (s *Service) GetVaultStatus(ctx context.Context, identifier string) (types.VaultStatus, error) {
	v, err := s.hostedVault(identifier)
	if err != nil {
		return types.VaultStatus{}, err
	}
	return v.Status(), nil
}

func (s *Service) GetVaultInfo(ctx context.Context, identifier string) (*vault.Info, error) {
	v, err := s.hostedVault(identifier)
	if err != nil {
		return nil, err
	}
	return v.Info(ctx)
}

// Unlock forces the vault open on behalf of its backup trigger.
func (s *Service) Unlock(ctx context.Context, caller, identifier string) (types.VaultStatus, error) {
	v, err := s.hostedVault(identifier)
	if err != nil {
		return types.VaultStatus{}, err
	}
	if err := v.Unlock(ctx, caller); err != nil {
		return types.VaultStatus{}, err
	}
	return v.Status(), nil
}

// Withdraw starts the transfer of the whole balance of caller back to the
// backing token. The transfer completes asynchronously.
func (s *Service) Withdraw(ctx context.Context, caller, identifier string) (*vault.PendingWithdrawal, error) {
	v, err := s.hostedVault(identifier)
	if err != nil {
		return nil, err
	}
	return v.BeginWithdraw(ctx, caller)
}

type WrapResult struct {
	CallID uuid.UUID    `json:"call_id"`
	Used   sdkmath.Uint `json:"used"`
}

// Wrap moves amount of the backing token from caller into the vault through
// the token transfer call, and waits for the token to report how much of it
// the vault accepted.
func (s *Service) Wrap(ctx context.Context, caller, identifier string, amount sdkmath.Uint) (*WrapResult, error) {
	if isUnset(amount) || amount.IsZero() {
		return nil, types.NewValidationFailedError(fmt.Errorf("amount must be positive"))
	}
	v, err := s.hostedVault(identifier)
	if err != nil {
		return nil, err
	}

	call, err := calls.NewFunctionCall(
		caller, v.Config().LockedTokenAccountID, vault.MethodFtTransferCall,
		vault.FtTransferCallArgs{ReceiverID: v.AccountID(), Amount: amount},
		sdkmath.OneUint(), s.cfg.Factory.TransferGas,
	)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}

	done := make(chan calls.Result, 1)
	if _, err := s.dispatcher.Begin(ctx, call, func(ctx context.Context, result calls.Result) {
		done <- result
	}); err != nil {
		return nil, types.NewError(http.StatusServiceUnavailable, types.TransferFailed, err)
	}

	var result calls.Result
	select {
	case result = <-done:
	case <-ctx.Done():
		return nil, types.NewError(http.StatusGatewayTimeout, types.InternalServiceError,
			fmt.Errorf("transfer call %s did not conclude: %w", call.ID, ctx.Err()))
	}
	if !calls.IsSuccess(result) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.TransferFailed, result.Error)
	}

	var used sdkmath.Uint
	if err := json.Unmarshal(result.Value, &used); err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("invalid transfer call result: %w", err))
	}

	log.Ctx(ctx).Info().
		Str("vault", v.AccountID()).
		Str("holder", caller).
		Stringer("amount", amount).
		Stringer("used", used).
		Msg("wrap concluded")
	return &WrapResult{CallID: call.ID, Used: used}, nil
}
