package services

import (
	"context"
	"fmt"
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

type StorageBudget struct {
	AccountID string       `json:"account_id"`
	Balance   sdkmath.Uint `json:"balance"`
}

// RegistrationCost is kept by the factory out of the first deposit of every
// caller.
func (s *Service) RegistrationCost() sdkmath.Uint {
	return s.storageCost(s.cfg.Factory.RegistrationBytes)
}

func (s *Service) StoragePricePerByte() sdkmath.Uint {
	return s.cfg.Factory.PricePerByte()
}

func (s *Service) storageCost(bytes uint64) sdkmath.Uint {
	return sdkmath.NewUint(bytes).Mul(s.StoragePricePerByte())
}

// StorageDeposit adds amount to the storage budget of caller.
func (s *Service) StorageDeposit(ctx context.Context, caller string, amount sdkmath.Uint) (*StorageBudget, error) {
	if isUnset(amount) || amount.IsZero() {
		return nil, types.NewValidationFailedError(fmt.Errorf("deposit amount must be positive"))
	}
	if !types.FitsUint128(amount) {
		return nil, types.NewValidationFailedError(fmt.Errorf("deposit amount %s overflows 128 bits", amount))
	}

	doc, err := s.db.DepositStorageBudget(ctx, caller, amount, s.RegistrationCost())
	if err != nil {
		if db.IsInsufficientBudgetError(err) {
			return nil, types.NewError(http.StatusBadRequest, types.InsufficientBudget, err)
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to deposit storage budget: %w", err))
	}
	balance, err := doc.Amount()
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().
		Str("account", caller).
		Stringer("amount", amount).
		Stringer("balance", balance).
		Msg("storage budget deposited")
	return &StorageBudget{AccountID: caller, Balance: balance}, nil
}

func (s *Service) GetStorageBudget(ctx context.Context, accountID string) (*StorageBudget, error) {
	doc, err := s.db.GetStorageBudget(ctx, accountID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewError(http.StatusNotFound, types.NotFound, err)
		}
		return nil, types.NewInternalServiceError(err)
	}
	balance, err := doc.Amount()
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return &StorageBudget{AccountID: accountID, Balance: balance}, nil
}

// isUnset reports whether u was never assigned, e.g. a missing JSON field.
func isUnset(u sdkmath.Uint) bool {
	return u == (sdkmath.Uint{})
}
