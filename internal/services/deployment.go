package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vault"
)

// VaultMetadataInput is the caller supplied part of the vault metadata. Name
// and symbol are always derived from the whitelisted token and the target
// price.
type VaultMetadataInput struct {
	Icon          *string `json:"icon,omitempty"`
	Reference     *string `json:"reference,omitempty"`
	ReferenceHash []byte  `json:"reference_hash,omitempty"`
	Decimals      *uint8  `json:"decimals,omitempty"`
}

type CreateVaultRequest struct {
	TokenID string `json:"token_id"`
	// TargetPrice is in units of 10^-4
	TargetPrice            sdkmath.Uint        `json:"target_price"`
	PriceOracleAccountID   string              `json:"price_oracle_account_id"`
	BackupTriggerAccountID *string             `json:"backup_trigger_account_id,omitempty"`
	Metadata               *VaultMetadataInput `json:"metadata,omitempty"`
	// AttachedDeposit is credited to the storage budget when the vault is
	// charged, a rejected request credits nothing
	AttachedDeposit *sdkmath.Uint `json:"attached_deposit,omitempty"`
}

type CreateVaultResult struct {
	Identifier string       `json:"identifier"`
	AccountID  string       `json:"account_id"`
	CallID     uuid.UUID    `json:"call_id"`
	Required   sdkmath.Uint `json:"required"`
	Funding    sdkmath.Uint `json:"funding"`
}

// deployment is a validated vault creation, ready to be charged and issued.
type deployment struct {
	identifier string
	accountID  string
	price      string
	config     types.VaultConfig
	initArgs   []byte
}

// CreateVault provisions a new vault. Every validation happens before the
// storage budget is charged, an attached deposit is credited by the same
// update that charges the deployment. Once the record is inserted the
// deployment is issued and never rolled back, a failing deployment is reported
// for the operator instead.
func (s *Service) CreateVault(ctx context.Context, caller string, req CreateVaultRequest) (*CreateVaultResult, error) {
	attached := sdkmath.ZeroUint()
	if req.AttachedDeposit != nil && !isUnset(*req.AttachedDeposit) {
		if !types.FitsUint128(*req.AttachedDeposit) {
			return nil, types.NewValidationFailedError(
				fmt.Errorf("attached deposit %s overflows 128 bits", *req.AttachedDeposit),
			)
		}
		attached = *req.AttachedDeposit
	}

	d, err := s.prepareDeployment(ctx, req)
	if err != nil {
		return nil, err
	}

	required := s.storageCost(s.cfg.Factory.CodeSize + s.cfg.Factory.ExtraBytes + 2*uint64(len(d.initArgs)))
	charge := model.StorageCharge{
		Attached:         attached,
		RegistrationCost: s.RegistrationCost(),
		Amount:           required,
	}
	charged, err := s.db.ChargeStorageBudget(ctx, caller, charge)
	if err != nil {
		if db.IsInsufficientBudgetError(err) {
			return nil, types.NewError(http.StatusBadRequest, types.InsufficientBudget, err)
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to charge storage budget: %w", err))
	}

	record := model.NewVaultRecordDocument(
		d.identifier, d.accountID, caller, req.TargetPrice, d.config, time.Now().UnixMilli(),
	)
	if err := s.db.SaveNewVault(ctx, record); err != nil {
		s.reverseCharge(ctx, caller, charged, charge)
		if db.IsDuplicateKeyError(err) {
			return nil, identifierTakenError(d.identifier)
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to save vault record: %w", err))
	}
	metrics.IncVaultsCreated()

	funding, err := s.funding(record, required)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().
		Str("vault", d.accountID).
		Str("asset", d.config.AssetID).
		Str("price", d.price).
		Str("creator", caller).
		Stringer("required", required).
		Stringer("funding", funding).
		Msg("creating vault")

	call := s.deploymentCall(d, funding)
	if _, err := s.dispatcher.Begin(ctx, call, s.deploymentContinuation(d.identifier, d.accountID)); err != nil {
		metrics.IncDeploymentFailures("submit")
		log.Ctx(ctx).Error().Err(err).
			Str("vault", d.accountID).
			Str("call_id", call.ID.String()).
			Bool("operator_action_required", true).
			Msg("failed to submit vault deployment, record and budget charge are kept")
		return nil, types.NewError(http.StatusServiceUnavailable, types.InternalServiceError,
			fmt.Errorf("deployment of %s could not be submitted: %w", d.accountID, err))
	}

	return &CreateVaultResult{
		Identifier: d.identifier,
		AccountID:  d.accountID,
		CallID:     call.ID,
		Required:   required,
		Funding:    funding,
	}, nil
}

func (s *Service) prepareDeployment(ctx context.Context, req CreateVaultRequest) (*deployment, error) {
	asset, err := s.whitelistedAsset(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}
	if _, err := s.whitelistedFeed(ctx, req.PriceOracleAccountID); err != nil {
		return nil, err
	}

	if asset.Metadata == nil || asset.Metadata.Name == "" || asset.Metadata.Decimals == 0 {
		return nil, invalidMetadataError(fmt.Sprintf("whitelisted token %s has no usable metadata", req.TokenID))
	}
	decimals := asset.Metadata.Decimals
	if req.Metadata != nil && req.Metadata.Decimals != nil && *req.Metadata.Decimals != decimals {
		return nil, invalidMetadataError(fmt.Sprintf("decimals %d do not match whitelisted %d", *req.Metadata.Decimals, decimals))
	}
	if isUnset(req.TargetPrice) || req.TargetPrice.IsZero() {
		return nil, invalidMetadataError("target price must be positive")
	}
	if decimals > math.MaxUint8-types.TargetPriceDecimals {
		return nil, invalidMetadataError(fmt.Sprintf("decimals %d are too large", decimals))
	}
	trigger, err := types.NewFixedPrice(req.TargetPrice, decimals+types.TargetPriceDecimals)
	if err != nil {
		return nil, types.NewValidationFailedError(err)
	}

	name := types.CanonicalName(asset.Metadata.Name)
	price := types.FormatTargetPrice(req.TargetPrice)
	meta := types.FungibleTokenMetadata{
		Spec:     types.FTMetadataSpec,
		Name:     types.VaultDisplayName(name, price),
		Symbol:   types.VaultSymbol(name, price),
		Decimals: decimals,
	}
	if req.Metadata != nil {
		meta.Icon = req.Metadata.Icon
		meta.Reference = req.Metadata.Reference
		meta.ReferenceHash = req.Metadata.ReferenceHash
	}

	cfg := types.VaultConfig{
		LockedTokenAccountID:   req.TokenID,
		Meta:                   meta,
		BackupTriggerAccountID: req.BackupTriggerAccountID,
		PriceOracleAccountID:   req.PriceOracleAccountID,
		AssetID:                asset.AssetID,
		MinimumUnlockPrice:     trigger,
	}
	if err := cfg.Meta.Validate(); err != nil {
		return nil, invalidMetadataError(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.NewValidationFailedError(err)
	}

	identifier := types.VaultIdentifier(name, req.TargetPrice)
	accountID := vaultAccountID(identifier, s.cfg.Factory.AccountID)
	if err := types.ValidateAccountID(accountID); err != nil {
		return nil, types.NewError(http.StatusBadRequest, types.InvalidIdentifier, err)
	}

	// fail early, the insert below still guards against concurrent creations
	if _, err := s.db.GetVault(ctx, identifier); err == nil {
		return nil, identifierTakenError(identifier)
	} else if !db.IsNotFoundError(err) {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to look up vault %s: %w", identifier, err))
	}

	initArgs, err := json.Marshal(vault.InitArgs{Config: cfg})
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}

	return &deployment{
		identifier: identifier,
		accountID:  accountID,
		price:      price,
		config:     cfg,
		initArgs:   initArgs,
	}, nil
}

// funding is what the new account receives: the charge minus the storage the
// factory keeps for the record.
func (s *Service) funding(record *model.VaultRecordDocument, required sdkmath.Uint) (sdkmath.Uint, error) {
	recordBytes, err := record.StorageBytes()
	if err != nil {
		return sdkmath.Uint{}, fmt.Errorf("failed to size vault record: %w", err)
	}
	kept := s.storageCost(recordBytes)
	if kept.GTE(required) {
		return sdkmath.ZeroUint(), nil
	}
	return required.Sub(kept), nil
}

func (s *Service) deploymentCall(d *deployment, funding sdkmath.Uint) calls.Call {
	noDeposit := sdkmath.ZeroUint()
	return calls.Call{
		ID:          uuid.New(),
		Predecessor: s.cfg.Factory.AccountID,
		Target:      d.accountID,
		Actions: []calls.Action{
			{Kind: calls.ActionCreateAccount},
			{Kind: calls.ActionTransfer, Amount: &funding},
			{Kind: calls.ActionDeployCode, CodeSize: s.cfg.Factory.CodeSize},
			{
				Kind:   calls.ActionFunctionCall,
				Method: vault.MethodNew,
				Args:   d.initArgs,
				Amount: &noDeposit,
				Gas:    s.cfg.Factory.InitGas,
			},
		},
	}
}

func (s *Service) deploymentContinuation(identifier, accountID string) calls.Continuation {
	return func(ctx context.Context, result calls.Result) {
		metrics.RecordCallResult(vault.MethodNew, !calls.IsSuccess(result))
		if calls.IsSuccess(result) {
			log.Ctx(ctx).Info().
				Str("identifier", identifier).
				Str("vault", accountID).
				Msg("vault deployed")
			return
		}

		metrics.IncDeploymentFailures("execute")
		log.Ctx(ctx).Error().
			Str("identifier", identifier).
			Str("vault", accountID).
			Str("call_id", result.CallID.String()).
			Str("reason", result.Error).
			Bool("operator_action_required", true).
			Msg("vault deployment failed, record and budget charge are kept")
	}
}

func (s *Service) reverseCharge(
	ctx context.Context, caller string, charged *model.StorageBudgetDocument, charge model.StorageCharge,
) {
	if err := s.db.ReverseStorageCharge(ctx, caller, charged, charge); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("account", caller).
			Stringer("amount", charge.Amount).
			Stringer("attached", charge.Attached).
			Bool("operator_action_required", true).
			Msg("failed to reverse storage charge")
	}
}

func vaultAccountID(identifier, factoryAccountID string) string {
	return types.SubAccountID(identifier, factoryAccountID)
}

func identifierTakenError(identifier string) *types.Error {
	return types.NewErrorWithMsg(
		http.StatusConflict, types.IdentifierTaken,
		fmt.Sprintf("vault %s already exists", identifier),
	)
}

func invalidMetadataError(msg string) *types.Error {
	return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidMetadata, msg)
}
