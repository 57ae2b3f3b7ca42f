package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

func (s *Service) whitelistedAsset(ctx context.Context, tokenID string) (*model.WhitelistDocument, error) {
	doc, err := s.db.GetWhitelistedAsset(ctx, tokenID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(
				http.StatusBadRequest, types.NotWhitelisted,
				fmt.Sprintf("token %s is not whitelisted", tokenID),
			)
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to read whitelisted token %s: %w", tokenID, err))
	}
	return doc, nil
}

func (s *Service) whitelistedFeed(ctx context.Context, accountID string) (*model.WhitelistDocument, error) {
	doc, err := s.db.GetWhitelistedFeed(ctx, accountID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(
				http.StatusBadRequest, types.FeedNotWhitelisted,
				fmt.Sprintf("price feed %s is not whitelisted", accountID),
			)
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to read whitelisted feed %s: %w", accountID, err))
	}
	return doc, nil
}

func (s *Service) requireOwner(caller string) error {
	if caller != s.cfg.Factory.OwnerID {
		return types.NewErrorWithMsg(
			http.StatusForbidden, types.Unauthorized,
			fmt.Sprintf("%s is not the factory owner", caller),
		)
	}
	return nil
}

type WhitelistAssetRequest struct {
	TokenID  string                      `json:"token_id"`
	AssetID  string                      `json:"asset_id"`
	Metadata types.FungibleTokenMetadata `json:"metadata"`
}

func (r *WhitelistAssetRequest) Validate() error {
	if err := types.ValidateAccountID(r.TokenID); err != nil {
		return err
	}
	if r.AssetID == "" {
		return fmt.Errorf("asset_id is required")
	}
	if r.Metadata.Name == "" || !types.IsValidSymbol(r.Metadata.Name) {
		return fmt.Errorf("whitelisted name %q must only contain [a-z0-9_-]", r.Metadata.Name)
	}
	if r.Metadata.Decimals == 0 {
		return fmt.Errorf("decimals must be positive")
	}
	return nil
}

// WhitelistAsset approves a backing token. Only the factory owner may call it.
func (s *Service) WhitelistAsset(ctx context.Context, caller string, req WhitelistAssetRequest) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return types.NewValidationFailedError(err)
	}

	meta := req.Metadata
	meta.Spec = types.FTMetadataSpec
	if err := s.db.SaveWhitelistedAsset(ctx, req.TokenID, req.AssetID, meta); err != nil {
		return types.NewInternalServiceError(fmt.Errorf("failed to whitelist token %s: %w", req.TokenID, err))
	}

	log.Ctx(ctx).Info().
		Str("token", req.TokenID).
		Str("asset", req.AssetID).
		Str("name", meta.Name).
		Uint8("decimals", meta.Decimals).
		Msg("token whitelisted")
	return nil
}

// WhitelistFeed approves a price feed. Only the factory owner may call it.
func (s *Service) WhitelistFeed(ctx context.Context, caller, feedID string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := types.ValidateAccountID(feedID); err != nil {
		return types.NewValidationFailedError(err)
	}
	if err := s.db.SaveWhitelistedFeed(ctx, feedID); err != nil {
		return types.NewInternalServiceError(fmt.Errorf("failed to whitelist feed %s: %w", feedID, err))
	}

	log.Ctx(ctx).Info().Str("feed", feedID).Msg("price feed whitelisted")
	return nil
}

func (s *Service) RemoveWhitelisted(ctx context.Context, caller string, kind model.WhitelistKind, accountID string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := s.db.DeleteWhitelisted(ctx, kind, accountID); err != nil {
		if db.IsNotFoundError(err) {
			return types.NewError(http.StatusNotFound, types.NotFound, err)
		}
		return types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().Stringer("kind", kind).Str("account", accountID).Msg("whitelist entry removed")
	return nil
}

type WhitelistedAsset struct {
	TokenID  string                       `json:"token_id"`
	AssetID  string                       `json:"asset_id"`
	Metadata *types.FungibleTokenMetadata `json:"metadata,omitempty"`
	Schema   int                          `json:"schema_version"`
}

func (s *Service) ListWhitelistedAssets(ctx context.Context, offset, limit int64) ([]WhitelistedAsset, error) {
	docs, err := s.db.ListWhitelisted(ctx, model.WhitelistKindAsset, offset, limit)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to list whitelisted tokens: %w", err))
	}
	assets := make([]WhitelistedAsset, 0, len(docs))
	for _, doc := range docs {
		assets = append(assets, WhitelistedAsset{
			TokenID:  doc.AccountID,
			AssetID:  doc.AssetID,
			Metadata: doc.Metadata,
			Schema:   doc.SchemaVersion,
		})
	}
	return assets, nil
}

func (s *Service) ListWhitelistedFeeds(ctx context.Context, offset, limit int64) ([]string, error) {
	docs, err := s.db.ListWhitelisted(ctx, model.WhitelistKindFeed, offset, limit)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to list whitelisted feeds: %w", err))
	}
	feeds := make([]string, 0, len(docs))
	for _, doc := range docs {
		feeds = append(feeds, doc.AccountID)
	}
	return feeds, nil
}

// MigrateWhitelist rewrites legacy whitelist entries to the current schema.
func (s *Service) MigrateWhitelist(ctx context.Context) (int, error) {
	migrated, err := s.db.MigrateWhitelistV0ToV1(ctx)
	if err != nil {
		return migrated, fmt.Errorf("failed to migrate whitelist: %w", err)
	}
	log.Ctx(ctx).Info().Int("migrated", migrated).Msg("whitelist migration finished")
	return migrated, nil
}
