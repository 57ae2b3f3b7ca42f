package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/services"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

// WhitelistAssetCmd approves a backing token on behalf of the configured owner.
// Usage: ./price-vault-factory whitelist-asset wbtc.near --asset-id wbtc --name wbtc --symbol WBTC --decimals 8
func WhitelistAssetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist-asset [tokenID]",
		Short: "Whitelist a backing token",
		Args:  cobra.ExactArgs(1),
		RunE:  whitelistAsset,
	}

	cmd.Flags().String("asset-id", "", "Asset id the price feed reports the token under")
	cmd.Flags().String("name", "", "Token name used to derive vault identifiers")
	cmd.Flags().String("symbol", "", "Token symbol")
	cmd.Flags().Uint8("decimals", 0, "Token decimals")
	_ = cmd.MarkFlagRequired("asset-id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("decimals")

	return cmd
}

func whitelistAsset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	assetID, err := cmd.Flags().GetString("asset-id")
	if err != nil {
		return err
	}
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	symbol, err := cmd.Flags().GetString("symbol")
	if err != nil {
		return err
	}
	decimals, err := cmd.Flags().GetUint8("decimals")
	if err != nil {
		return err
	}

	srv, cfg, err := newAdminService(cmd)
	if err != nil {
		return err
	}

	req := services.WhitelistAssetRequest{
		TokenID: args[0],
		AssetID: assetID,
		Metadata: types.FungibleTokenMetadata{
			Name:     name,
			Symbol:   symbol,
			Decimals: decimals,
		},
	}
	if err := srv.WhitelistAsset(ctx, cfg.Factory.OwnerID, req); err != nil {
		return err
	}

	fmt.Printf("Token %q was whitelisted\n", req.TokenID)
	return nil
}

func WhitelistFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist-feed [accountID]",
		Short: "Whitelist a price feed",
		Args:  cobra.ExactArgs(1),
		RunE:  whitelistFeed,
	}

	return cmd
}

func whitelistFeed(cmd *cobra.Command, args []string) error {
	srv, cfg, err := newAdminService(cmd)
	if err != nil {
		return err
	}
	if err := srv.WhitelistFeed(cmd.Context(), cfg.Factory.OwnerID, args[0]); err != nil {
		return err
	}

	fmt.Printf("Price feed %q was whitelisted\n", args[0])
	return nil
}

// newAdminService builds a service backed only by the registry database.
func newAdminService(cmd *cobra.Command) (*services.Service, *config.Config, error) {
	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return nil, nil, err
	}

	dbClient, err := db.New(cmd.Context(), cfg.Db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return services.NewService(cfg, dbClient, nil, nil), cfg, nil
}
