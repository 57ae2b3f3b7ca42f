package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/services"
)

// MigrateWhitelistCmd rewrites whitelist entries stored with the legacy title
// and decimals fields into the current metadata layout. Running it twice is a
// no-op. Usage: ./price-vault-factory migrate-whitelist --config config.yml
func MigrateWhitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate-whitelist",
		Short: "Migrate legacy whitelist entries to the current schema",
		Args:  cobra.ExactArgs(0),
		Run:   migrateWhitelist,
	}

	return cmd
}

func migrateWhitelist(cmd *cobra.Command, args []string) {
	err := migrateWhitelistE(cmd, args)
	if err != nil {
		log.Err(err).Msg("Failed to migrate whitelist")
		os.Exit(1)
	}

	os.Exit(0)
}

func migrateWhitelistE(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	srv := services.NewService(cfg, dbClient, nil, nil)
	migrated, err := srv.MigrateWhitelist(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Migrated %d whitelist entries\n", migrated)
	return nil
}
