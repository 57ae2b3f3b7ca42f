package cli

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

// DumpVaultCmd prints the registry record of a vault and, when the vault store
// is not held by a running server, its hosted state.
// Usage: ./price-vault-factory dump-vault wbtc-60000-0000 --config config.yml
func DumpVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump-vault [identifier]",
		Short: "Print the stored state of a vault",
		Args:  cobra.ExactArgs(1),
		RunE:  dumpVault,
	}

	cmd.Flags().Bool("skip-store", false, "Only print the registry record")

	return cmd
}

func dumpVault(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	identifier := args[0]

	skipStore, err := cmd.Flags().GetBool("skip-store")
	if err != nil {
		return err
	}

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	record, err := dbClient.GetVault(ctx, identifier)
	if err != nil {
		return err
	}
	printer := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	fmt.Println("Registry record:")
	printer.Dump(record)

	if skipStore {
		return nil
	}

	store, err := vaultstore.Open(&cfg.VaultStore)
	if err != nil {
		return fmt.Errorf("failed to open vault store (is the server running?): %w", err)
	}
	defer store.Close()

	hosted, err := store.LoadVault(record.AccountID)
	if err != nil {
		return err
	}
	fmt.Println("Hosted vault:")
	printer.Dump(hosted)
	return nil
}
