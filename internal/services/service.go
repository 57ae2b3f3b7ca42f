package services

import (
	"context"
	"net/http"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vault"
)

// CallDispatcher issues deferred calls and runs their continuations.
type CallDispatcher interface {
	Begin(ctx context.Context, call calls.Call, continuation calls.Continuation) (calls.Handle, error)
	Pending() int
}

// VaultHost gives access to the vault instances living in this process.
type VaultHost interface {
	Vault(accountID string) (*vault.Vault, error)
	Vaults() []*vault.Vault
}

type Service struct {
	cfg        *config.Config
	db         db.DbInterface
	host       VaultHost
	dispatcher CallDispatcher
}

func NewService(
	cfg *config.Config,
	db db.DbInterface,
	host VaultHost,
	dispatcher CallDispatcher,
) *Service {
	return &Service{
		cfg:        cfg,
		db:         db,
		host:       host,
		dispatcher: dispatcher,
	}
}

// FactoryAccountID is the account vaults are created under.
func (s *Service) FactoryAccountID() string {
	return s.cfg.Factory.AccountID
}

// VaultAccountID maps a vault identifier to the account hosting it.
func (s *Service) VaultAccountID(identifier string) string {
	return vaultAccountID(identifier, s.cfg.Factory.AccountID)
}

// Healthcheck reports whether the registry database is reachable.
func (s *Service) Healthcheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return types.NewError(http.StatusServiceUnavailable, types.InternalServiceError, err)
	}
	return nil
}
