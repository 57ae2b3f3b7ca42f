package config

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

const (
	// yoctoNEAR per byte, the host default
	defaultStoragePricePerByte = "10000000000000000000"
	defaultExtraBytes          = 10_000
	// one storage budget entry keyed by a 64 characters account id
	defaultRegistrationBytes = 125
	defaultInitGas           = 50_000_000_000_000
	defaultTransferGas       = 10_000_000_000_000
)

type FactoryConfig struct {
	// AccountID is the account hosting the factory, vaults are created as its sub accounts
	AccountID string `mapstructure:"account-id"`
	// OwnerID may administer whitelists
	OwnerID string `mapstructure:"owner-id"`
	// StoragePricePerByte is a decimal string in the smallest native unit
	StoragePricePerByte string `mapstructure:"storage-price-per-byte"`
	// CodeSize is the byte size of the vault code installed into every new vault
	CodeSize          uint64 `mapstructure:"code-size"`
	ExtraBytes        uint64 `mapstructure:"extra-bytes"`
	RegistrationBytes uint64 `mapstructure:"registration-bytes"`
	InitGas           uint64 `mapstructure:"init-gas"`
	TransferGas       uint64 `mapstructure:"transfer-gas"`
}

func (cfg *FactoryConfig) Validate() error {
	if err := types.ValidateAccountID(cfg.AccountID); err != nil {
		return fmt.Errorf("invalid factory account-id: %w", err)
	}

	if err := types.ValidateAccountID(cfg.OwnerID); err != nil {
		return fmt.Errorf("invalid factory owner-id: %w", err)
	}

	if cfg.StoragePricePerByte == "" {
		cfg.StoragePricePerByte = defaultStoragePricePerByte
	}
	if _, err := sdkmath.ParseUint(cfg.StoragePricePerByte); err != nil {
		return fmt.Errorf("invalid factory storage-price-per-byte: %w", err)
	}

	if cfg.CodeSize == 0 {
		return fmt.Errorf("factory code-size must be positive")
	}

	if cfg.ExtraBytes == 0 {
		cfg.ExtraBytes = defaultExtraBytes
	}

	if cfg.RegistrationBytes == 0 {
		cfg.RegistrationBytes = defaultRegistrationBytes
	}

	if cfg.InitGas == 0 {
		cfg.InitGas = defaultInitGas
	}

	if cfg.TransferGas == 0 {
		cfg.TransferGas = defaultTransferGas
	}

	return nil
}

// PricePerByte returns the parsed storage price, Validate must have succeeded.
func (cfg *FactoryConfig) PricePerByte() sdkmath.Uint {
	return sdkmath.NewUintFromString(cfg.StoragePricePerByte)
}
