package vaultstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

const (
	vaultsBucket = "vaults"
	nativeBucket = "native"
	assetsBucket = "assets"
	callsBucket  = "calls"

	balancesBucket  = "balances"
	transfersBucket = "transfers"

	codeSizeKey    = "code_size"
	configKey      = "config"
	statusKey      = "status"
	totalSupplyKey = "total_supply"
)

var (
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAlreadyInitialized  = errors.New("vault already initialized")
	ErrNotInitialized      = errors.New("vault not initialized")
	ErrCodeNotInstalled    = errors.New("code not installed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotRegistered       = errors.New("holder not registered")
	ErrNonZeroBalance      = errors.New("holder balance is not zero")
)

// VaultRecord is the persisted state/config record of a hosted vault.
type VaultRecord struct {
	AccountID string
	CodeSize  uint64
	Config    types.VaultConfig
	Status    types.VaultStatus
}

// Store keeps every vault instance hosted by this process, native balances of
// all accounts it knows, and the external asset ledgers used in loopback mode.
type Store struct {
	db *bolt.DB
}

func Open(cfg *config.VaultStoreConfig) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault store directory: %w", err)
	}

	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{Timeout: cfg.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open vault store %s: %w", cfg.Path, err)
	}

	s := &Store{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vault store: %w", err)
	}

	log.Info().Str("path", cfg.Path).Msg("vault store opened")
	return s, nil
}

func (s *Store) initDB() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{vaultsBucket, nativeBucket, assetsBucket, callsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAccount creates an empty vault account.
func (s *Store) CreateAccount(account string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vaults := tx.Bucket([]byte(vaultsBucket))
		if vaults.Bucket([]byte(account)) != nil {
			return fmt.Errorf("%w: %s", ErrAccountExists, account)
		}
		b, err := vaults.CreateBucket([]byte(account))
		if err != nil {
			return err
		}
		if _, err := b.CreateBucket([]byte(balancesBucket)); err != nil {
			return err
		}
		_, err = b.CreateBucket([]byte(transfersBucket))
		return err
	})
}

func (s *Store) AccountExists(account string) (bool, error) {
	exists := false
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(vaultsBucket)).Bucket([]byte(account)) != nil
		return nil
	})
	return exists, err
}

// InstallCode records the code footprint deployed to account.
func (s *Store) InstallCode(account string, size uint64) error {
	return s.updateVault(account, func(b *bolt.Bucket) error {
		return b.Put([]byte(codeSizeKey), encodeUint64(size))
	})
}

// InitVault stores the immutable config and the initial status. A vault is
// initialized at most once.
func (s *Store) InitVault(account string, cfg types.VaultConfig, status types.VaultStatus) error {
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode vault config: %w", err)
	}
	statusBytes, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode vault status: %w", err)
	}

	return s.updateVault(account, func(b *bolt.Bucket) error {
		if b.Get([]byte(codeSizeKey)) == nil {
			return fmt.Errorf("%w: %s", ErrCodeNotInstalled, account)
		}
		if b.Get([]byte(configKey)) != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyInitialized, account)
		}
		if err := b.Put([]byte(configKey), cfgBytes); err != nil {
			return err
		}
		if err := b.Put([]byte(totalSupplyKey), []byte(sdkmath.ZeroUint().String())); err != nil {
			return err
		}
		return b.Put([]byte(statusKey), statusBytes)
	})
}

func (s *Store) LoadVault(account string) (*VaultRecord, error) {
	var record *VaultRecord
	err := s.viewVault(account, func(b *bolt.Bucket) error {
		var err error
		record, err = decodeVault(account, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListVaults returns every initialized vault in account id order.
func (s *Store) ListVaults() ([]*VaultRecord, error) {
	var records []*VaultRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		vaults := tx.Bucket([]byte(vaultsBucket))
		return vaults.ForEachBucket(func(k []byte) error {
			b := vaults.Bucket(k)
			if b.Get([]byte(configKey)) == nil {
				return nil
			}
			record, err := decodeVault(string(k), b)
			if err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	})
	return records, err
}

func (s *Store) SaveStatus(account string, status types.VaultStatus) error {
	statusBytes, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode vault status: %w", err)
	}
	return s.updateVault(account, func(b *bolt.Bucket) error {
		if b.Get([]byte(configKey)) == nil {
			return fmt.Errorf("%w: %s", ErrNotInitialized, account)
		}
		return b.Put([]byte(statusKey), statusBytes)
	})
}

func decodeVault(account string, b *bolt.Bucket) (*VaultRecord, error) {
	cfgBytes := b.Get([]byte(configKey))
	if cfgBytes == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, account)
	}
	record := &VaultRecord{AccountID: account}
	if v := b.Get([]byte(codeSizeKey)); v != nil {
		record.CodeSize = decodeUint64(v)
	}
	if err := json.Unmarshal(cfgBytes, &record.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config of %s: %w", account, err)
	}
	if err := json.Unmarshal(b.Get([]byte(statusKey)), &record.Status); err != nil {
		return nil, fmt.Errorf("failed to decode status of %s: %w", account, err)
	}
	return record, nil
}

func (s *Store) updateVault(account string, f func(b *bolt.Bucket) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(vaultsBucket)).Bucket([]byte(account))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		return f(b)
	})
}

func (s *Store) viewVault(account string, f func(b *bolt.Bucket) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(vaultsBucket)).Bucket([]byte(account))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		return f(b)
	})
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func getAmount(b *bolt.Bucket, key []byte) (sdkmath.Uint, bool, error) {
	v := b.Get(key)
	if v == nil {
		return sdkmath.ZeroUint(), false, nil
	}
	amount, err := sdkmath.ParseUint(string(v))
	if err != nil {
		return sdkmath.ZeroUint(), true, fmt.Errorf("corrupted amount under %q: %w", key, err)
	}
	return amount, true, nil
}

func putAmount(b *bolt.Bucket, key []byte, amount sdkmath.Uint) error {
	if !types.FitsUint128(amount) {
		return fmt.Errorf("amount %s overflows 128 bits", amount)
	}
	return b.Put(key, []byte(amount.String()))
}
