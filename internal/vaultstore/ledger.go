package vaultstore

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	bolt "go.etcd.io/bbolt"
)

// Ledger is the fungible balance ledger of one vault. Holders are registered
// on first deposit; a registered holder may carry a zero balance until it is
// unregistered.
type Ledger struct {
	store             *Store
	account           string
	minStorageDeposit sdkmath.Uint
}

func (s *Store) Ledger(account string, minStorageDeposit sdkmath.Uint) *Ledger {
	return &Ledger{store: s, account: account, minStorageDeposit: minStorageDeposit}
}

func (l *Ledger) MinStorageDeposit() sdkmath.Uint {
	return l.minStorageDeposit
}

func (l *Ledger) Deposit(holder string, amount sdkmath.Uint) error {
	return l.store.updateVault(l.account, func(b *bolt.Bucket) error {
		return credit(b, holder, amount)
	})
}

func credit(b *bolt.Bucket, holder string, amount sdkmath.Uint) error {
	balances := b.Bucket([]byte(balancesBucket))
	balance, _, err := getAmount(balances, []byte(holder))
	if err != nil {
		return err
	}
	supply, _, err := getAmount(b, []byte(totalSupplyKey))
	if err != nil {
		return err
	}
	if err := putAmount(balances, []byte(holder), balance.Add(amount)); err != nil {
		return err
	}
	return putAmount(b, []byte(totalSupplyKey), supply.Add(amount))
}

func debit(b *bolt.Bucket, holder string, amount sdkmath.Uint) error {
	balances := b.Bucket([]byte(balancesBucket))
	balance, registered, err := getAmount(balances, []byte(holder))
	if err != nil {
		return err
	}
	if !registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, holder)
	}
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s has %s, requested %s", ErrInsufficientBalance, holder, balance, amount)
	}
	supply, _, err := getAmount(b, []byte(totalSupplyKey))
	if err != nil {
		return err
	}
	if err := putAmount(balances, []byte(holder), balance.Sub(amount)); err != nil {
		return err
	}
	return putAmount(b, []byte(totalSupplyKey), supply.Sub(amount))
}

func (l *Ledger) Balance(holder string) (sdkmath.Uint, error) {
	balance := sdkmath.ZeroUint()
	err := l.store.viewVault(l.account, func(b *bolt.Bucket) error {
		var err error
		balance, _, err = getAmount(b.Bucket([]byte(balancesBucket)), []byte(holder))
		return err
	})
	return balance, err
}

func (l *Ledger) IsRegistered(holder string) (bool, error) {
	registered := false
	err := l.store.viewVault(l.account, func(b *bolt.Bucket) error {
		registered = b.Bucket([]byte(balancesBucket)).Get([]byte(holder)) != nil
		return nil
	})
	return registered, err
}

// StorageRegister registers holder with a zero balance. A registered holder
// is left unchanged.
func (l *Ledger) StorageRegister(holder string) error {
	return l.store.updateVault(l.account, func(b *bolt.Bucket) error {
		balances := b.Bucket([]byte(balancesBucket))
		if balances.Get([]byte(holder)) != nil {
			return nil
		}
		return putAmount(balances, []byte(holder), sdkmath.ZeroUint())
	})
}

// StorageUnregister removes a holder with a zero balance.
func (l *Ledger) StorageUnregister(holder string) error {
	return l.store.updateVault(l.account, func(b *bolt.Bucket) error {
		balances := b.Bucket([]byte(balancesBucket))
		balance, registered, err := getAmount(balances, []byte(holder))
		if err != nil {
			return err
		}
		if !registered {
			return fmt.Errorf("%w: %s", ErrNotRegistered, holder)
		}
		if !balance.IsZero() {
			return fmt.Errorf("%w: %s has %s", ErrNonZeroBalance, holder, balance)
		}
		return balances.Delete([]byte(holder))
	})
}

func (l *Ledger) TotalSupply() (sdkmath.Uint, error) {
	supply := sdkmath.ZeroUint()
	err := l.store.viewVault(l.account, func(b *bolt.Bucket) error {
		var err error
		supply, _, err = getAmount(b, []byte(totalSupplyKey))
		return err
	})
	return supply, err
}

// Holders returns every registered holder with its balance.
func (l *Ledger) Holders() (map[string]sdkmath.Uint, error) {
	holders := make(map[string]sdkmath.Uint)
	err := l.store.viewVault(l.account, func(b *bolt.Bucket) error {
		return b.Bucket([]byte(balancesBucket)).ForEach(func(k, v []byte) error {
			amount, err := sdkmath.ParseUint(string(v))
			if err != nil {
				return fmt.Errorf("corrupted balance of %s: %w", k, err)
			}
			holders[string(k)] = amount
			return nil
		})
	})
	return holders, err
}
