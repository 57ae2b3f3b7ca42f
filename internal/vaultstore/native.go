package vaultstore

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	bolt "go.etcd.io/bbolt"
)

// NativeBalance returns the native balance of any account known to the store.
func (s *Store) NativeBalance(account string) (sdkmath.Uint, error) {
	balance := sdkmath.ZeroUint()
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		balance, _, err = getAmount(tx.Bucket([]byte(nativeBucket)), []byte(account))
		return err
	})
	return balance, err
}

// CreditNative mints native balance to account. It is the entry point for
// value attached from outside the store.
func (s *Store) CreditNative(account string, amount sdkmath.Uint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(nativeBucket))
		balance, _, err := getAmount(b, []byte(account))
		if err != nil {
			return err
		}
		return putAmount(b, []byte(account), balance.Add(amount))
	})
}

// TransferNative moves native balance between two accounts.
func (s *Store) TransferNative(from, to string, amount sdkmath.Uint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return transfer(tx.Bucket([]byte(nativeBucket)), from, to, amount)
	})
}

func transfer(b *bolt.Bucket, from, to string, amount sdkmath.Uint) error {
	fromBalance, _, err := getAmount(b, []byte(from))
	if err != nil {
		return err
	}
	if fromBalance.LT(amount) {
		return fmt.Errorf("%w: %s has %s, requested %s", ErrInsufficientBalance, from, fromBalance, amount)
	}
	if err := putAmount(b, []byte(from), fromBalance.Sub(amount)); err != nil {
		return err
	}
	toBalance, _, err := getAmount(b, []byte(to))
	if err != nil {
		return err
	}
	return putAmount(b, []byte(to), toBalance.Add(amount))
}
