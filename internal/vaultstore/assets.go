package vaultstore

import (
	sdkmath "cosmossdk.io/math"
	bolt "go.etcd.io/bbolt"
)

// AssetLedger is the balance ledger of an external fungible token, used when
// backing assets are hosted in-process.
type AssetLedger struct {
	store *Store
	token string
}

func (s *Store) Asset(token string) *AssetLedger {
	return &AssetLedger{store: s, token: token}
}

func (a *AssetLedger) Mint(holder string, amount sdkmath.Uint) error {
	return a.update(func(b *bolt.Bucket) error {
		balance, _, err := getAmount(b, []byte(holder))
		if err != nil {
			return err
		}
		return putAmount(b, []byte(holder), balance.Add(amount))
	})
}

func (a *AssetLedger) Transfer(from, to string, amount sdkmath.Uint) error {
	return a.update(func(b *bolt.Bucket) error {
		return transfer(b, from, to, amount)
	})
}

func (a *AssetLedger) Balance(holder string) (sdkmath.Uint, error) {
	balance := sdkmath.ZeroUint()
	err := a.store.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(assetsBucket)).Bucket([]byte(a.token))
		if b == nil {
			return nil
		}
		var err error
		balance, _, err = getAmount(b, []byte(holder))
		return err
	})
	return balance, err
}

func (a *AssetLedger) update(f func(b *bolt.Bucket) error) error {
	return a.store.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(assetsBucket)).CreateBucketIfNotExists([]byte(a.token))
		if err != nil {
			return err
		}
		return f(b)
	})
}
