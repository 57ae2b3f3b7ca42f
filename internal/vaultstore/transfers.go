package vaultstore

import (
	"encoding/json"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var ErrTransferNotPending = errors.New("transfer is not pending")

// PendingTransfer is an outbound transfer whose amount was already debited
// from a holder and whose result has not been applied yet.
type PendingTransfer struct {
	CallID uuid.UUID    `json:"call_id"`
	Holder string       `json:"holder"`
	Amount sdkmath.Uint `json:"amount"`
}

// Journal tracks the pending transfers of one vault so that they can be
// resumed after a restart. Every transfer is recorded by the update that
// debits its holder and removed by the update that settles it.
type Journal struct {
	store   *Store
	account string
}

func (s *Store) Journal(account string) *Journal {
	return &Journal{store: s, account: account}
}

// Debit withdraws t.Amount from t.Holder and records t as pending.
func (j *Journal) Debit(t PendingTransfer) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode pending transfer: %w", err)
	}
	return j.store.updateVault(j.account, func(b *bolt.Bucket) error {
		transfers := b.Bucket([]byte(transfersBucket))
		if transfers.Get([]byte(t.CallID.String())) != nil {
			return fmt.Errorf("transfer %s is already pending", t.CallID)
		}
		if err := debit(b, t.Holder, t.Amount); err != nil {
			return err
		}
		return transfers.Put([]byte(t.CallID.String()), payload)
	})
}

// Recredit gives the pending transfer callID back to its holder.
func (j *Journal) Recredit(callID uuid.UUID) error {
	return j.store.updateVault(j.account, func(b *bolt.Bucket) error {
		t, err := pendingTransfer(b, callID)
		if err != nil {
			return err
		}
		if err := credit(b, t.Holder, t.Amount); err != nil {
			return err
		}
		return b.Bucket([]byte(transfersBucket)).Delete([]byte(callID.String()))
	})
}

// Settle forgets the pending transfer callID once it reached its receiver.
func (j *Journal) Settle(callID uuid.UUID) error {
	return j.store.updateVault(j.account, func(b *bolt.Bucket) error {
		if _, err := pendingTransfer(b, callID); err != nil {
			return err
		}
		return b.Bucket([]byte(transfersBucket)).Delete([]byte(callID.String()))
	})
}

func (j *Journal) Pending() ([]PendingTransfer, error) {
	var pending []PendingTransfer
	err := j.store.viewVault(j.account, func(b *bolt.Bucket) error {
		return b.Bucket([]byte(transfersBucket)).ForEach(func(k, v []byte) error {
			var t PendingTransfer
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("corrupted pending transfer %s: %w", k, err)
			}
			pending = append(pending, t)
			return nil
		})
	})
	return pending, err
}

func pendingTransfer(b *bolt.Bucket, callID uuid.UUID) (*PendingTransfer, error) {
	v := b.Bucket([]byte(transfersBucket)).Get([]byte(callID.String()))
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotPending, callID)
	}
	var t PendingTransfer
	if err := json.Unmarshal(v, &t); err != nil {
		return nil, fmt.Errorf("corrupted pending transfer %s: %w", callID, err)
	}
	return &t, nil
}
