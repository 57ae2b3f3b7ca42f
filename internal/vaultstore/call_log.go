package vaultstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
)

// callEntry is a call applied by this host. Result stays nil until the call
// finished.
type callEntry struct {
	StartedAt int64         `json:"started_at"`
	Result    *calls.Result `json:"result,omitempty"`
}

var _ calls.CallLog = (*Store)(nil)

func (s *Store) StartCall(id uuid.UUID) (*calls.Result, error) {
	var stored *calls.Result
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(callsBucket))
		key := []byte(id.String())
		if v := b.Get(key); v != nil {
			var entry callEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupted call entry %s: %w", id, err)
			}
			if entry.Result == nil {
				return fmt.Errorf("%w: %s", calls.ErrCallUnresolved, id)
			}
			stored = entry.Result
			return nil
		}
		return putCallEntry(b, key, callEntry{StartedAt: time.Now().UnixMilli()})
	})
	return stored, err
}

func (s *Store) FinishCall(result calls.Result) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(callsBucket))
		key := []byte(result.CallID.String())
		entry := callEntry{StartedAt: time.Now().UnixMilli()}
		if v := b.Get(key); v != nil {
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupted call entry %s: %w", result.CallID, err)
			}
		}
		entry.Result = &result
		return putCallEntry(b, key, entry)
	})
}

func putCallEntry(b *bolt.Bucket, key []byte, entry callEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode call entry: %w", err)
	}
	return b.Put(key, payload)
}
