package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

// MemDB is an in-memory db.DbInterface with the error semantics of the
// mongo implementation.
type MemDB struct {
	mu        sync.Mutex
	vaults    map[string]*model.VaultRecordDocument
	budgets   map[string]*model.StorageBudgetDocument
	whitelist map[string]*model.WhitelistDocument
	// HideVaults makes GetVault miss, as if a concurrent creation raced the lookup
	HideVaults bool
}

var _ db.DbInterface = (*MemDB)(nil)

func NewMemDB() *MemDB {
	return &MemDB{
		vaults:    make(map[string]*model.VaultRecordDocument),
		budgets:   make(map[string]*model.StorageBudgetDocument),
		whitelist: make(map[string]*model.WhitelistDocument),
	}
}

func (m *MemDB) Ping(ctx context.Context) error {
	return nil
}

func (m *MemDB) SaveNewVault(ctx context.Context, record *model.VaultRecordDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vaults[record.Identifier]; ok {
		return &db.DuplicateKeyError{Key: record.Identifier, Message: "vault already exists"}
	}
	copied := *record
	m.vaults[record.Identifier] = &copied
	return nil
}

func (m *MemDB) GetVault(ctx context.Context, identifier string) (*model.VaultRecordDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.vaults[identifier]
	if !ok || m.HideVaults {
		return nil, &db.NotFoundError{Key: identifier, Message: "vault not found"}
	}
	copied := *record
	return &copied, nil
}

func (m *MemDB) ListVaults(ctx context.Context, offset, limit int64) ([]*model.VaultRecordDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]*model.VaultRecordDocument, 0, len(m.vaults))
	for _, record := range m.vaults {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].Identifier < records[j].Identifier
	})
	return page(records, offset, limit), nil
}

func (m *MemDB) CountVaults(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.vaults)), nil
}

func (m *MemDB) GetStorageBudget(ctx context.Context, accountID string) (*model.StorageBudgetDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.budgets[accountID]
	if !ok {
		return nil, &db.NotFoundError{Key: accountID, Message: "storage budget not found"}
	}
	copied := *doc
	return &copied, nil
}

func (m *MemDB) DepositStorageBudget(
	ctx context.Context, accountID string, amount, registrationCost sdkmath.Uint,
) (*model.StorageBudgetDocument, error) {
	return m.ChargeStorageBudget(ctx, accountID, model.StorageCharge{
		Attached:         amount,
		RegistrationCost: registrationCost,
		Amount:           sdkmath.ZeroUint(),
	})
}

func (m *MemDB) ChargeStorageBudget(
	ctx context.Context, accountID string, charge model.StorageCharge,
) (*model.StorageBudgetDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.budgets[accountID]
	balance, err := db.ChargedBalance(accountID, doc, charge)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		now := time.Now().UnixMilli()
		doc = &model.StorageBudgetDocument{
			AccountID:    accountID,
			Balance:      balance.String(),
			Version:      1,
			UpdatedAt:    now,
			RegisteredAt: now,
		}
		m.budgets[accountID] = doc
		copied := *doc
		return &copied, nil
	}
	return m.setBalance(doc, balance)
}

func (m *MemDB) ReverseStorageCharge(
	ctx context.Context, accountID string, charged *model.StorageBudgetDocument, charge model.StorageCharge,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.budgets[accountID]
	registered := charge.RegisteredBy(charged)
	if registered && doc != nil && doc.Version == charged.Version {
		delete(m.budgets, accountID)
		return nil
	}
	balance, err := db.ReversedBalance(accountID, doc, charge, registered)
	if err != nil {
		return err
	}
	_, err = m.setBalance(doc, balance)
	return err
}

func (m *MemDB) setBalance(doc *model.StorageBudgetDocument, balance sdkmath.Uint) (*model.StorageBudgetDocument, error) {
	doc.Balance = balance.String()
	doc.Version++
	doc.UpdatedAt = time.Now().UnixMilli()
	copied := *doc
	return &copied, nil
}

func (m *MemDB) SaveWhitelistedAsset(ctx context.Context, tokenID, assetID string, meta types.FungibleTokenMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := model.NewWhitelistedAsset(tokenID, assetID, meta, time.Now().UnixMilli())
	m.whitelist[doc.ID] = doc
	return nil
}

func (m *MemDB) SaveWhitelistedFeed(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := model.NewWhitelistedFeed(accountID, time.Now().UnixMilli())
	m.whitelist[doc.ID] = doc
	return nil
}

func (m *MemDB) GetWhitelistedAsset(ctx context.Context, tokenID string) (*model.WhitelistDocument, error) {
	return m.getWhitelisted(model.WhitelistKindAsset, tokenID)
}

func (m *MemDB) GetWhitelistedFeed(ctx context.Context, accountID string) (*model.WhitelistDocument, error) {
	return m.getWhitelisted(model.WhitelistKindFeed, accountID)
}

func (m *MemDB) getWhitelisted(kind model.WhitelistKind, accountID string) (*model.WhitelistDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := model.WhitelistID(kind, accountID)
	doc, ok := m.whitelist[id]
	if !ok {
		return nil, &db.NotFoundError{Key: id, Message: "not whitelisted"}
	}
	copied := *doc
	return &copied, nil
}

func (m *MemDB) DeleteWhitelisted(ctx context.Context, kind model.WhitelistKind, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := model.WhitelistID(kind, accountID)
	if _, ok := m.whitelist[id]; !ok {
		return &db.NotFoundError{Key: id, Message: "not whitelisted"}
	}
	delete(m.whitelist, id)
	return nil
}

func (m *MemDB) ListWhitelisted(
	ctx context.Context, kind model.WhitelistKind, offset, limit int64,
) ([]*model.WhitelistDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []*model.WhitelistDocument
	for _, doc := range m.whitelist {
		if doc.Kind == kind {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].AccountID < docs[j].AccountID
	})
	return page(docs, offset, limit), nil
}

func (m *MemDB) MigrateWhitelistV0ToV1(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	migrated := 0
	for _, doc := range m.whitelist {
		if doc.Kind != model.WhitelistKindAsset || doc.SchemaVersion != model.WhitelistSchemaV0 {
			continue
		}
		meta := doc.MigratedMetadata()
		doc.Metadata = &meta
		doc.Title = ""
		doc.Decimals = nil
		doc.SchemaVersion = model.WhitelistSchemaV1
		migrated++
	}
	return migrated, nil
}

// PutWhitelistDocument stores doc as is, e.g. an entry still on an older
// schema version.
func (m *MemDB) PutWhitelistDocument(doc *model.WhitelistDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.whitelist[doc.ID] = &copied
}

// HasStorageBudget reports whether accountID is registered.
func (m *MemDB) HasStorageBudget(accountID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.budgets[accountID]
	return ok
}

// Budget returns the balance of accountID, zero when unregistered.
func (m *MemDB) Budget(accountID string) sdkmath.Uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.budgets[accountID]
	if !ok {
		return sdkmath.ZeroUint()
	}
	return mustAmount(doc)
}

func page[T any](items []T, offset, limit int64) []T {
	if offset >= int64(len(items)) {
		return nil
	}
	end := int64(len(items))
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func mustAmount(doc *model.StorageBudgetDocument) sdkmath.Uint {
	amount, err := doc.Amount()
	if err != nil {
		panic(err)
	}
	return amount
}
