package model

import sdkmath "cosmossdk.io/math"

// StorageBudgetDocument is the prepaid storage balance of a caller. Balance is
// a decimal string, Version guards every update.
type StorageBudgetDocument struct {
	AccountID    string `bson:"_id"`
	Balance      string `bson:"balance"`
	Version      int64  `bson:"version"`
	UpdatedAt    int64  `bson:"updated_at"`
	RegisteredAt int64  `bson:"registered_at"`
}

func (d *StorageBudgetDocument) Amount() (sdkmath.Uint, error) {
	return sdkmath.ParseUint(d.Balance)
}

// StorageCharge is applied to a budget in one update: Attached is credited
// first, paying RegistrationCost if the account has no budget yet, then Amount
// is deducted. Every amount must be set, zero included.
type StorageCharge struct {
	Attached         sdkmath.Uint
	RegistrationCost sdkmath.Uint
	Amount           sdkmath.Uint
}

// RegisteredBy reports whether charged, the budget returned by the charge,
// was created by it.
func (c StorageCharge) RegisteredBy(charged *StorageBudgetDocument) bool {
	return charged != nil && charged.Version == 1 && !c.Attached.IsZero()
}
