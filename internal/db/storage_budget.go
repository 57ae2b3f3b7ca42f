package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
)

const (
	budgetUpdateAttempts = 10
	budgetUpdateDelay    = 10 * time.Millisecond
)

func (db *Database) GetStorageBudget(ctx context.Context, accountID string) (*model.StorageBudgetDocument, error) {
	res := db.collection(model.StorageBudgetsCollection).FindOne(ctx, bson.M{"_id": accountID})

	var doc model.StorageBudgetDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     accountID,
				Message: "storage budget not found",
			}
		}
		return nil, err
	}
	return &doc, nil
}

// DepositStorageBudget adds amount to the budget of accountID. The first
// deposit of an account pays registrationCost out of amount.
func (db *Database) DepositStorageBudget(
	ctx context.Context, accountID string, amount, registrationCost sdkmath.Uint,
) (*model.StorageBudgetDocument, error) {
	charge := model.StorageCharge{Attached: amount, RegistrationCost: registrationCost, Amount: sdkmath.ZeroUint()}
	return db.updateBudget(ctx, accountID, func(doc *model.StorageBudgetDocument) (sdkmath.Uint, error) {
		return ChargedBalance(accountID, doc, charge)
	})
}

// ChargeStorageBudget applies charge in a single update. It fails without any
// change if the budget, attached deposit included, is lower than the charged
// amount.
func (db *Database) ChargeStorageBudget(
	ctx context.Context, accountID string, charge model.StorageCharge,
) (*model.StorageBudgetDocument, error) {
	return db.updateBudget(ctx, accountID, func(doc *model.StorageBudgetDocument) (sdkmath.Uint, error) {
		return ChargedBalance(accountID, doc, charge)
	})
}

// ReverseStorageCharge undoes a charge whose resulting budget was charged. A
// budget registered by the charge and not updated since is removed.
func (db *Database) ReverseStorageCharge(
	ctx context.Context, accountID string, charged *model.StorageBudgetDocument, charge model.StorageCharge,
) error {
	registered := charge.RegisteredBy(charged)
	if registered {
		res, err := db.collection(model.StorageBudgetsCollection).DeleteOne(
			ctx, bson.M{"_id": accountID, "version": charged.Version},
		)
		if err != nil {
			return err
		}
		if res.DeletedCount == 1 {
			return nil
		}
	}
	_, err := db.updateBudget(ctx, accountID, func(doc *model.StorageBudgetDocument) (sdkmath.Uint, error) {
		return ReversedBalance(accountID, doc, charge, registered)
	})
	return err
}

// ChargedBalance is the budget left once charge is applied to doc. A nil doc
// is an unregistered account.
func ChargedBalance(accountID string, doc *model.StorageBudgetDocument, charge model.StorageCharge) (sdkmath.Uint, error) {
	var balance sdkmath.Uint
	if doc == nil {
		if charge.Attached.IsZero() {
			return sdkmath.Uint{}, &InsufficientBudgetError{
				Key:     accountID,
				Message: fmt.Sprintf("%s has no storage budget", accountID),
			}
		}
		if charge.Attached.LT(charge.RegistrationCost) {
			return sdkmath.Uint{}, &InsufficientBudgetError{
				Key: accountID,
				Message: fmt.Sprintf("deposit %s does not cover the registration cost %s",
					charge.Attached, charge.RegistrationCost),
			}
		}
		balance = charge.Attached.Sub(charge.RegistrationCost)
	} else {
		current, err := doc.Amount()
		if err != nil {
			return sdkmath.Uint{}, err
		}
		balance = current.Add(charge.Attached)
	}

	if balance.LT(charge.Amount) {
		return sdkmath.Uint{}, &InsufficientBudgetError{
			Key:     accountID,
			Message: fmt.Sprintf("storage budget %s is lower than required %s", balance, charge.Amount),
		}
	}
	return balance.Sub(charge.Amount), nil
}

// ReversedBalance is the budget of doc with charge given back and its
// attached deposit taken out again.
func ReversedBalance(
	accountID string, doc *model.StorageBudgetDocument, charge model.StorageCharge, registered bool,
) (sdkmath.Uint, error) {
	if doc == nil {
		return sdkmath.Uint{}, &NotFoundError{
			Key:     accountID,
			Message: "storage budget not found",
		}
	}
	current, err := doc.Amount()
	if err != nil {
		return sdkmath.Uint{}, err
	}
	credited := charge.Attached
	if registered {
		credited = credited.Sub(charge.RegistrationCost)
	}
	restored := current.Add(charge.Amount)
	if restored.LT(credited) {
		return sdkmath.Uint{}, &InsufficientBudgetError{
			Key:     accountID,
			Message: fmt.Sprintf("storage budget %s was spent below the attached deposit %s", restored, credited),
		}
	}
	return restored.Sub(credited), nil
}

type budgetTransition func(doc *model.StorageBudgetDocument) (sdkmath.Uint, error)

// updateBudget applies next with optimistic concurrency: the document is
// written only if its version did not change since it was read.
func (db *Database) updateBudget(
	ctx context.Context, accountID string, next budgetTransition,
) (*model.StorageBudgetDocument, error) {
	return retry.DoWithData(
		func() (*model.StorageBudgetDocument, error) {
			return db.tryUpdateBudget(ctx, accountID, next)
		},
		retry.Context(ctx),
		retry.Attempts(budgetUpdateAttempts),
		retry.Delay(budgetUpdateDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsConcurrentUpdateError),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Str("account", accountID).
				Err(err).
				Msg("retrying storage budget update")
		}),
	)
}

func (db *Database) tryUpdateBudget(
	ctx context.Context, accountID string, next budgetTransition,
) (*model.StorageBudgetDocument, error) {
	current, err := db.GetStorageBudget(ctx, accountID)
	if err != nil && !IsNotFoundError(err) {
		return nil, err
	}

	balance, err := next(current)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	collection := db.collection(model.StorageBudgetsCollection)

	if current == nil {
		doc := &model.StorageBudgetDocument{
			AccountID:    accountID,
			Balance:      balance.String(),
			Version:      1,
			UpdatedAt:    now,
			RegisteredAt: now,
		}
		if _, err := collection.InsertOne(ctx, doc); err != nil {
			if isMongoDuplicateKey(err) {
				return nil, &ConcurrentUpdateError{
					Key:     accountID,
					Message: "storage budget registered concurrently",
				}
			}
			return nil, err
		}
		return doc, nil
	}

	filter := bson.M{"_id": accountID, "version": current.Version}
	update := bson.M{"$set": bson.M{
		"balance":    balance.String(),
		"version":    current.Version + 1,
		"updated_at": now,
	}}
	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, &ConcurrentUpdateError{
			Key:     accountID,
			Message: "storage budget changed concurrently",
		}
	}

	updated := *current
	updated.Balance = balance.String()
	updated.Version = current.Version + 1
	updated.UpdatedAt = now
	return &updated, nil
}
