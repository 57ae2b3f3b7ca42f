package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

// SaveWhitelistedAsset inserts or replaces the whitelist entry of tokenID.
func (db *Database) SaveWhitelistedAsset(
	ctx context.Context, tokenID, assetID string, meta types.FungibleTokenMetadata,
) error {
	doc := model.NewWhitelistedAsset(tokenID, assetID, meta, time.Now().UnixMilli())
	return db.upsertWhitelist(ctx, doc)
}

func (db *Database) SaveWhitelistedFeed(ctx context.Context, accountID string) error {
	doc := model.NewWhitelistedFeed(accountID, time.Now().UnixMilli())
	return db.upsertWhitelist(ctx, doc)
}

func (db *Database) upsertWhitelist(ctx context.Context, doc *model.WhitelistDocument) error {
	filter := bson.M{"_id": doc.ID}
	opts := options.Replace().SetUpsert(true)
	_, err := db.collection(model.WhitelistCollection).ReplaceOne(ctx, filter, doc, opts)
	return err
}

func (db *Database) GetWhitelistedAsset(ctx context.Context, tokenID string) (*model.WhitelistDocument, error) {
	return db.getWhitelist(ctx, model.WhitelistKindAsset, tokenID)
}

func (db *Database) GetWhitelistedFeed(ctx context.Context, accountID string) (*model.WhitelistDocument, error) {
	return db.getWhitelist(ctx, model.WhitelistKindFeed, accountID)
}

func (db *Database) getWhitelist(
	ctx context.Context, kind model.WhitelistKind, accountID string,
) (*model.WhitelistDocument, error) {
	id := model.WhitelistID(kind, accountID)
	res := db.collection(model.WhitelistCollection).FindOne(ctx, bson.M{"_id": id})

	var doc model.WhitelistDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     id,
				Message: fmt.Sprintf("%s %s is not whitelisted", kind, accountID),
			}
		}
		return nil, err
	}
	return &doc, nil
}

func (db *Database) DeleteWhitelisted(ctx context.Context, kind model.WhitelistKind, accountID string) error {
	id := model.WhitelistID(kind, accountID)
	res, err := db.collection(model.WhitelistCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{
			Key:     id,
			Message: fmt.Sprintf("%s %s is not whitelisted", kind, accountID),
		}
	}
	return nil
}

// ListWhitelisted returns entries of kind in account id order.
func (db *Database) ListWhitelisted(
	ctx context.Context, kind model.WhitelistKind, offset, limit int64,
) ([]*model.WhitelistDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "account_id", Value: 1}}).
		SetSkip(offset).
		SetLimit(db.pageLimit(limit))

	cursor, err := db.collection(model.WhitelistCollection).Find(ctx, bson.M{"kind": kind}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*model.WhitelistDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode whitelist: %w", err)
	}
	return docs, nil
}
