package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
)

// SaveNewVault inserts the record if no record with the same identifier
// exists.
func (db *Database) SaveNewVault(ctx context.Context, record *model.VaultRecordDocument) error {
	if record == nil {
		return errors.New("vault record is nil")
	}
	_, err := db.collection(model.VaultRecordsCollection).InsertOne(ctx, record)
	if err != nil {
		if isMongoDuplicateKey(err) {
			return &DuplicateKeyError{
				Key:     record.Identifier,
				Message: "vault already exists",
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetVault(ctx context.Context, identifier string) (*model.VaultRecordDocument, error) {
	filter := bson.M{"_id": identifier}
	res := db.collection(model.VaultRecordsCollection).FindOne(ctx, filter)

	var record model.VaultRecordDocument
	if err := res.Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     identifier,
				Message: "vault not found",
			}
		}
		return nil, err
	}
	return &record, nil
}

// ListVaults returns vault records in creation order.
func (db *Database) ListVaults(ctx context.Context, offset, limit int64) ([]*model.VaultRecordDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(offset).
		SetLimit(db.pageLimit(limit))

	cursor, err := db.collection(model.VaultRecordsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.VaultRecordDocument
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode vault records: %w", err)
	}
	return records, nil
}

func (db *Database) CountVaults(ctx context.Context) (int64, error) {
	return db.collection(model.VaultRecordsCollection).CountDocuments(ctx, bson.M{})
}
