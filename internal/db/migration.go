package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
)

// MigrateWhitelistV0ToV1 rewrites every v0 asset entry into the v1 layout.
// Identifiers, asset ids and decimals are preserved. It returns the number
// of rewritten entries and is safe to run again.
func (db *Database) MigrateWhitelistV0ToV1(ctx context.Context) (int, error) {
	collection := db.collection(model.WhitelistCollection)
	filter := bson.M{
		"kind":           model.WhitelistKindAsset,
		"schema_version": model.WhitelistSchemaV0,
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var legacy []*model.WhitelistDocument
	if err := cursor.All(ctx, &legacy); err != nil {
		return 0, fmt.Errorf("failed to decode v0 whitelist: %w", err)
	}

	migrated := 0
	for _, doc := range legacy {
		meta := doc.MigratedMetadata()
		update := bson.M{
			"$set": bson.M{
				"metadata":       meta,
				"schema_version": model.WhitelistSchemaV1,
			},
			"$unset": bson.M{
				"title":    "",
				"decimals": "",
			},
		}
		// the version filter keeps a concurrent run from migrating twice
		res, err := collection.UpdateOne(ctx, bson.M{"_id": doc.ID, "schema_version": model.WhitelistSchemaV0}, update)
		if err != nil {
			return migrated, fmt.Errorf("failed to migrate whitelist entry %s: %w", doc.ID, err)
		}
		if res.ModifiedCount == 1 {
			migrated++
			log.Ctx(ctx).Info().
				Str("token", doc.AccountID).
				Str("asset", doc.AssetID).
				Uint8("decimals", meta.Decimals).
				Msg("whitelist entry migrated to v1")
		}
	}
	return migrated, nil
}
