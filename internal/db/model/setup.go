package model

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/price-vault-factory/internal/config"
)

const (
	VaultRecordsCollection   = "vault_records"
	StorageBudgetsCollection = "storage_budgets"
	WhitelistCollection      = "whitelist"
)

type index struct {
	Keys   bson.D
	Unique bool
}

var collections = map[string][]index{
	VaultRecordsCollection: {
		{Keys: bson.D{{Key: "account_id", Value: 1}}, Unique: true},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "price_feed_id", Value: 1}, {Key: "asset_id", Value: 1}}},
	},
	StorageBudgetsCollection: {},
	WhitelistCollection: {
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "account_id", Value: 1}}, Unique: true},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "schema_version", Value: 1}}},
	},
}

// Setup creates the collections and indexes of the factory database.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to disconnect setup client")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	database := client.Database(cfg.DbName)
	existing, err := database.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, name := range existing {
		known[name] = true
	}

	for name, idxs := range collections {
		if !known[name] {
			if err := database.CreateCollection(ctx, name); err != nil {
				return fmt.Errorf("failed to create collection %s: %w", name, err)
			}
			log.Ctx(ctx).Debug().Msg("Collection created successfully: " + name)
		}
		for _, idx := range idxs {
			model := mongo.IndexModel{
				Keys:    idx.Keys,
				Options: options.Index().SetUnique(idx.Unique),
			}
			if _, err := database.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
				return fmt.Errorf("failed to create index on collection %s: %w", name, err)
			}
		}
	}

	log.Ctx(ctx).Info().Msg("Collections and Indexes created successfully.")
	return nil
}
