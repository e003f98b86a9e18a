// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	cachebucketstore "github.com/dalemusser/doctorsyria/internal/app/store/cachebuckets"
	"github.com/dalemusser/doctorsyria/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// ConnectDB connects to MongoDB when cache buckets are persisted there.
// With in-memory storage it returns empty DBDeps.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if !appCfg.storageMongo() {
		logger.Info("cache storage is in-memory; skipping MongoDB")
		return DBDeps{}, nil
	}

	ctx, cancel := timeouts.WithTimeout(ctx, connectTimeout, logger, "mongo connect")
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the cache bucket indexes when MongoDB is in use.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := cachebucketstore.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		logger.Error("cache bucket indexes failed", zap.Error(err))
		return err
	}
	return nil
}
