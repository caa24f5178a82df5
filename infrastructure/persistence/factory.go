package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"screengraph-backend/application/ports"
	"screengraph-backend/infrastructure/config"
	dynamostore "screengraph-backend/infrastructure/persistence/dynamodb"
	"screengraph-backend/infrastructure/persistence/memory"
	"screengraph-backend/infrastructure/persistence/sqlite"
)

// NewLayoutCacheStore builds the cache backend selected by configuration.
// Persistent backends are wrapped in the resilient decorator; the in-memory
// backend is used bare since it cannot fail transiently.
func NewLayoutCacheStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.LayoutCacheStore, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		return memory.NewLayoutCacheStore(), nil

	case config.CacheBackendSQLite:
		store, err := sqlite.NewLayoutCacheStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite cache store: %w", err)
		}
		return NewResilientCacheStore(store, DefaultRetryConfig(), logger), nil

	case config.CacheBackendDynamoDB:
		client, err := dynamostore.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("creating dynamodb client: %w", err)
		}
		store, err := dynamostore.NewLayoutCacheStore(client, cfg.DynamoDBTable)
		if err != nil {
			return nil, fmt.Errorf("creating dynamodb cache store: %w", err)
		}
		return NewResilientCacheStore(store, DefaultRetryConfig(), logger), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
