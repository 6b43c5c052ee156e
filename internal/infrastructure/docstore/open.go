package docstore

import (
	"context"
	"fmt"

	"github.com/b2bmarket/backend/internal/infrastructure/cache"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Open builds the configured store. The SQL driver keeps documents in db;
// surreal connects to SurrealDB. When the config enables the cache, a read
// cache on kv goes in front of either.
func Open(ctx context.Context, cfg config.DocStoreConfig, db *gorm.DB, kv cache.KV, logger *zap.Logger) (Store, error) {
	var store Store
	switch cfg.Driver {
	case "", "sql":
		if db == nil {
			return nil, fmt.Errorf("sql document store needs a database connection")
		}
		store = NewSQLStore(db, WithSQLLogger(logger))
	case "surreal":
		s, err := NewSurrealStore(ctx, SurrealConfig{
			URL:       cfg.Surreal.URL,
			Namespace: cfg.Surreal.Namespace,
			Database:  cfg.Surreal.Database,
			Username:  cfg.Surreal.Username,
			Password:  cfg.Surreal.Password,
		}, logger)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unsupported document store driver %q", cfg.Driver)
	}

	if !cfg.CacheEnabled() || kv == nil {
		logger.Info("Document store ready", zap.String("driver", cfg.Driver), zap.Bool("cache", false))
		return store, nil
	}
	logger.Info("Document store ready", zap.String("driver", cfg.Driver), zap.Duration("cache_ttl", cfg.CacheTTL))
	return NewCachedStore(store, kv, cfg.CacheTTL, logger), nil
}
