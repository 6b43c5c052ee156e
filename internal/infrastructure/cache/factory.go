package cache

import (
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// KeyPrefix namespaces every key the marketplace writes to Redis.
const KeyPrefix = "market:"

// NewKV returns a Redis-backed store when Redis is enabled and reachable.
// Otherwise it logs a warning and falls back to memory, which does not share
// state between instances.
func NewKV(cfg config.RedisConfig, logger *zap.Logger) KV {
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory key/value store")
		return NewMemoryKV()
	}
	client, err := NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory key/value store",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return NewMemoryKV()
	}
	logger.Info("Using Redis key/value store", zap.String("addr", cfg.Addr()))
	return NewRedisKV(client, KeyPrefix)
}
