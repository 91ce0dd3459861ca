package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/infrastructure/config"
)

// NewIdempotencyStore builds the idempotency store for the deployment.
// Redis is preferred; when it is unreachable and fallback is allowed, an
// in-memory store is used instead. The fallback does not share state
// across instances, so duplicates can slip through in a multi-instance
// deployment while Redis is down.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger, allowFallback bool) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		logger.Info("using redis idempotency store", zap.String("addr", cfg.Addr()))
		return store, nil
	}

	if !allowFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
