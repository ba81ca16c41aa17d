package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mgoffin/authgate/internal/config"
)

var ErrNotFound = errors.New("key not found")

// Store is the key-value capability backing sessions. All writes are
// acknowledged by the backend before Set/Delete return.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New selects the store implementation once at startup. When a redis
// address is configured but the initial connection fails, it logs the
// condition and falls back to the in-process store for the remainder of
// the process lifetime rather than crashing or blocking.
func New(cfg config.StoreConfig, logger *slog.Logger) Store {
	if cfg.RedisAddr == "" {
		return NewMemoryStore()
	}

	rs, err := NewRedisStore(cfg)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory session store",
			"address", cfg.RedisAddr,
			"error", err,
		)
		return NewMemoryStore()
	}

	logger.Info("using redis session store", "address", cfg.RedisAddr)
	return rs
}
