package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ptbscope/internal/application"
	"ptbscope/internal/config"
	"ptbscope/internal/infrastructure/cache"
	"ptbscope/internal/infrastructure/mysql"
	"ptbscope/internal/infrastructure/sqlite"
)

// Store is a replay store that can also report readiness and be closed.
type Store interface {
	application.ReplayStore
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the configured store. A redis address fronts it with the
// summary cache; an unreachable redis degrades to the bare store.
func Open(cfg config.Config) (Store, error) {
	var base Store
	switch cfg.StoreDriver {
	case config.StoreSQLite, "":
		repo, err := sqlite.NewRepository(cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		base = repo
	case config.StoreMySQL:
		repo, err := mysql.NewRepository(cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql store: %w", err)
		}
		base = repo
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisAddr == "" {
		return base, nil
	}
	cached, err := cache.NewCachedStore(base, cache.Config{Addr: cfg.RedisAddr, TTL: cfg.CacheTTL})
	if err != nil {
		slog.Warn("redis cache disabled", "addr", cfg.RedisAddr, "err", err)
		return base, nil
	}
	return &cachedStore{CachedStore: cached, base: base}, nil
}

// cachedStore closes both the cache client and the underlying store.
type cachedStore struct {
	*cache.CachedStore
	base Store
}

func (s *cachedStore) Close() error {
	return errors.Join(s.CachedStore.Close(), s.base.Close())
}
