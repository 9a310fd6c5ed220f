package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// StatusStore is implemented by every backend in this package.
type StatusStore interface {
	Put(ctx context.Context, rec entity.Record) error
	Get(ctx context.Context, id string) (entity.Record, error)
	List(ctx context.Context) ([]entity.Record, error)
	Sweep(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, cfg common.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	logger.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return rdb, nil
}

// OpenStatusStore builds the backend named by cfg.Store.Backend. rdb is only
// used by the redis backend. The returned func releases everything the store
// opened and is safe to call once.
func OpenStatusStore(ctx context.Context, cfg *common.Config, rdb *redis.Client, logger *slog.Logger) (StatusStore, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		return NewMemoryStatusStore(), func() {}, nil

	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("redis store needs a redis client")
		}
		return NewRedisStatusStore(rdb, cfg.Store.Retention, logger), func() {}, nil

	case "badger":
		s, err := OpenBadgerStatusStore(cfg.Store.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("failed to close badger store", "error", err)
			}
		}, nil

	case "sqlite":
		db, err := OpenSQLite(cfg.Store.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return sqlStore(ctx, db, nil, dialect.SQLite, logger)

	case "postgres":
		db, pool, err := OpenPostgres(ctx, Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
			Close(db, pool, logger)
			return nil, nil, fmt.Errorf("database health: %w", err)
		}
		return sqlStore(ctx, db, pool, dialect.Postgres, logger)
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func sqlStore(ctx context.Context, db *sql.DB, pool *pgxpool.Pool, d string, logger *slog.Logger) (StatusStore, func(), error) {
	s, err := NewSQLStatusStore(ctx, db, d, logger)
	if err != nil {
		Close(db, pool, logger)
		return nil, nil, err
	}
	return s, func() { Close(db, pool, logger) }, nil
}
