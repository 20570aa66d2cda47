package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PoolConfig sizes the pgx pool. ConnectTimeout bounds the whole connect-and-ping loop;
// Postgres is often still starting when the engine boots next to it.
type PoolConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
}

// NewPostgresPool opens a pgx pool and pings it, retrying with exponential backoff until
// ConnectTimeout elapses.
func NewPostgresPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = time.Minute

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = cfg.ConnectTimeout

	attempt := 0
	return backoff.RetryWithData(func() (*pgxpool.Pool, error) {
		attempt++
		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("unable to create DB pool: %w", err))
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			log.Warn("Database not reachable yet",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, fmt.Errorf("database pool ping failed: %w", err)
		}
		log.Info("Database pool ready",
			zap.Int32("maxConns", config.MaxConns),
			zap.Int32("minConns", config.MinConns),
		)
		return pool, nil
	}, backoff.WithContext(b, ctx))
}
