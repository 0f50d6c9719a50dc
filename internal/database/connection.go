package database

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BradenHooton/backoffice/internal/config"
	"github.com/BradenHooton/backoffice/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "backoffice"

// DB owns the pgx pool shared by every repository.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// poolConfig turns DatabaseConfig into a pgxpool config. A positive query
// timeout is also pushed to the server as statement_timeout so a query that
// outlives its caller is cancelled there too.
func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod

	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	if cfg.QueryTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.QueryTimeout.Milliseconds(), 10)
	}

	return pc, nil
}

// NewConnection opens the pool and verifies it with a ping.
func NewConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	logger.Info("database pool ready",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
		slog.Int("max_conns", int(pc.MaxConns)),
		slog.Duration("statement_timeout", cfg.QueryTimeout),
	)

	return &DB{Pool: pool, logger: logger}, nil
}

// NewFromPool wraps a pool created elsewhere, e.g. by an integration harness.
func NewFromPool(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	return &DB{Pool: pool, logger: logger}
}

func (db *DB) Close() {
	db.logger.Info("closing database pool")
	db.Pool.Close()
}

// HealthCheck pings the database within a 2s budget.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats snapshots pool usage for /metrics and /health.
func (db *DB) Stats() metrics.PoolSnapshot {
	s := db.Pool.Stat()
	return metrics.PoolSnapshot{
		Acquired: s.AcquiredConns(),
		Idle:     s.IdleConns(),
		Total:    s.TotalConns(),
		Max:      s.MaxConns(),
	}
}
