package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"fuel-wallet/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

const applicationName = "fuel-wallet"

// NewPool opens the ledger database pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("dbname", cfg.DBName).
		Int32("max_conns", cfg.MaxConns).
		Msg("ledger database ready")
	return pool, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// LedgerHealth checks that the database answers and the accounts table exists.
type LedgerHealth struct {
	pool Pool
}

func NewLedgerHealth(pool Pool) *LedgerHealth {
	return &LedgerHealth{pool: pool}
}

func (h *LedgerHealth) Name() string { return "postgres" }

func (h *LedgerHealth) Check(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "SELECT 1 FROM accounts LIMIT 1"); err != nil {
		return fmt.Errorf("ledger tables unreachable: %w", err)
	}
	return nil
}
