package db

import (
	"context"
	"fmt"

	"bitvote/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ConnectPostgres opens the pool, verifies it within the configured connect
// timeout and makes sure the schema exists.
func ConnectPostgres(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url not set")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	log.Info("connected to postgres",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Duration("connect_timeout", cfg.ConnectTimeout),
	)

	if err := InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	log.Info("schema initialized")
	return pool, nil
}

// InitSchema creates the tables when missing. Safe to call repeatedly.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	// -------------------------------
	// SESSIONS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS sessions (
		code          TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		members       JSONB NOT NULL DEFAULT '[]'::jsonb,
		passcode_hash TEXT,
		last_updated  TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_last_updated ON sessions(last_updated)`,

	// -------------------------------
	// VOTES
	// one row per (session, user): the primary key is the
	// one-vote-per-user-per-session guarantee
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS votes (
		session_id    TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		restaurant_id TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		PRIMARY KEY (session_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_session_restaurant ON votes(session_id, restaurant_id)`,

	// -------------------------------
	// FEEDBACK
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS feedback (
		id         UUID PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		rating     SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id)`,
}
