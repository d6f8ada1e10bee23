// Package postgres provides PostgreSQL database utilities.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN returns the PostgreSQL connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DB wraps a pgx connection pool with additional functionality.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB creates a new database connection pool.
func NewDB(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_conns", cfg.MaxOpenConns).
		Msg("connected to PostgreSQL")

	return &DB{
		Pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	db.Pool.Close()
	db.logger.Info().Msg("database connection pool closed")
	return nil
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Health checks the database connection health.
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// WithTx executes a function within a transaction.
// If the function returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL,
			slug        TEXT NOT NULL UNIQUE,
			thumbnail   TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS products (
			id                BIGSERIAL PRIMARY KEY,
			category_id       BIGINT NOT NULL REFERENCES categories(id),
			name              TEXT NOT NULL,
			slug              TEXT NOT NULL UNIQUE,
			price_cents       BIGINT NOT NULL DEFAULT 0,
			meta_description  TEXT NOT NULL DEFAULT '',
			thumbnail         TEXT NOT NULL DEFAULT '',
			short_description TEXT NOT NULL DEFAULT '',
			full_description  TEXT NOT NULL DEFAULT '',
			is_active         BOOLEAN NOT NULL DEFAULT TRUE,
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);

		CREATE TABLE IF NOT EXISTS product_images (
			id          BIGSERIAL PRIMARY KEY,
			product_id  BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			path        TEXT NOT NULL,
			sort_order  INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_product_images_product ON product_images(product_id);

		CREATE TABLE IF NOT EXISTS product_patterns (
			id          BIGSERIAL PRIMARY KEY,
			product_id  BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			name        TEXT NOT NULL DEFAULT '',
			path        TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_product_patterns_product ON product_patterns(product_id);

		CREATE TABLE IF NOT EXISTS blog_posts (
			id                BIGSERIAL PRIMARY KEY,
			title             TEXT NOT NULL,
			slug              TEXT NOT NULL UNIQUE,
			meta_description  TEXT NOT NULL DEFAULT '',
			thumbnail         TEXT NOT NULL DEFAULT '',
			short_description TEXT NOT NULL DEFAULT '',
			full_description  TEXT NOT NULL DEFAULT '',
			is_published      BOOLEAN NOT NULL DEFAULT FALSE,
			published_at      TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS topics (
			id                        BIGSERIAL PRIMARY KEY,
			category_id               BIGINT NOT NULL REFERENCES categories(id),
			title                     TEXT NOT NULL,
			slug                      TEXT NOT NULL UNIQUE,
			meta_description          TEXT NOT NULL DEFAULT '',
			short_description         TEXT NOT NULL DEFAULT '',
			short_description_sr_cyrl TEXT NOT NULL DEFAULT '',
			short_description_en      TEXT NOT NULL DEFAULT '',
			full_description          TEXT NOT NULL DEFAULT '',
			full_description_sr_cyrl  TEXT NOT NULL DEFAULT '',
			full_description_en       TEXT NOT NULL DEFAULT '',
			created_at                TIMESTAMPTZ NOT NULL,
			updated_at                TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_topics_category ON topics(category_id);

		CREATE TABLE IF NOT EXISTS tracked_uploads (
			path                 TEXT PRIMARY KEY,
			uploaded_by          BIGINT,
			uploaded_at          TIMESTAMPTZ NOT NULL,
			is_used              BOOLEAN NOT NULL DEFAULT FALSE,
			used_in_entity_type  TEXT NOT NULL DEFAULT '',
			used_in_entity_id    BIGINT
		);
		CREATE INDEX IF NOT EXISTS idx_tracked_uploads_state
			ON tracked_uploads(is_used, uploaded_at);
		CREATE INDEX IF NOT EXISTS idx_tracked_uploads_claimant
			ON tracked_uploads(used_in_entity_type, used_in_entity_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
