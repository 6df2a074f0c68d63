package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const createSlotsTable = `
	CREATE TABLE IF NOT EXISTS cart_slots (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Postgres holds the connection pool behind PostgresSlot
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to databaseURL and makes sure the slot table exists
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(createSlotsTable); err != nil {
		return nil, fmt.Errorf("failed to create cart_slots table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Slot returns the slot stored under key
func (p *Postgres) Slot(key string) *PostgresSlot {
	return &PostgresSlot{db: p.db, key: key}
}

// PostgresSlot is one row of the cart_slots table
type PostgresSlot struct {
	db  *sqlx.DB
	key string
}

// Read returns the stored value
func (s *PostgresSlot) Read(ctx context.Context) ([]byte, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM cart_slots WHERE key = $1", s.key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %s: %w", s.key, err)
	}
	return []byte(value), true, nil
}

// Write upserts the stored value
func (s *PostgresSlot) Write(ctx context.Context, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_slots (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		s.key, string(value))
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", s.key, err)
	}
	return nil
}
