package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// fabric_id carries no foreign key: deleting a fabric unlinks its patterns explicitly,
// and imported rows may still point at fabrics that no longer exist.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id                  TEXT PRIMARY KEY,
		display_name        TEXT NOT NULL DEFAULT '',
		consumption_entire  NUMERIC(10,2),
		consumption_outside NUMERIC(10,2),
		consumption_inside  NUMERIC(10,2),
		cover_image         TEXT NOT NULL DEFAULT '',
		sketch_image        TEXT NOT NULL DEFAULT '',
		shop_image          TEXT NOT NULL DEFAULT '',
		price_ex_works      NUMERIC(10,2),
		price_landed        NUMERIC(10,2),
		price_retail        NUMERIC(10,2)
	)`,
	`CREATE TABLE IF NOT EXISTS fabrics (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		available_meters NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (available_meters >= 0),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patterns (
		product_id         TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		id                 TEXT NOT NULL,
		name               TEXT NOT NULL DEFAULT '',
		image              TEXT NOT NULL DEFAULT '',
		fabric_id          TEXT,
		stock_type         TEXT NOT NULL DEFAULT 'meters' CHECK (stock_type IN ('meters', 'quantity')),
		available_meters   NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (available_meters >= 0),
		available_quantity INTEGER NOT NULL DEFAULT 0 CHECK (available_quantity >= 0),
		position           INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS patterns_fabric_id_idx ON patterns (fabric_id)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		data       JSONB NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at DESC)`,
}

// Migrate creates the tables if they are missing. It is safe to run on every start.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema step %d: %w", i+1, err)
		}
	}
	return nil
}
