// Package legacy imports the JSON-blob MySQL store the storefront ran on before the
// normalized PostgreSQL schema.
package legacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/topolina/flipbook-orders/internal/catalog"
	"github.com/topolina/flipbook-orders/internal/orders"
)

// Open connects to MySQL, retrying transient failures a few times.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("legacy dsn: %w", err)
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt == 3 || !isTransient(err) {
			db.Close()
			return nil, fmt.Errorf("legacy ping after %d attempt(s): %w", attempt, err)
		}
		log.Printf("legacy: attempt %d failed: %v, retrying", attempt, err)
		time.Sleep(2 * time.Second)
	}
}

func isTransient(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1040, // too many connections
			1205, // lock wait timeout
			1213, // deadlock
			2003, 2006, 2013: // connection refused, gone away, lost
			return true
		}
	}
	return errors.Is(err, mysql.ErrInvalidConn)
}

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Source reads the legacy tables. ProductsTable is "products" before the old in-place
// migration ran and "products_old" after it.
type Source struct {
	DB            *sql.DB
	ProductsTable string
}

// Products decodes every product blob. Pattern fabric links come back on
// Pattern.FabricID.
func (s *Source) Products(ctx context.Context) (catalog.Catalog, error) {
	table := s.ProductsTable
	if table == "" {
		table = "products"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("legacy: bad table name %q", table)
	}
	rows, err := s.DB.QueryContext(ctx, "SELECT id, data FROM "+table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := catalog.Catalog{}
	for rows.Next() {
		var (
			id   string
			data sql.NullString
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var p catalog.Product
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &p); err != nil {
				return nil, fmt.Errorf("legacy product %s: %w", id, err)
			}
		}
		if p.Patterns == nil {
			p.Patterns = []catalog.Pattern{}
		}
		out[id] = p
	}
	return out, rows.Err()
}

// Orders reads every order. A missing status becomes pending and a missing
// created_at falls back to the document's timestamp.
func (s *Source) Orders(ctx context.Context) ([]orders.Record, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, data, status, created_at FROM orders ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Record
	for rows.Next() {
		var (
			rec     orders.Record
			data    sql.NullString
			status  sql.NullString
			created sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &data, &status, &created); err != nil {
			return nil, err
		}
		rec.Data = orders.Payload{}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &rec.Data); err != nil {
				return nil, fmt.Errorf("legacy order %s: %w", rec.ID, err)
			}
		}
		rec.Status = orders.StatusPending
		if status.Valid && status.String != "" {
			rec.Status = orders.Status(status.String)
		}
		rec.CreatedAt = created.Int64
		if !created.Valid {
			var ts int64
			if raw, ok := rec.Data["timestamp"]; ok && json.Unmarshal(raw, &ts) == nil {
				rec.CreatedAt = ts
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
