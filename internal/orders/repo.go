package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/topolina/flipbook-orders/internal/postgres"
)

// Repo is the order record store. Orders are append-only apart from status, admin
// overwrite and delete; none of those touch stock.
type Repo struct{ DB postgres.DB }

// Insert writes a new order inside the caller's transaction. It reports false when
// the id is already taken.
func (r *Repo) Insert(ctx context.Context, tx postgres.Execer, rec Record) (bool, error) {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return false, err
	}
	ct, err := tx.Exec(ctx, `
		INSERT INTO orders(id, data, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`, rec.ID, data, string(rec.Status), rec.CreatedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// List returns every order, newest first.
func (r *Repo) List(ctx context.Context) ([]Record, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, data, status, created_at FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(r.DB.QueryRow(ctx, `SELECT id, data, status, created_at FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *Repo) GetStatus(ctx context.Context, id string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// SetStatus updates the status column and the copy inside the document.
func (r *Repo) SetStatus(ctx context.Context, id string, to Status) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(Status(from), to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, from, to)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, data = jsonb_set(data, '{status}', to_jsonb($2::text))
		WHERE id=$1`, id, string(to)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Replace overwrites the stored document verbatim. The status column is left alone.
func (r *Repo) Replace(ctx context.Context, id string, data Payload) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET data=$2 WHERE id=$1`, id, b)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the order. Stock already taken by it is not given back.
func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec    Record
		data   []byte
		status string
	)
	if err := row.Scan(&rec.ID, &data, &status, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return Record{}, fmt.Errorf("order %s: decode data: %w", rec.ID, err)
	}
	return rec, nil
}
