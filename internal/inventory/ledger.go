package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Ledger is the stock view of one open transaction. Lock* calls hold the row until the
// transaction ends; Decrement* calls trust that the caller already checked the amount
// against the locked value.
type Ledger interface {
	LockPattern(ctx context.Context, productID, patternID string) (PatternStock, error)
	LockFabric(ctx context.Context, fabricID string) (FabricStock, error)
	Consumption(ctx context.Context, productID string) (Consumption, error)
	DecrementUnits(ctx context.Context, productID, patternID string, n int) error
	DecrementMeters(ctx context.Context, productID, patternID string, m decimal.Decimal) error
	DecrementFabricMeters(ctx context.Context, fabricID string, m decimal.Decimal) error
}

// TxLedger implements Ledger on a pgx transaction with SELECT ... FOR UPDATE.
type TxLedger struct{ Tx pgx.Tx }

func (l *TxLedger) LockPattern(ctx context.Context, productID, patternID string) (PatternStock, error) {
	var (
		st, meters string
		ps         = PatternStock{ProductID: productID, PatternID: patternID}
	)
	err := l.Tx.QueryRow(ctx, `
		SELECT stock_type, available_meters::text, available_quantity, COALESCE(fabric_id, '')
		FROM patterns WHERE product_id=$1 AND id=$2 FOR UPDATE`, productID, patternID,
	).Scan(&st, &meters, &ps.AvailableQuantity, &ps.FabricID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ps, ErrNotFound
	}
	if err != nil {
		return ps, fmt.Errorf("lock pattern %s/%s: %w", productID, patternID, err)
	}
	ps.StockType = ParseStockType(st)
	if ps.AvailableMeters, err = decimal.NewFromString(meters); err != nil {
		return ps, fmt.Errorf("pattern %s/%s meters: %w", productID, patternID, err)
	}
	return ps, nil
}

func (l *TxLedger) LockFabric(ctx context.Context, fabricID string) (FabricStock, error) {
	var meters string
	fs := FabricStock{ID: fabricID}
	err := l.Tx.QueryRow(ctx, `SELECT name, available_meters::text FROM fabrics WHERE id=$1 FOR UPDATE`, fabricID).
		Scan(&fs.Name, &meters)
	if errors.Is(err, pgx.ErrNoRows) {
		return fs, ErrNotFound
	}
	if err != nil {
		return fs, fmt.Errorf("lock fabric %s: %w", fabricID, err)
	}
	if fs.AvailableMeters, err = decimal.NewFromString(meters); err != nil {
		return fs, fmt.Errorf("fabric %s meters: %w", fabricID, err)
	}
	return fs, nil
}

// Consumption is read without a lock; products are not edited while orders run.
func (l *TxLedger) Consumption(ctx context.Context, productID string) (Consumption, error) {
	var entire, outside, inside string
	err := l.Tx.QueryRow(ctx, `
		SELECT COALESCE(consumption_entire::text, ''), COALESCE(consumption_outside::text, ''),
		       COALESCE(consumption_inside::text, '')
		FROM products WHERE id=$1`, productID,
	).Scan(&entire, &outside, &inside)
	if errors.Is(err, pgx.ErrNoRows) {
		return Consumption{}, ErrNotFound
	}
	if err != nil {
		return Consumption{}, fmt.Errorf("product %s consumption: %w", productID, err)
	}
	var c Consumption
	for _, f := range []struct {
		raw string
		dst *decimal.NullDecimal
	}{{entire, &c.Entire}, {outside, &c.Outside}, {inside, &c.Inside}} {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Consumption{}, fmt.Errorf("product %s consumption: %w", productID, err)
		}
		*f.dst = decimal.NewNullDecimal(d)
	}
	return c, nil
}

func (l *TxLedger) DecrementUnits(ctx context.Context, productID, patternID string, n int) error {
	ct, err := l.Tx.Exec(ctx, `
		UPDATE patterns SET available_quantity = available_quantity - $3
		WHERE product_id=$1 AND id=$2`, productID, patternID, n)
	if err != nil {
		return fmt.Errorf("decrement units %s/%s: %w", productID, patternID, err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("decrement units %s/%s: %w", productID, patternID, ErrNotFound)
	}
	return nil
}

func (l *TxLedger) DecrementMeters(ctx context.Context, productID, patternID string, m decimal.Decimal) error {
	ct, err := l.Tx.Exec(ctx, `
		UPDATE patterns SET available_meters = available_meters - $3::numeric
		WHERE product_id=$1 AND id=$2`, productID, patternID, m.String())
	if err != nil {
		return fmt.Errorf("decrement meters %s/%s: %w", productID, patternID, err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("decrement meters %s/%s: %w", productID, patternID, ErrNotFound)
	}
	return nil
}

func (l *TxLedger) DecrementFabricMeters(ctx context.Context, fabricID string, m decimal.Decimal) error {
	ct, err := l.Tx.Exec(ctx, `
		UPDATE fabrics SET available_meters = available_meters - $2::numeric, updated_at = now()
		WHERE id=$1`, fabricID, m.String())
	if err != nil {
		return fmt.Errorf("decrement fabric %s: %w", fabricID, err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("decrement fabric %s: %w", fabricID, ErrNotFound)
	}
	return nil
}
