package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/topolina/flipbook-orders/internal/inventory"
	"github.com/topolina/flipbook-orders/internal/postgres"
)

// ErrContention means the order lost a lock wait (timeout or deadlock). Nothing was
// written and the submission can be retried as is.
var ErrContention = errors.New("stock is busy, please retry")

// ErrStockConflict means a stock column would have gone below zero and the database
// refused the write. Nothing was written.
var ErrStockConflict = errors.New("stock changed while the order was placed, please retry")

// InsufficientStockError lists every line that could not be served, in line order.
type InsufficientStockError struct {
	Shortfalls []inventory.Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, s.String())
	}
	return "Insufficient stock: " + strings.Join(parts, "; ")
}

// UnknownLinesError is returned in strict mode for lines that were malformed or named
// a pattern that does not exist.
type UnknownLinesError struct {
	Keys []string
}

func (e *UnknownLinesError) Error() string {
	return "Unknown order lines: " + strings.Join(e.Keys, "; ")
}

// Service runs order submission and the admin order operations.
type Service struct {
	DB   postgres.DB
	Repo *Repo
	IDs  *IDGenerator

	Placed   Publisher
	Rejected Publisher
	Updated  Publisher

	ServiceName string
	// LockTimeout bounds every row lock wait of a submission. Zero waits forever.
	LockTimeout time.Duration
	// StrictLines rejects orders with skipped lines instead of ignoring those lines.
	StrictLines bool

	// NewLedger defaults to a TxLedger over the submission transaction.
	NewLedger func(pgx.Tx) inventory.Ledger
}

const maxIDAttempts = 3

// Submit reserves stock for every line and stores the order, all in one transaction.
// It returns the new order id, *InsufficientStockError, *UnknownLinesError,
// ErrInvalidPayload, ErrContention or an infrastructure error.
func (s *Service) Submit(ctx context.Context, p Payload, trace string) (string, error) {
	items, err := p.Items()
	if err != nil {
		return "", err
	}
	id, ts := s.IDs.Next()

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if s.LockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.LockTimeout.Milliseconds())); err != nil {
			return "", err
		}
	}

	newLedger := s.NewLedger
	if newLedger == nil {
		newLedger = func(tx pgx.Tx) inventory.Ledger { return &inventory.TxLedger{Tx: tx} }
	}
	ledger := newLedger(tx)
	plan, err := inventory.Evaluate(ctx, ledger, lines(items))
	if err != nil {
		return "", classify(err)
	}
	res := plan.Result

	skipped := skippedKeys(res)
	if !res.OK() {
		publish(s.Rejected, newEnvelope(EventOrderRejected, s.ServiceName, trace, id, OrderRejectedPayload{
			OrderID: id, Reason: "OUT_OF_STOCK", Details: shortfallDetails(res.Shortfalls), Skipped: skipped,
		}))
		return "", &InsufficientStockError{Shortfalls: res.Shortfalls}
	}
	if len(skipped) > 0 && s.StrictLines {
		publish(s.Rejected, newEnvelope(EventOrderRejected, s.ServiceName, trace, id, OrderRejectedPayload{
			OrderID: id, Reason: "UNKNOWN_LINES", Skipped: skipped,
		}))
		return "", &UnknownLinesError{Keys: skipped}
	}
	if err := plan.Apply(ctx, ledger); err != nil {
		return "", classify(err)
	}

	for attempt := 1; ; attempt++ {
		ok, err := s.Repo.Insert(ctx, tx, Record{ID: id, Status: StatusPending, CreatedAt: ts, Data: p.With(id, StatusPending, ts)})
		if err != nil {
			return "", classify(err)
		}
		if ok {
			break
		}
		if attempt == maxIDAttempts {
			return "", fmt.Errorf("order id %s already taken", id)
		}
		log.Printf("order id %s already taken, retrying", id)
		id, ts = s.IDs.Next()
	}

	if err := tx.Commit(ctx); err != nil {
		return "", classify(err)
	}

	if len(skipped) > 0 {
		log.Printf("order %s stored with %d skipped line(s): %s", id, len(skipped), strings.Join(skipped, "; "))
	}
	publish(s.Placed, newEnvelope(EventOrderPlaced, s.ServiceName, trace, id, placedPayload(id, ts, items, res, skipped)))
	return id, nil
}

func (s *Service) List(ctx context.Context) ([]Record, error) { return s.Repo.List(ctx) }

func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	return s.Repo.GetStatus(ctx, id)
}

func (s *Service) SetStatus(ctx context.Context, id string, to Status, trace string) error {
	if err := s.Repo.SetStatus(ctx, id, to); err != nil {
		return err
	}
	publish(s.Updated, newEnvelope(EventOrderStatusChanged, s.ServiceName, trace, id,
		OrderUpdatedPayload{OrderID: id, Status: to}))
	return nil
}

func (s *Service) Replace(ctx context.Context, id string, data Payload, trace string) error {
	if err := s.Repo.Replace(ctx, id, data); err != nil {
		return err
	}
	publish(s.Updated, newEnvelope(EventOrderReplaced, s.ServiceName, trace, id, OrderUpdatedPayload{OrderID: id}))
	return nil
}

// Delete removes the order record. Stock is not returned.
func (s *Service) Delete(ctx context.Context, id string, trace string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	publish(s.Updated, newEnvelope(EventOrderDeleted, s.ServiceName, trace, id,
		OrderUpdatedPayload{OrderID: id, Deleted: true}))
	return nil
}

func classify(err error) error {
	if postgres.IsLockTimeout(err) || postgres.IsDeadlock(err) {
		return fmt.Errorf("%w: %v", ErrContention, err)
	}
	if postgres.IsCheckViolation(err) {
		return fmt.Errorf("%w: %v", ErrStockConflict, err)
	}
	return err
}

func skippedKeys(res inventory.Result) []string {
	var out []string
	for _, l := range res.Skipped() {
		out = append(out, l.Line.Key)
	}
	return out
}

func placedPayload(id string, ts int64, items []Item, res inventory.Result, skipped []string) OrderPlacedPayload {
	p := OrderPlacedPayload{OrderID: id, Timestamp: ts, Items: items, Skipped: skipped}
	seen := map[string]bool{}
	for _, l := range res.Lines {
		if l.Outcome != inventory.Fulfilled {
			continue
		}
		p.Patterns = append(p.Patterns, l.ProductID+inventory.KeySeparator+l.PatternID)
		if l.FabricID != "" && !seen[l.FabricID] {
			seen[l.FabricID] = true
			p.Fabrics = append(p.Fabrics, l.FabricID)
		}
	}
	return p
}
