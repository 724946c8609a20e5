package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory stock table. A transaction holds mu from begin to
// commit/rollback, which is at least as strict as row locks on every row.
type memStore struct {
	mu       sync.Mutex
	products map[string]Consumption
	patterns map[patternKey]PatternStock
	fabrics  map[string]FabricStock
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]Consumption{},
		patterns: map[patternKey]PatternStock{},
		fabrics:  map[string]FabricStock{},
	}
}

func (s *memStore) addProduct(id string, c Consumption) { s.products[id] = c }

func (s *memStore) addPattern(p PatternStock) {
	s.patterns[patternKey{p.ProductID, p.PatternID}] = p
}

func (s *memStore) addFabric(id, name, meters string) {
	s.fabrics[id] = FabricStock{ID: id, Name: name, AvailableMeters: dec(meters)}
}

func (s *memStore) pattern(product, pattern string) PatternStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patterns[patternKey{product, pattern}]
}

func (s *memStore) fabric(id string) FabricStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fabrics[id]
}

type memTx struct {
	s        *memStore
	patterns map[patternKey]PatternStock
	fabrics  map[string]FabricStock
	done     bool
	failOn   string
}

func (s *memStore) begin() *memTx {
	s.mu.Lock()
	tx := &memTx{s: s, patterns: map[patternKey]PatternStock{}, fabrics: map[string]FabricStock{}}
	for k, v := range s.patterns {
		tx.patterns[k] = v
	}
	for k, v := range s.fabrics {
		tx.fabrics[k] = v
	}
	return tx
}

func (tx *memTx) commit() {
	if tx.done {
		return
	}
	tx.s.patterns, tx.s.fabrics = tx.patterns, tx.fabrics
	tx.done = true
	tx.s.mu.Unlock()
}

func (tx *memTx) rollback() {
	if tx.done {
		return
	}
	tx.done = true
	tx.s.mu.Unlock()
}

// submit mirrors the order service: reserve, then commit only on success.
func (s *memStore) submit(ctx context.Context, lines ...Line) (Result, error) {
	tx := s.begin()
	defer tx.rollback()
	res, err := Reserve(ctx, tx, lines)
	if err != nil || !res.OK() {
		return res, err
	}
	tx.commit()
	return res, nil
}

var errBoom = errors.New("connection reset")

func (tx *memTx) fail(op string) error {
	if tx.failOn == op {
		return errBoom
	}
	return nil
}

func (tx *memTx) LockPattern(_ context.Context, productID, patternID string) (PatternStock, error) {
	if err := tx.fail("LockPattern"); err != nil {
		return PatternStock{}, err
	}
	p, ok := tx.patterns[patternKey{productID, patternID}]
	if !ok {
		return PatternStock{}, ErrNotFound
	}
	return p, nil
}

func (tx *memTx) LockFabric(_ context.Context, fabricID string) (FabricStock, error) {
	if err := tx.fail("LockFabric"); err != nil {
		return FabricStock{}, err
	}
	f, ok := tx.fabrics[fabricID]
	if !ok {
		return FabricStock{}, ErrNotFound
	}
	return f, nil
}

func (tx *memTx) Consumption(_ context.Context, productID string) (Consumption, error) {
	c, ok := tx.s.products[productID]
	if !ok {
		return Consumption{}, ErrNotFound
	}
	return c, nil
}

func (tx *memTx) DecrementUnits(_ context.Context, productID, patternID string, n int) error {
	if err := tx.fail("DecrementUnits"); err != nil {
		return err
	}
	k := patternKey{productID, patternID}
	p := tx.patterns[k]
	p.AvailableQuantity -= n
	tx.patterns[k] = p
	return nil
}

func (tx *memTx) DecrementMeters(_ context.Context, productID, patternID string, m decimal.Decimal) error {
	k := patternKey{productID, patternID}
	p := tx.patterns[k]
	p.AvailableMeters = p.AvailableMeters.Sub(m)
	tx.patterns[k] = p
	return nil
}

func (tx *memTx) DecrementFabricMeters(_ context.Context, fabricID string, m decimal.Decimal) error {
	if err := tx.fail("DecrementFabricMeters"); err != nil {
		return err
	}
	f := tx.fabrics[fabricID]
	f.AvailableMeters = f.AvailableMeters.Sub(m)
	tx.fabrics[fabricID] = f
	return nil
}
