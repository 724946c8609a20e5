package inventory

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type StockType string

const (
	StockMeters   StockType = "meters"
	StockQuantity StockType = "quantity"
)

// ParseStockType defaults anything unknown to meters, which is how patterns were
// tracked before the stock type existed.
func ParseStockType(s string) StockType {
	if StockType(s) == StockQuantity {
		return StockQuantity
	}
	return StockMeters
}

// Consumption is the fabric a product needs per garment. Lined garments set Outside and
// Inside; everything else sets Entire.
type Consumption struct {
	Entire  decimal.NullDecimal `json:"entire"`
	Outside decimal.NullDecimal `json:"outside"`
	Inside  decimal.NullDecimal `json:"inside"`
}

// PerUnit returns the meters drawn from a pattern's stock per garment. Only the outer
// fabric of a lined garment comes from the pattern.
func (c Consumption) PerUnit() (decimal.Decimal, bool) {
	switch {
	case c.Entire.Valid:
		return c.Entire.Decimal, true
	case c.Outside.Valid:
		return c.Outside.Decimal, true
	default:
		return decimal.Zero, false
	}
}

// PatternStock is a pattern row as seen under its row lock.
type PatternStock struct {
	ProductID         string
	PatternID         string
	StockType         StockType
	AvailableMeters   decimal.Decimal
	AvailableQuantity int
	FabricID          string // empty when unlinked
}

func (p PatternStock) Linked() bool { return p.FabricID != "" }

type FabricStock struct {
	ID              string
	Name            string
	AvailableMeters decimal.Decimal
}
