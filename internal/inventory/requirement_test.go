package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func TestResolveRequirement(t *testing.T) {
	tests := []struct {
		name   string
		cons   Consumption
		st     StockType
		qty    int
		kind   Kind
		amount string
		zero   bool
	}{
		{"quantity ignores consumption", Consumption{Entire: nd("2.20")}, StockQuantity, 3, KindUnits, "3", false},
		{"entire", Consumption{Entire: nd("2.20")}, StockMeters, 2, KindMeters, "4.40", false},
		{"entire wins over outside", Consumption{Entire: nd("1.00"), Outside: nd("3.70")}, StockMeters, 1, KindMeters, "1", false},
		{"outside for lined garments", Consumption{Outside: nd("3.70"), Inside: nd("2.50")}, StockMeters, 2, KindMeters, "7.40", false},
		{"inside alone is not used", Consumption{Inside: nd("2.50")}, StockMeters, 2, KindMeters, "0", true},
		{"missing consumption needs nothing", Consumption{}, StockMeters, 5, KindMeters, "0", true},
		{"zero quantity", Consumption{Entire: nd("2.25")}, StockMeters, 0, KindMeters, "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ResolveRequirement(tt.cons, tt.st, tt.qty)
			assert.Equal(t, tt.kind, req.Kind)
			assert.True(t, dec(tt.amount).Equal(req.Amount()), "amount %s, want %s", req.Amount(), tt.amount)
			assert.Equal(t, tt.zero, req.ZeroConsumption)
		})
	}
}

func TestParseStockType(t *testing.T) {
	assert.Equal(t, StockQuantity, ParseStockType("quantity"))
	assert.Equal(t, StockMeters, ParseStockType("meters"))
	assert.Equal(t, StockMeters, ParseStockType(""))
	assert.Equal(t, StockMeters, ParseStockType("rolls"))
}
