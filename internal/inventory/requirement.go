package inventory

import "github.com/shopspring/decimal"

type Kind string

const (
	KindUnits  Kind = "units"
	KindMeters Kind = "meters"
)

// Requirement is how much stock one order line consumes.
type Requirement struct {
	Kind   Kind
	Units  int
	Meters decimal.Decimal
	// ZeroConsumption marks meter lines whose product has no consumption configured.
	// Such lines need 0m and always fit.
	ZeroConsumption bool
}

func ResolveRequirement(c Consumption, st StockType, qty int) Requirement {
	if st == StockQuantity {
		return Requirement{Kind: KindUnits, Units: qty}
	}
	perUnit, ok := c.PerUnit()
	return Requirement{
		Kind:            KindMeters,
		Meters:          perUnit.Mul(decimal.NewFromInt(int64(qty))),
		ZeroConsumption: !ok,
	}
}

// Amount returns the requirement in its own unit.
func (r Requirement) Amount() decimal.Decimal {
	if r.Kind == KindUnits {
		return decimal.NewFromInt(int64(r.Units))
	}
	return r.Meters
}
