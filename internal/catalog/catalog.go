// Package catalog manages products, patterns and shared fabrics: the storefront read
// model and the admin edits. Stock reservation lives in package inventory.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/topolina/flipbook-orders/internal/inventory"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid catalog data")
)

type Consumption struct {
	Entire  *decimal.Decimal `json:"entire,omitempty"`
	Outside *decimal.Decimal `json:"outside,omitempty"`
	Inside  *decimal.Decimal `json:"inside,omitempty"`
}

// Pattern as the storefront sees it. For a linked pattern AvailableMeters is the
// fabric's stock, which is what orders draw from.
type Pattern struct {
	ID                string              `json:"id"`
	Name              string              `json:"name,omitempty"`
	Image             string              `json:"image,omitempty"`
	FabricID          string              `json:"fabricId,omitempty"`
	StockType         inventory.StockType `json:"stockType"`
	AvailableMeters   decimal.Decimal     `json:"availableMeters"`
	AvailableQuantity int                 `json:"availableQuantity"`
}

type Product struct {
	DisplayName  string           `json:"displayName,omitempty"`
	Consumption  Consumption      `json:"consumption"`
	CoverImage   string           `json:"coverImage,omitempty"`
	SketchImage  string           `json:"sketchImage,omitempty"`
	ShopImage    string           `json:"shopImage,omitempty"`
	PriceExWorks *decimal.Decimal `json:"priceExWorks,omitempty"`
	PriceLanded  *decimal.Decimal `json:"priceLanded,omitempty"`
	PriceRetail  *decimal.Decimal `json:"priceRetail,omitempty"`
	Patterns     []Pattern        `json:"patterns"`
}

// Catalog maps product id to product.
type Catalog map[string]Product

type Fabric struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	AvailableMeters decimal.Decimal `json:"availableMeters"`
	Patterns        []LinkedPattern `json:"patterns"`
}

type LinkedPattern struct {
	ProductID string `json:"productId"`
	PatternID string `json:"patternId"`
	Name      string `json:"name,omitempty"`
}

// The storefront and admin screens expect meters and prices as JSON numbers, so the
// marshalers below write decimals as json.Number. Decoding accepts numbers and strings.

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func optNumber(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := number(*d)
	return &n
}

func (c Consumption) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Entire  *json.Number `json:"entire,omitempty"`
		Outside *json.Number `json:"outside,omitempty"`
		Inside  *json.Number `json:"inside,omitempty"`
	}{optNumber(c.Entire), optNumber(c.Outside), optNumber(c.Inside)})
}

func (p Pattern) MarshalJSON() ([]byte, error) {
	type plain Pattern
	return json.Marshal(struct {
		plain
		AvailableMeters json.Number `json:"availableMeters"`
	}{plain(p), number(p.AvailableMeters)})
}

func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		PriceExWorks *json.Number `json:"priceExWorks,omitempty"`
		PriceLanded  *json.Number `json:"priceLanded,omitempty"`
		PriceRetail  *json.Number `json:"priceRetail,omitempty"`
	}{plain(p), optNumber(p.PriceExWorks), optNumber(p.PriceLanded), optNumber(p.PriceRetail)})
}

func (f Fabric) MarshalJSON() ([]byte, error) {
	type plain Fabric
	return json.Marshal(struct {
		plain
		AvailableMeters json.Number `json:"availableMeters"`
	}{plain(f), number(f.AvailableMeters)})
}

func (c Catalog) validate() error {
	for id, p := range c {
		if id == "" {
			return fmt.Errorf("%w: empty product id", ErrInvalid)
		}
		for _, d := range []*decimal.Decimal{p.Consumption.Entire, p.Consumption.Outside, p.Consumption.Inside,
			p.PriceExWorks, p.PriceLanded, p.PriceRetail} {
			if d != nil && d.IsNegative() {
				return fmt.Errorf("%w: product %s has a negative amount", ErrInvalid, id)
			}
		}
		seen := map[string]bool{}
		for _, pt := range p.Patterns {
			switch {
			case pt.ID == "":
				return fmt.Errorf("%w: product %s has a pattern without id", ErrInvalid, id)
			case seen[pt.ID]:
				return fmt.Errorf("%w: product %s lists pattern %s twice", ErrInvalid, id, pt.ID)
			case pt.AvailableMeters.IsNegative() || pt.AvailableQuantity < 0:
				return fmt.Errorf("%w: pattern %s/%s has negative stock", ErrInvalid, id, pt.ID)
			case pt.StockType != "" && pt.StockType != inventory.StockMeters && pt.StockType != inventory.StockQuantity:
				return fmt.Errorf("%w: pattern %s/%s stock type %q", ErrInvalid, id, pt.ID, pt.StockType)
			}
			seen[pt.ID] = true
		}
	}
	return nil
}

func validateFabric(name string, meters decimal.Decimal) error {
	if name == "" {
		return fmt.Errorf("%w: fabric name is required", ErrInvalid)
	}
	if meters.IsNegative() {
		return fmt.Errorf("%w: fabric meters must not be negative", ErrInvalid)
	}
	return nil
}
