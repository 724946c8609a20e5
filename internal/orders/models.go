package orders

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/topolina/flipbook-orders/internal/inventory"
)

var (
	ErrNotFound       = errors.New("order not found")
	ErrInvalidPayload = errors.New("invalid order payload")
)

// Item is one order line as the storefront sends it.
type Item struct {
	Product  string `json:"product"` // "<productId> - <patternId>"
	Quantity int    `json:"quantity"`
	Img      string `json:"img,omitempty"`
}

// Payload is an order document kept verbatim; only id, status and timestamp are
// owned by the server.
type Payload map[string]json.RawMessage

// Items decodes and validates the line items.
func (p Payload) Items() ([]Item, error) {
	raw, ok := p["items"]
	if !ok {
		return nil, fmt.Errorf("%w: missing items", ErrInvalidPayload)
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: items: %v", ErrInvalidPayload, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidPayload)
	}
	for i, it := range items {
		if it.Quantity < 0 {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidPayload, i+1, inventory.ErrInvalidQuantity)
		}
	}
	return items, nil
}

// With returns a copy of p carrying the server-owned fields.
func (p Payload) With(id string, status Status, timestamp int64) Payload {
	out := make(Payload, len(p)+3)
	for k, v := range p {
		out[k] = v
	}
	out["id"], _ = json.Marshal(id)
	out["status"], _ = json.Marshal(status)
	out["timestamp"], _ = json.Marshal(timestamp)
	return out
}

func lines(items []Item) []inventory.Line {
	out := make([]inventory.Line, 0, len(items))
	for _, it := range items {
		out = append(out, inventory.Line{Key: it.Product, Quantity: it.Quantity})
	}
	return out
}

// Record is a stored order row.
type Record struct {
	ID        string
	Status    Status
	CreatedAt int64
	Data      Payload
}

// Document returns the stored payload with the status column applied, which is what
// admin screens read.
func (r Record) Document() Payload {
	out := make(Payload, len(r.Data)+1)
	for k, v := range r.Data {
		out[k] = v
	}
	out["status"], _ = json.Marshal(r.Status)
	return out
}
