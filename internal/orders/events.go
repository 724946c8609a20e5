package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/topolina/flipbook-orders/internal/inventory"
	kafkax "github.com/topolina/flipbook-orders/internal/kafka"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderRejected      = "OrderRejected"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderReplaced      = "OrderReplaced"
	EventOrderDeleted       = "OrderDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID   string   `json:"order_id"`
	Timestamp int64    `json:"timestamp"`
	Items     []Item   `json:"items"`
	Skipped   []string `json:"skipped,omitempty"`
	// Fabrics and Patterns list the stock rows the order drew from.
	Fabrics  []string `json:"fabrics,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
}

type ShortfallDetail struct {
	Product       string `json:"product"`
	Kind          string `json:"kind"`
	Requested     string `json:"requested"`
	Available     string `json:"available"`
	FabricID      string `json:"fabric_id,omitempty"`
	MissingFabric bool   `json:"missing_fabric,omitempty"`
}

type OrderRejectedPayload struct {
	OrderID string            `json:"order_id"`
	Reason  string            `json:"reason"` // OUT_OF_STOCK | UNKNOWN_LINES
	Details []ShortfallDetail `json:"details,omitempty"`
	Skipped []string          `json:"skipped,omitempty"`
}

type OrderUpdatedPayload struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

func newEnvelope(eventType, producer, trace, orderID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

func publish(p Publisher, ev Envelope) {
	if p == nil {
		return
	}
	p.Publish(PartitionKey(ev.CorrelationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func shortfallDetails(sf []inventory.Shortfall) []ShortfallDetail {
	out := make([]ShortfallDetail, 0, len(sf))
	for _, s := range sf {
		out = append(out, ShortfallDetail{
			Product:       s.Key,
			Kind:          string(s.Kind),
			Requested:     s.Requested.String(),
			Available:     s.Available.String(),
			FabricID:      s.FabricID,
			MissingFabric: s.MissingFabric,
		})
	}
	return out
}
