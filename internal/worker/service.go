// Package worker keeps the read caches in line with the order event stream.
package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/topolina/flipbook-orders/internal/catalog"
	kafkax "github.com/topolina/flipbook-orders/internal/kafka"
	"github.com/topolina/flipbook-orders/internal/orders"
	"github.com/topolina/flipbook-orders/internal/redisx"
)

// Service handles order events. Cached status entries are dropped rather than
// rewritten, since the worker pool may see two events for one order out of order;
// the API refills them from the database on the next read.
type Service struct {
	Redis       redis.Cmdable
	Status      *orders.StatusCache
	Catalog     *catalog.Cache
	ServiceName string
}

func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		log.Printf("worker: skipping %s@%d: %v", m.Topic, m.Offset, err)
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.Claim(ctx, s.Redis, dkey, "1", redisx.TTLDedup)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, env orders.Envelope) error {
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		// stock moved, so the listing is stale
		s.Catalog.Invalidate(ctx)
		if len(p.Skipped) > 0 {
			log.Printf("worker: order %s placed with skipped lines %v", p.OrderID, p.Skipped)
		}
	case orders.EventOrderStatusChanged, orders.EventOrderReplaced, orders.EventOrderDeleted:
		p, err := kafkax.UnwrapPayload[orders.OrderUpdatedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.Status.Drop(ctx, p.OrderID)
	}
	return nil
}
