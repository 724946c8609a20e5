package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/topolina/flipbook-orders/internal/redisx"
)

// StatusView is the public answer to "where is my order".
type StatusView struct {
	OrderID   string    `json:"orderId"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache mirrors order status in Redis. The database stays authoritative; a nil
// cache or a Redis error only means a trip to the database.
type StatusCache struct {
	Redis redis.Cmdable
	TTL   time.Duration
}

func (c *StatusCache) ok() bool { return c != nil && c.Redis != nil }

func (c *StatusCache) Get(ctx context.Context, id string) (StatusView, bool) {
	if !c.ok() {
		return StatusView{}, false
	}
	b, err := c.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("status cache get %s: %v", id, err)
		}
		return StatusView{}, false
	}
	var v StatusView
	if err := json.Unmarshal(b, &v); err != nil {
		return StatusView{}, false
	}
	return v, true
}

func (c *StatusCache) Put(ctx context.Context, v StatusView) {
	if !c.ok() {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = redisx.TTLStatusCache
	}
	b, _ := json.Marshal(v)
	if err := c.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, v.OrderID), b, ttl).Err(); err != nil {
		log.Printf("status cache set %s: %v", v.OrderID, err)
	}
}

func (c *StatusCache) Drop(ctx context.Context, id string) {
	if !c.ok() {
		return
	}
	if err := c.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Err(); err != nil {
		log.Printf("status cache drop %s: %v", id, err)
	}
}
