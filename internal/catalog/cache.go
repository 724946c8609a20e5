package catalog

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/topolina/flipbook-orders/internal/redisx"
)

// Cache keeps the rendered product listing in Redis. A nil Cache, or one without a
// client, caches nothing. Redis failures are logged and treated as misses.
type Cache struct {
	Redis redis.Cmdable
	TTL   time.Duration
}

func (c *Cache) enabled() bool { return c != nil && c.Redis != nil && c.TTL > 0 }

func (c *Cache) get(ctx context.Context) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}
	b, err := c.Redis.Get(ctx, redisx.KeyCatalog).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("catalog cache get: %v", err)
		}
		return nil, false
	}
	return b, true
}

func (c *Cache) put(ctx context.Context, b []byte) {
	if !c.enabled() {
		return
	}
	if err := c.Redis.Set(ctx, redisx.KeyCatalog, b, c.TTL).Err(); err != nil {
		log.Printf("catalog cache set: %v", err)
	}
}

// Invalidate drops the cached listing so the next read sees current stock.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.Redis == nil {
		return
	}
	if err := c.Redis.Del(ctx, redisx.KeyCatalog).Err(); err != nil {
		log.Printf("catalog cache invalidate: %v", err)
	}
}
