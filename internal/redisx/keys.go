package redisx

import "time"

const (
	// idem:order:create:{Idempotency-Key} -> order id, or "pending" while the first request runs
	KeyIdemOrderCreate = "idem:order:create:%s"

	// order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// catalog:products -> the GET /api/products body
	KeyCatalog = "catalog:products"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
