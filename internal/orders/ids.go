package orders

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator hands out "ORD-<unix millis>" ids. Within one process ids strictly
// increase, so two orders in the same millisecond still get distinct ids; across
// processes the insert falls back to retrying on a primary key conflict.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	Now  func() time.Time
}

// Next returns a new id and the order timestamp in unix millis.
func (g *IDGenerator) Next() (string, int64) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ts := now().UnixMilli()

	g.mu.Lock()
	seq := ts
	if seq <= g.last {
		seq = g.last + 1
	}
	g.last = seq
	g.mu.Unlock()

	return "ORD-" + strconv.FormatInt(seq, 10), ts
}
