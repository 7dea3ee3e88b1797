package nowpayments

import (
	"strconv"
	"sync"
	"time"
)

// OrderIDs hands out "order_<unix-ms>" identifiers. Two calls within the same
// millisecond still get distinct, increasing ids.
type OrderIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewOrderIDs() *OrderIDs {
	return &OrderIDs{now: time.Now}
}

func (o *OrderIDs) Next() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ms := o.now().UnixMilli()
	if ms <= o.last {
		ms = o.last + 1
	}
	o.last = ms
	return "order_" + strconv.FormatInt(ms, 10)
}
