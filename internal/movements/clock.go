package movements

import (
	"sync"
	"time"
)

// ledgerClock hands out strictly increasing timestamps at microsecond
// precision, the resolution postgres keeps, so entries written by this
// process never tie on created_at.
type ledgerClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

var clock = &ledgerClock{now: time.Now}

func (c *ledgerClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UTC().Truncate(time.Microsecond)
	if !ts.After(c.last) {
		ts = c.last.Add(time.Microsecond)
	}
	c.last = ts
	return ts
}
