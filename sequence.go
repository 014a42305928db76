package pypeline

import "sync/atomic"

// Sequence hands out stage orders. Every call to Next must return a value
// strictly greater than every value returned before.
type Sequence interface {
	Next() int64
}

// Counter is a Sequence safe for concurrent use. The first value is 1.
type Counter struct {
	n atomic.Int64
}

// NewCounter creates a counter starting at 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next implements Sequence.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the last value handed out, or 0 if none was.
func (c *Counter) Current() int64 {
	return c.n.Load()
}
