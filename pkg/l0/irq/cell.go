package irq

import "sync/atomic"

// Flag is a boolean shared by interrupt handlers and the foreground.
type Flag struct {
	v atomic.Bool
}

// Set raises the flag.
func (f *Flag) Set() {
	f.v.Store(true)
}

// Clear lowers the flag.
func (f *Flag) Clear() {
	f.v.Store(false)
}

// IsSet reads the latest value.
func (f *Flag) IsSet() bool {
	return f.v.Load()
}

// Counter is a seconds counter incremented by a handler and reset by the
// foreground.
type Counter struct {
	v atomic.Uint32
}

// Inc increments the counter.
func (c *Counter) Inc() {
	c.v.Add(1)
}

// Load reads the latest value.
func (c *Counter) Load() uint32 {
	return c.v.Load()
}

// Reset sets the counter to zero and returns the value it replaced.
func (c *Counter) Reset() uint32 {
	return c.v.Swap(0)
}
