package irq

import (
	"sync"
	"sync/atomic"
)

// Handler is invoked when a Line fires.
type Handler interface {
	HandleIRQ()
}

// HandlerFunc is func type of Handler.
type HandlerFunc func()

// HandleIRQ implements Handler.
func (f HandlerFunc) HandleIRQ() {
	f()
}

// Controller dispatches interrupt handlers.
type Controller struct {
	lock    sync.Mutex
	enabled bool
	lines   []*Line
	dropped uint64
}

// Line is a single interrupt source.
type Line struct {
	Name string

	ctl     *Controller
	handler Handler
	latch   bool
	masked  bool
	pending bool
	dropped uint64
}

// NewController creates a Controller with interrupts globally disabled.
func NewController() *Controller {
	return &Controller{}
}

// NewLine registers an interrupt line.
// A latched line keeps one pending event while it can't be served.
func (c *Controller) NewLine(name string, handler Handler, latch bool) *Line {
	l := &Line{Name: name, ctl: c, handler: handler, latch: latch}
	c.lock.Lock()
	c.lines = append(c.lines, l)
	c.lock.Unlock()
	return l
}

// Enable globally enables interrupts and serves pending lines.
func (c *Controller) Enable() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.enabled = true
	for _, l := range c.lines {
		l.servePending()
	}
}

// Disable globally disables interrupts.
// When it returns, no handler is running.
func (c *Controller) Disable() {
	c.lock.Lock()
	c.enabled = false
	c.lock.Unlock()
}

// Enabled indicates interrupts are globally enabled.
func (c *Controller) Enabled() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.enabled
}

// Critical runs fn with interrupts disabled and restores the previous
// enable state afterwards.
func (c *Controller) Critical(fn func() error) error {
	c.lock.Lock()
	wasEnabled := c.enabled
	c.enabled = false
	c.lock.Unlock()
	defer func() {
		if wasEnabled {
			c.Enable()
		}
	}()
	return fn()
}

// Dropped returns the total number of events dropped by non-latched lines.
func (c *Controller) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

// Raise fires the line. It returns true if the handler ran.
func (l *Line) Raise() bool {
	c := l.ctl
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.enabled || l.masked {
		if l.latch {
			l.pending = true
		} else {
			atomic.AddUint64(&l.dropped, 1)
			atomic.AddUint64(&c.dropped, 1)
		}
		return false
	}
	l.handler.HandleIRQ()
	return true
}

// Mask blocks the line. When it returns, the line's handler is not running.
func (l *Line) Mask() {
	l.ctl.lock.Lock()
	l.masked = true
	l.ctl.lock.Unlock()
}

// Unmask unblocks the line and serves a pending event.
func (l *Line) Unmask() {
	c := l.ctl
	c.lock.Lock()
	defer c.lock.Unlock()
	l.masked = false
	if c.enabled {
		l.servePending()
	}
}

// Pending indicates a latched event is waiting.
func (l *Line) Pending() bool {
	l.ctl.lock.Lock()
	defer l.ctl.lock.Unlock()
	return l.pending
}

// Dropped returns the number of events dropped by this line.
func (l *Line) Dropped() uint64 {
	return atomic.LoadUint64(&l.dropped)
}

// must be called with controller lock held.
func (l *Line) servePending() {
	if l.pending && !l.masked {
		l.pending = false
		l.handler.HandleIRQ()
	}
}
