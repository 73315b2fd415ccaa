// Package console writes debug lines to the debug serial channel.
package console

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/odometer"
)

// Sender is the debug channel.
type Sender interface {
	Send(ctx context.Context, p []byte) error
}

// DefaultTimeout bounds writing one line.
const DefaultTimeout = time.Second

// Console prints CR terminated lines. Write failures are logged and
// otherwise ignored.
type Console struct {
	Sender Sender
	// Chunk is the largest piece handed to Sender in one call,
	// zero sends lines whole.
	Chunk   int
	Timeout time.Duration
}

// New creates a Console.
func New(sender Sender, chunk int) *Console {
	return &Console{Sender: sender, Chunk: chunk, Timeout: DefaultTimeout}
}

// Println writes s followed by CR.
func (c *Console) Println(s string) {
	if c == nil || c.Sender == nil {
		return
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	p := []byte(s + "\r")
	for len(p) > 0 {
		n := len(p)
		if c.Chunk > 0 && n > c.Chunk {
			n = c.Chunk
		}
		if err := c.Sender.Send(ctx, p[:n]); err != nil {
			glog.V(1).Infof("console: %v", err)
			return
		}
		p = p[n:]
	}
}

// Printf formats a line.
func (c *Console) Printf(format string, args ...interface{}) {
	c.Println(fmt.Sprintf(format, args...))
}

// OnStep implements odometer.Observer.
func (c *Console) OnStep(ev odometer.Event) {
	switch {
	case ev.SampleErr != nil:
		c.Printf("sample error: %v, %s, odo %d", ev.SampleErr, ev.Transition, ev.State.Odometer)
	default:
		c.Printf("speed %d, %s, odo %d", ev.Sample, ev.Transition, ev.State.Odometer)
	}
	switch {
	case ev.Saved:
		c.Printf("odometer %d stored", ev.State.Odometer)
	case ev.SaveErr != nil:
		c.Printf("store failed: %v", ev.SaveErr)
	}
}

// OnReport implements odometer.Observer.
func (c *Console) OnReport(ev odometer.ReportEvent) {
	if ev.Err != nil {
		c.Printf("report %d failed: %v", ev.Odometer, ev.Err)
		return
	}
	c.Printf("reported odo %d", ev.Odometer)
}
