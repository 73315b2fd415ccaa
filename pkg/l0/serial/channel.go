package serial

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/l0/irq"
	"github.com/robotalks/tracker.go/pkg/l0/ring"
)

// Hardware is the UART behind a Channel.
type Hardware interface {
	// TransmitByte loads a byte into the transmitter.
	// Completion is signaled by raising the transmit line.
	TransmitByte(byte)
	// ReceivedByte reads the receiver data register.
	ReceivedByte() byte
	// Attach connects the interrupt lines raised by the hardware.
	Attach(tx, rx *irq.Line)
}

// DefaultRegionSize is the size of the region filled by Receive.
const DefaultRegionSize = 50

// Config defines a Channel.
type Config struct {
	Name        string
	InCapacity  int
	OutCapacity int
	RegionSize  int
	Framing     Framing
	// SendWait bounds waiting for the previous transmission to drain.
	SendWait Waiter
	// RecvWait bounds waiting for a terminated frame.
	RecvWait Waiter
}

// Stats are channel counters.
type Stats struct {
	Sent     uint64
	Received uint64
	Overruns uint64
}

// Channel is an interrupt-driven serial channel.
type Channel struct {
	conf Config
	hw   Hardware

	in  *ring.Buffer
	out *ring.Buffer

	sending   irq.Flag
	receiving irq.Flag

	txLine *irq.Line
	rxLine *irq.Line

	sent     uint64
	received uint64
	overruns uint64
}

// New creates a Channel and attaches its interrupt lines to the hardware.
func New(ctl *irq.Controller, hw Hardware, conf Config) *Channel {
	if conf.RegionSize <= 0 {
		conf.RegionSize = DefaultRegionSize
	}
	c := &Channel{
		conf: conf,
		hw:   hw,
		in:   ring.New(conf.InCapacity),
		out:  ring.New(conf.OutCapacity),
	}
	c.txLine = ctl.NewLine(conf.Name+".tx", irq.HandlerFunc(c.transmitComplete), true)
	c.rxLine = ctl.NewLine(conf.Name+".rx", irq.HandlerFunc(c.receiveByte), false)
	hw.Attach(c.txLine, c.rxLine)
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.conf.Name
}

// Sending indicates a transmission is in progress.
func (c *Channel) Sending() bool {
	return c.sending.IsSet()
}

// Receiving indicates a frame is being received.
func (c *Channel) Receiving() bool {
	return c.receiving.IsSet()
}

// Stats returns the counters.
func (c *Channel) Stats() Stats {
	return Stats{
		Sent:     atomic.LoadUint64(&c.sent),
		Received: atomic.LoadUint64(&c.received),
		Overruns: atomic.LoadUint64(&c.overruns),
	}
}

// Send transmits p. It waits for the previous transmission to drain,
// queues all bytes but the first and hands the first one to the hardware.
// The bytes are either all queued or none.
func (c *Channel) Send(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if len(p)-1 > c.out.Cap() {
		return c.err("send", ErrTooLarge)
	}
	err := c.conf.SendWait.Until(ctx, func() bool {
		return !c.sending.IsSet() && c.out.IsEmpty()
	})
	if err != nil {
		return c.err("send", err)
	}

	c.txLine.Mask()
	for _, b := range p[1:] {
		// capacity checked above and the buffer is drained.
		c.out.Insert(b)
	}
	c.sending.Set()
	c.txLine.Unmask()
	c.hw.TransmitByte(p[0])
	atomic.AddUint64(&c.sent, uint64(len(p)))
	return nil
}

// SendString is Send for strings.
func (c *Channel) SendString(ctx context.Context, s string) error {
	return c.Send(ctx, []byte(s))
}

// Receive waits for a terminated frame and returns the buffered bytes.
func (c *Channel) Receive(ctx context.Context) ([]byte, error) {
	region := make([]byte, c.conf.RegionSize)
	n, err := c.ReceiveInto(ctx, region)
	return region[:n], err
}

// ReceiveInto waits for a terminated frame, drains the inbound buffer into
// region and zero-pads the rest of it. The inbound buffer is reset.
func (c *Channel) ReceiveInto(ctx context.Context, region []byte) (int, error) {
	err := c.conf.RecvWait.Until(ctx, func() bool {
		return !c.receiving.IsSet() && !c.in.IsEmpty()
	})
	if err != nil {
		return 0, c.err("receive", err)
	}
	count, n := c.in.Count(), 0
	for ; n < count && n < len(region); n++ {
		b, err := c.in.Remove()
		if err != nil {
			break
		}
		region[n] = b
	}
	for i := n; i < len(region); i++ {
		region[i] = 0
	}
	c.in.Reset()
	atomic.AddUint64(&c.received, uint64(n))
	if count > len(region) {
		return n, c.err("receive", ErrOverflow)
	}
	return n, nil
}

// Discard drops buffered inbound bytes and returns how many were dropped.
func (c *Channel) Discard() int {
	n := c.in.Count()
	c.in.Reset()
	return n
}

func (c *Channel) transmitComplete() {
	b, err := c.out.Remove()
	if err != nil {
		c.sending.Clear()
		return
	}
	c.hw.TransmitByte(b)
}

func (c *Channel) receiveByte() {
	b := c.hw.ReceivedByte()
	switch c.conf.Framing.Classify(b) {
	case ActionTerminate:
		c.receiving.Clear()
	case ActionIgnore:
	case ActionFilter:
		c.receiving.Set()
	default:
		c.receiving.Set()
		if c.in.Insert(b) != nil {
			if atomic.AddUint64(&c.overruns, 1) == 1 {
				glog.Warningf("%s: inbound buffer full, dropping bytes", c.conf.Name)
			}
		}
	}
}

func (c *Channel) err(op string, err error) error {
	return &ChannelError{Channel: c.conf.Name, Op: op, Err: err}
}
