// Package port connects serial channels to byte streams.
package port

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/framework"
	"github.com/robotalks/tracker.go/pkg/l0/irq"
)

// Port emulates a UART over an io.ReadWriter.
// It implements serial.Hardware: bytes loaded with TransmitByte are written
// one at a time and each completion raises the transmit line, each byte read
// is latched into the data register and raises the receive line.
type Port struct {
	Name       string
	ReadWriter io.ReadWriter

	tx, rx  *irq.Line
	txReg   chan byte
	rxReg   uint32
	overrun uint64
}

// New creates a Port.
func New(name string, rw io.ReadWriter) *Port {
	return &Port{
		Name:       name,
		ReadWriter: rw,
		txReg:      make(chan byte, 1),
	}
}

// Attach implements serial.Hardware.
func (p *Port) Attach(tx, rx *irq.Line) {
	p.tx, p.rx = tx, rx
}

// TransmitByte implements serial.Hardware.
func (p *Port) TransmitByte(b byte) {
	select {
	case p.txReg <- b:
	default:
		atomic.AddUint64(&p.overrun, 1)
		glog.Errorf("%s: transmitter busy, byte %#02x lost", p.Name, b)
	}
}

// ReceivedByte implements serial.Hardware.
func (p *Port) ReceivedByte() byte {
	return byte(atomic.LoadUint32(&p.rxReg))
}

// Overruns returns the number of bytes loaded while the transmitter was busy.
func (p *Port) Overruns() uint64 {
	return atomic.LoadUint64(&p.overrun)
}

// Run implements Runnable.
func (p *Port) Run(ctx context.Context) error {
	if p.tx == nil || p.rx == nil {
		panic("port " + p.Name + " not attached")
	}
	errCh := make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.readLoop(subCtx, errCh)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case b := <-p.txReg:
			if _, err := p.ReadWriter.Write([]byte{b}); err != nil {
				return err
			}
			p.tx.Raise()
		}
	}
}

func (p *Port) readLoop(ctx context.Context, errCh chan error) {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			n, err := p.ReadWriter.Read(buf)
			if err != nil {
				errCh <- err
				return
			}
			if n == 0 {
				continue
			}
			atomic.StoreUint32(&p.rxReg, uint32(buf[0]))
			if !p.rx.Raise() {
				glog.V(3).Infof("%s: byte %#02x dropped", p.Name, buf[0])
			}
		}
	}
}

// Runner wraps the port and closes the underlying stream when the context
// is canceled.
func (p *Port) Runner() framework.Runnable {
	return framework.NamedRun(p.Name, framework.RunnableFunc(func(ctx context.Context) error {
		if closer, ok := p.ReadWriter.(io.Closer); ok {
			return framework.RunWithContextCloser(ctx, closer, func() error {
				return p.Run(ctx)
			})
		}
		return p.Run(ctx)
	}))
}
