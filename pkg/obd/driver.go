package obd

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Transport is the serial channel the adapter is attached to.
type Transport interface {
	Send(ctx context.Context, p []byte) error
	Receive(ctx context.Context) ([]byte, error)
}

// Discarder drops stale input.
type Discarder interface {
	Discard() int
}

// Config defines the driver.
type Config struct {
	// Settle follows every init command.
	Settle time.Duration
	// WakeupSettle follows the bus wakeup request.
	WakeupSettle time.Duration
	Decoder      Decoder
}

// DefaultConfig returns the adapter timing and the digit sum decoder.
func DefaultConfig() Config {
	return Config{
		Settle:       time.Second,
		WakeupSettle: 5 * time.Second,
		Decoder:      DecodeDigitSum,
	}
}

// Driver talks to the adapter.
type Driver struct {
	Transport Transport
	Config    Config
	Sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a Driver.
func New(t Transport, conf Config) *Driver {
	if conf.Decoder == nil {
		conf.Decoder = DecodeDigitSum
	}
	return &Driver{Transport: t, Config: conf, Sleep: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) command(ctx context.Context, cmd string) error {
	if err := d.Transport.Send(ctx, []byte(cmd+CommandSuffix)); err != nil {
		return fmt.Errorf("obd %s: %w", cmd, err)
	}
	return nil
}

// Init configures the adapter and wakes up the bus.
// The wakeup response is discarded when the transport supports it.
func (d *Driver) Init(ctx context.Context) error {
	for _, cmd := range []string{CmdEchoOff, CmdLinefeedOff, CmdHeadersOff, CmdFormat} {
		if err := d.command(ctx, cmd); err != nil {
			return err
		}
		if err := d.Sleep(ctx, d.Config.Settle); err != nil {
			return err
		}
	}
	if err := d.command(ctx, CmdWakeup); err != nil {
		return err
	}
	if err := d.Sleep(ctx, d.Config.WakeupSettle); err != nil {
		return err
	}
	if dis, ok := d.Transport.(Discarder); ok {
		if n := dis.Discard(); n > 0 {
			glog.V(1).Infof("obd: discarded %d bytes after wakeup", n)
		}
	}
	glog.Info("obd setup done")
	return nil
}

// RequestSpeed sends the vehicle speed request.
func (d *Driver) RequestSpeed(ctx context.Context) error {
	return d.command(ctx, CmdSpeed)
}

// ReadSpeed waits for a response and decodes it.
// The raw response is returned even when decoding fails.
func (d *Driver) ReadSpeed(ctx context.Context) (int, []byte, error) {
	resp, err := d.Transport.Receive(ctx)
	if err != nil {
		return 0, resp, fmt.Errorf("speed: %w", err)
	}
	speed, err := d.Config.Decoder(resp)
	if err != nil {
		return 0, resp, fmt.Errorf("speed decode: %w", err)
	}
	return speed, resp, nil
}

// NextSample implements odometer.SampleSource.
func (d *Driver) NextSample(ctx context.Context) (int, error) {
	speed, resp, err := d.ReadSpeed(ctx)
	if err == nil {
		glog.V(2).Infof("obd: %q -> %d", resp, speed)
	}
	return speed, err
}
