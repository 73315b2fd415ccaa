package modem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang/glog"
)

// Transport is the serial channel the modem is attached to.
type Transport interface {
	Send(ctx context.Context, p []byte) error
	Receive(ctx context.Context) ([]byte, error)
}

// Discarder drops stale input.
type Discarder interface {
	Discard() int
}

// Strategy decides how the driver waits after a command.
type Strategy int

const (
	// Blind waits a fixed settle delay and doesn't read the response.
	Blind Strategy = iota
	// Confirmed reads responses until a final result code, bounded by the
	// settle delay.
	Confirmed
)

// ParseStrategy parses "blind" or "confirmed".
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "blind":
		return Blind, nil
	case "confirmed":
		return Confirmed, nil
	}
	return Blind, fmt.Errorf("unknown modem strategy %q", s)
}

// String implements Stringer.
func (s Strategy) String() string {
	if s == Confirmed {
		return "confirmed"
	}
	return "blind"
}

// UnitsPerKm converts the odometer (sum of km/h samples taken every second)
// into kilometers.
const UnitsPerKm = 3600

// Config defines the timing of the driver.
type Config struct {
	BaudRate int
	Strategy Strategy
	// Settle follows every init command.
	Settle time.Duration
	// TextModeSettle follows the SMS text mode command.
	TextModeSettle time.Duration
	// PromptDelay waits for the SMS text prompt.
	PromptDelay time.Duration
	// SendDelay waits for the SMS to be sent.
	SendDelay time.Duration
}

// DefaultConfig returns the timing calibrated for the modem.
func DefaultConfig() Config {
	return Config{
		BaudRate:       115200,
		Strategy:       Blind,
		Settle:         time.Second,
		TextModeSettle: 5 * time.Second,
		PromptDelay:    2 * time.Second,
		SendDelay:      2 * time.Second,
	}
}

// Driver sends AT commands over a Transport.
type Driver struct {
	Transport Transport
	Config    Config
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Driver.
func New(t Transport, conf Config) *Driver {
	return &Driver{Transport: t, Config: conf, Sleep: Sleep}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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

// Init runs the setup sequence.
func (d *Driver) Init(ctx context.Context) error {
	steps := []struct {
		cmd    string
		settle time.Duration
	}{
		{CmdEchoOff, d.Config.Settle},
		{CmdTerse, d.Config.Settle},
		{CmdBaudRate + strconv.Itoa(d.Config.BaudRate), d.Config.Settle},
		{CmdSelInt, d.Config.Settle},
		{CmdTextMode, d.Config.TextModeSettle},
		{CmdRegStatus, d.Config.Settle},
	}
	for _, step := range steps {
		if err := d.Command(ctx, step.cmd, step.settle); err != nil {
			return err
		}
	}
	glog.Info("modem setup done")
	return nil
}

// send drops responses left over from earlier commands and sends cmd.
func (d *Driver) send(ctx context.Context, cmd string) error {
	if dis, ok := d.Transport.(Discarder); ok {
		if n := dis.Discard(); n > 0 {
			glog.V(2).Infof("modem: discarded %d bytes", n)
		}
	}
	if err := d.Transport.Send(ctx, []byte(cmd+CommandSuffix)); err != nil {
		return fmt.Errorf("modem %s: %w", cmd, err)
	}
	return nil
}

// Command sends a command and waits according to the strategy.
func (d *Driver) Command(ctx context.Context, cmd string, settle time.Duration) error {
	if err := d.send(ctx, cmd); err != nil {
		return err
	}
	if d.Config.Strategy == Blind {
		return d.Sleep(ctx, settle)
	}
	_, err := d.await(ctx, cmd, settle)
	return err
}

// Query sends a command and collects responses until a final result code.
// It always reads the responses, regardless of the strategy.
func (d *Driver) Query(ctx context.Context, cmd string, timeout time.Duration) ([]string, error) {
	if err := d.send(ctx, cmd); err != nil {
		return nil, err
	}
	return d.await(ctx, cmd, timeout)
}

func (d *Driver) await(ctx context.Context, cmd string, timeout time.Duration) (lines []string, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		resp, err := d.Transport.Receive(waitCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return lines, fmt.Errorf("modem %s: %w", cmd, ErrNoResponse)
			}
			return lines, fmt.Errorf("modem %s: %w", cmd, err)
		}
		line := string(resp)
		lines = append(lines, line)
		glog.V(2).Infof("modem %s: %q", cmd, line)
		if final, failed := finalResult(line); final {
			if failed {
				return lines, &CommandError{Command: cmd, Response: line}
			}
			return lines, nil
		}
	}
}

// FormatSMS builds the SMS body including the terminating Ctrl-Z.
func FormatSMS(vehicleID string, odometer int64) []byte {
	text := fmt.Sprintf("Current VIN is: %s. Current ODO is: %d.", vehicleID, odometer/UnitsPerKm)
	return append([]byte(text), CtrlZ)
}

// SendSMS sends the odometer report to recipient.
// In Blind mode success is not confirmed.
func (d *Driver) SendSMS(ctx context.Context, recipient, vehicleID string, odometer int64) error {
	if err := d.send(ctx, CmdSendSMS+recipient); err != nil {
		return err
	}
	// the "> " prompt isn't CR terminated, so it can't be received.
	if err := d.Sleep(ctx, d.Config.PromptDelay); err != nil {
		return err
	}
	if err := d.Transport.Send(ctx, FormatSMS(vehicleID, odometer)); err != nil {
		return fmt.Errorf("modem SMS body: %w", err)
	}
	if d.Config.Strategy == Blind {
		return d.Sleep(ctx, d.Config.SendDelay)
	}
	_, err := d.await(ctx, CmdSendSMS, d.Config.SendDelay)
	return err
}
