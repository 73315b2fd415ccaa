package serial

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tracker.go/pkg/l0/irq"
)

type fakeUART struct {
	tx, rx *irq.Line

	lock   sync.Mutex
	wire   []byte
	rxData byte
}

func (u *fakeUART) Attach(tx, rx *irq.Line) {
	u.tx, u.rx = tx, rx
}

func (u *fakeUART) TransmitByte(b byte) {
	u.lock.Lock()
	u.wire = append(u.wire, b)
	u.lock.Unlock()
}

func (u *fakeUART) ReceivedByte() byte {
	return u.rxData
}

func (u *fakeUART) transmitted() []byte {
	u.lock.Lock()
	defer u.lock.Unlock()
	return append([]byte(nil), u.wire...)
}

// deliver raises one receive interrupt per byte.
func (u *fakeUART) deliver(p string) {
	for i := 0; i < len(p); i++ {
		u.rxData = p[i]
		u.rx.Raise()
	}
}

// drain raises transmit-complete interrupts until the channel goes idle.
func (u *fakeUART) drain(t *testing.T, ch *Channel) {
	for i := 0; ch.Sending(); i++ {
		require.Less(t, i, 1000, "transmission never completes")
		u.tx.Raise()
	}
}

type channelTestEnv struct {
	ctl  *irq.Controller
	uart *fakeUART
	ch   *Channel
}

func newChannelTestEnv(conf Config) *channelTestEnv {
	env := &channelTestEnv{ctl: irq.NewController(), uart: &fakeUART{}}
	if conf.Name == "" {
		conf.Name = "test"
	}
	if conf.RecvWait.Timeout == 0 {
		conf.RecvWait.Timeout = 50 * time.Millisecond
	}
	if conf.SendWait.Timeout == 0 {
		conf.SendWait.Timeout = 50 * time.Millisecond
	}
	env.ch = New(env.ctl, env.uart, conf)
	env.ctl.Enable()
	return env
}

func TestModemFramingReceive(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	env.uart.deliver("\x48\x6F\x6C\x61\x0D")
	require.False(t, env.ch.Receiving())
	out, err := env.ch.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("Hola"), out)
}

func TestModemFramingIgnoresLinefeed(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	env.uart.deliver("\n")
	require.False(t, env.ch.Receiving())
	env.uart.deliver("ab\ncd")
	require.True(t, env.ch.Receiving())
	env.uart.deliver("\r\n")
	require.False(t, env.ch.Receiving())
	out, err := env.ch.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), out)
}

func TestDiagnosticsFramingReceive(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: DiagnosticsFraming})
	env.uart.deliver("41 0D 25 \r")
	require.True(t, env.ch.Receiving())
	env.uart.deliver("\r")
	require.True(t, env.ch.Receiving(), "filtered bytes keep reception in progress")
	env.uart.deliver(">")
	require.False(t, env.ch.Receiving())
	out, err := env.ch.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("41025"), out)
}

func TestReceiveZeroPadsRegion(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	region := []byte("xxxxxxxx")
	env.uart.deliver("ok\r")
	n, err := env.ch.ReceiveInto(context.Background(), region)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte("ok\x00\x00\x00\x00\x00\x00"), region)

	// inbound buffer was reset
	_, err = env.ch.Receive(context.Background())
	require.True(t, errors.Is(err, ErrTimeout))
}

func TestReceiveWaitsForTerminator(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	env.uart.deliver("partial")
	_, err := env.ch.Receive(context.Background())
	require.True(t, errors.Is(err, ErrTimeout))
	var chErr *ChannelError
	require.True(t, errors.As(err, &chErr))
	require.Equal(t, "receive", chErr.Op)
}

func TestReceiveOverflow(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming, RegionSize: 4})
	env.uart.deliver("abcdef\r")
	out, err := env.ch.Receive(context.Background())
	require.True(t, errors.Is(err, ErrOverflow))
	require.Equal(t, []byte("abcd"), out)
}

func TestInboundOverrun(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming, InCapacity: 4})
	env.uart.deliver("abcdef\r")
	require.Equal(t, uint64(2), env.ch.Stats().Overruns)
	out, err := env.ch.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), out)
}

func TestReceiveDroppedWhileDisabled(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	env.ctl.Disable()
	env.uart.deliver("lost")
	env.ctl.Enable()
	env.uart.deliver("kept\r")
	out, err := env.ch.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("kept"), out)
	require.Equal(t, uint64(4), env.ctl.Dropped())
}

func TestSend(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	require.NoError(t, env.ch.SendString(context.Background(), "ATE0\r"))
	require.True(t, env.ch.Sending())
	require.Equal(t, []byte("A"), env.uart.transmitted(), "first byte seeds the transmitter")

	env.uart.drain(t, env.ch)
	require.Equal(t, []byte("ATE0\r"), env.uart.transmitted())
	require.False(t, env.ch.Sending())
	require.Equal(t, uint64(5), env.ch.Stats().Sent)
}

func TestSendWaitsForDrain(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	ctx := context.Background()
	require.NoError(t, env.ch.SendString(ctx, "abc"))
	err := env.ch.SendString(ctx, "def")
	require.True(t, errors.Is(err, ErrTimeout))

	env.uart.drain(t, env.ch)
	require.NoError(t, env.ch.SendString(ctx, "def"))
	env.uart.drain(t, env.ch)
	require.Equal(t, []byte("abcdef"), env.uart.transmitted())
}

func TestSendWhileDisabled(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming})
	require.NoError(t, env.ch.SendString(context.Background(), "xyz"))
	env.ctl.Disable()
	require.False(t, env.uart.tx.Raise())
	require.Equal(t, []byte("x"), env.uart.transmitted())
	env.ctl.Enable()
	require.Equal(t, []byte("xy"), env.uart.transmitted(), "latched completion served on enable")
	env.uart.drain(t, env.ch)
	require.Equal(t, []byte("xyz"), env.uart.transmitted())
}

func TestSendTooLarge(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming, OutCapacity: 4})
	err := env.ch.SendString(context.Background(), "123456")
	require.True(t, errors.Is(err, ErrTooLarge))
	require.Empty(t, env.uart.transmitted())
	// one byte goes straight to the transmitter
	require.NoError(t, env.ch.SendString(context.Background(), "12345"))
}

func TestSendCanceled(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: ModemFraming, SendWait: Waiter{Timeout: time.Hour}})
	require.NoError(t, env.ch.SendString(context.Background(), "abc"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := env.ch.SendString(ctx, "def")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestFramingClassify(t *testing.T) {
	testCases := []struct {
		framing Framing
		in      byte
		expect  Action
	}{
		{ModemFraming, '\r', ActionTerminate},
		{ModemFraming, '\n', ActionIgnore},
		{ModemFraming, '>', ActionBuffer},
		{ModemFraming, 'A', ActionBuffer},
		{DiagnosticsFraming, '>', ActionTerminate},
		{DiagnosticsFraming, '0', ActionBuffer},
		{DiagnosticsFraming, '9', ActionBuffer},
		{DiagnosticsFraming, 'D', ActionFilter},
		{DiagnosticsFraming, ' ', ActionFilter},
		{DiagnosticsFraming, '\r', ActionFilter},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.expect, tc.framing.Classify(tc.in), "%s %q", tc.framing.Name, tc.in)
	}

	f, ok := FramingByName("diagnostics")
	require.True(t, ok)
	require.Equal(t, byte('>'), f.Terminator)
	_, ok = FramingByName("none")
	require.False(t, ok)
}

func TestDiscard(t *testing.T) {
	env := newChannelTestEnv(Config{Framing: DiagnosticsFraming})
	env.uart.deliver("41 00 BE 3E B8 11\r\r>")
	require.Equal(t, 8, env.ch.Discard())
	_, err := env.ch.Receive(context.Background())
	require.True(t, errors.Is(err, ErrTimeout))
}
