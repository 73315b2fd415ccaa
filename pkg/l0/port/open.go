package port

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"

	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// OpenFunc opens a byte stream described by a parsed URL.
type OpenFunc func(u *url.URL, baudRate int) (io.ReadWriteCloser, error)

var (
	schemes = map[string]OpenFunc{
		"serial": openSerial,
		"ws":     openWebSocket,
		"wss":    openWebSocket,
		"tcp":    openTCP,
	}
	schemesLock sync.RWMutex
)

// RegisterScheme adds an opener for a URL scheme.
// It is used by other providers during init func.
func RegisterScheme(scheme string, fn OpenFunc) {
	schemesLock.Lock()
	schemes[scheme] = fn
	schemesLock.Unlock()
}

// Open opens a byte stream and returns a description for logging.
//
// Accepted forms:
//
//	/dev/ttyUSB0                  serial device
//	serial:///dev/ttyUSB0         serial device
//	ws://host/path, wss://...     WebSocket serial bridge (binary frames)
//	tcp://host:port               raw TCP serial server
//	mqtt://broker/prefix/         serial bridge over MQTT (package mqtt)
//	sim:elm327, sim:modem         simulated peers (package sim)
func Open(addr string, baudRate int) (io.ReadWriteCloser, string, error) {
	u, err := parseAddr(addr)
	if err != nil {
		return nil, "", err
	}
	schemesLock.RLock()
	fn, ok := schemes[u.Scheme]
	schemesLock.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("unknown port scheme: %q", u.Scheme)
	}
	rwc, err := fn(u, baudRate)
	if err != nil {
		return nil, "", err
	}
	desc := addr
	if u.Scheme == "serial" {
		desc = fmt.Sprintf("%s @ %d baud", u.Path, baudRate)
	}
	return rwc, desc, nil
}

func parseAddr(addr string) (*url.URL, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty port address")
	}
	if strings.HasPrefix(addr, "/") {
		return &url.URL{Scheme: "serial", Path: addr}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid port address %q: %w", addr, err)
	}
	if u.Scheme == "" {
		// relative device names, e.g. COM3
		return &url.URL{Scheme: "serial", Path: addr}, nil
	}
	return u, nil
}

func openSerial(u *url.URL, baudRate int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(u.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", u.Path, err)
	}
	return p, nil
}

func openWebSocket(u *url.URL, _ int) (io.ReadWriteCloser, error) {
	origin := "http://localhost/"
	if u.Scheme == "wss" {
		origin = "https://localhost/"
	}
	conn, err := websocket.Dial(u.String(), "", origin)
	if err != nil {
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

func openTCP(u *url.URL, _ int) (io.ReadWriteCloser, error) {
	return net.Dial("tcp", u.Host)
}
