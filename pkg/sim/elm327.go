package sim

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// SpeedSource produces the vehicle speed in km/h.
type SpeedSource func() int

// Replay returns the speeds in a loop, no speeds is a constant 0.
func Replay(speeds ...int) SpeedSource {
	var lock sync.Mutex
	next := 0
	return func() int {
		if len(speeds) == 0 {
			return 0
		}
		lock.Lock()
		defer lock.Unlock()
		v := speeds[next%len(speeds)]
		next++
		return v
	}
}

// ELM327 simulates the adapter with echo, linefeeds and headers
// switchable by AT commands.
type ELM327 struct {
	Speed SpeedSource

	lock     sync.Mutex
	echo     bool
	linefeed bool
	headers  bool
	requests int
}

// NewELM327 creates an adapter in its power-on state.
func NewELM327(speed SpeedSource) *ELM327 {
	return &ELM327{Speed: speed, echo: true, linefeed: true}
}

// Requests returns the number of speed requests served.
func (e *ELM327) Requests() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.requests
}

// Serve implements Peer.
func (e *ELM327) Serve(rw io.ReadWriter) error {
	r := bufio.NewReader(rw)
	for {
		cmd, err := readCommand(r)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(rw, e.respond(cmd)); err != nil {
			return err
		}
	}
}

func (e *ELM327) respond(cmd string) string {
	e.lock.Lock()
	defer e.lock.Unlock()
	var out strings.Builder
	eol := "\r"
	if e.linefeed {
		eol = "\r\n"
	}
	if e.echo {
		out.WriteString(cmd + eol)
	}
	line := func(s string) { out.WriteString(s + eol) }

	cmd = strings.ToUpper(strings.ReplaceAll(cmd, " ", ""))
	switch {
	case cmd == "":
	case strings.HasPrefix(cmd, "AT"):
		switch cmd[2:] {
		case "E0":
			e.echo = false
		case "E1":
			e.echo = true
		case "L0":
			e.linefeed = false
		case "L1":
			e.linefeed = true
		case "H0":
			e.headers = false
		case "H1":
			e.headers = true
		}
		line("OK")
	case cmd == "0100":
		line("SEARCHING...")
		line(e.frame("41 00 BE 3E B8 11"))
	case cmd == "010D":
		e.requests++
		speed := 0
		if e.Speed != nil {
			speed = e.Speed()
		}
		line(e.frame(fmt.Sprintf("41 0D %02X", speed&0xff)))
	default:
		line("?")
	}
	out.WriteString(eol + ">")
	return out.String()
}

func (e *ELM327) frame(payload string) string {
	if e.headers {
		return "7E8 03 " + payload
	}
	return payload
}
