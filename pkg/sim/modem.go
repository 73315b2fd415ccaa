package sim

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// SMS is a message sent through the simulated modem.
type SMS struct {
	Recipient string
	Text      string
}

// Modem simulates the AT command set used by the tracker.
type Modem struct {
	// OnSMS is called for every message sent.
	OnSMS func(SMS)

	lock    sync.Mutex
	echo    bool
	verbose bool
	sent    []SMS
	ref     int
}

// NewModem creates a modem in its power-on state.
func NewModem() *Modem {
	return &Modem{echo: true, verbose: true}
}

// Sent returns the messages sent so far.
func (m *Modem) Sent() []SMS {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]SMS(nil), m.sent...)
}

// Serve implements Peer.
func (m *Modem) Serve(rw io.ReadWriter) error {
	r := bufio.NewReader(rw)
	for {
		cmd, err := readCommand(r)
		if err != nil {
			return err
		}
		resp, recipient := m.respond(cmd)
		if _, err := io.WriteString(rw, resp); err != nil {
			return err
		}
		if recipient == "" {
			continue
		}
		text, err := r.ReadString(0x1A)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(rw, m.send(SMS{Recipient: recipient, Text: strings.TrimSuffix(text, "\x1a")})); err != nil {
			return err
		}
	}
}

func (m *Modem) result(ok bool) string {
	switch {
	case m.verbose && ok:
		return "\r\nOK\r\n"
	case m.verbose:
		return "\r\nERROR\r\n"
	case ok:
		return "0\r"
	}
	return "4\r"
}

func (m *Modem) info(s string) string {
	if m.verbose {
		return "\r\n" + s + "\r\n"
	}
	return s + "\r\n"
}

// respond returns the response and the recipient when a message body
// follows.
func (m *Modem) respond(cmd string) (string, string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out string
	if m.echo {
		out = cmd + "\r"
	}
	upper := strings.ToUpper(cmd)
	switch {
	case upper == "":
		return out, ""
	case upper == "ATE0":
		m.echo = false
	case upper == "ATE1":
		m.echo = true
	case upper == "ATV0":
		m.verbose = false
	case upper == "ATV1":
		m.verbose = true
	case upper == "AT+CREG?":
		return out + m.info("+CREG: 0,1") + m.result(true), ""
	case strings.HasPrefix(upper, "AT+CMGS="):
		recipient := strings.Trim(cmd[len("AT+CMGS="):], "\"")
		if recipient == "" {
			return out + m.result(false), ""
		}
		return out + "\r\n> ", recipient
	case strings.HasPrefix(upper, "AT"):
	default:
		return out + m.result(false), ""
	}
	return out + m.result(true), ""
}

func (m *Modem) send(sms SMS) string {
	m.lock.Lock()
	m.sent = append(m.sent, sms)
	m.ref++
	resp := m.info(fmt.Sprintf("+CMGS: %d", m.ref)) + m.result(true)
	fn := m.OnSMS
	m.lock.Unlock()
	if fn != nil {
		fn(sms)
	}
	return resp
}
