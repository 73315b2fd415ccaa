// Package sim simulates the devices on the tracker's serial ports: an ELM327
// diagnostics adapter and a cellular modem. Registering the "sim" port
// scheme makes them available as sim:elm327 and sim:modem.
package sim

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/l0/port"
)

// Peer serves the device end of a link.
type Peer interface {
	Serve(rw io.ReadWriter) error
}

// Connect starts peer on one end of an in-memory link and returns the
// other end.
func Connect(peer Peer) io.ReadWriteCloser {
	local, remote := net.Pipe()
	go func() {
		defer remote.Close()
		if err := peer.Serve(remote); err != nil && err != io.EOF && err != io.ErrClosedPipe {
			glog.Warningf("sim peer stopped: %v", err)
		}
	}()
	return local
}

// Open creates a peer from sim:<device>?<params>.
//
//	sim:elm327?speeds=5,7,6,60,6   speeds are replayed in a loop
//	sim:elm327?drive=60:5:30,0:10:10   a trip profile, see ParseDrive
//	sim:modem
func Open(u *url.URL, _ int) (io.ReadWriteCloser, error) {
	device := u.Opaque
	if device == "" {
		device = strings.TrimPrefix(u.Host+u.Path, "/")
	}
	switch device {
	case "elm327", "obd":
		if profile := u.Query().Get("drive"); profile != "" {
			legs, err := ParseDrive(profile)
			if err != nil {
				return nil, err
			}
			return Connect(NewELM327(NewDrive(legs...).Source())), nil
		}
		speeds, err := ParseSpeeds(u.Query().Get("speeds"))
		if err != nil {
			return nil, err
		}
		return Connect(NewELM327(Replay(speeds...))), nil
	case "modem":
		return Connect(NewModem()), nil
	}
	return nil, fmt.Errorf("unknown simulated device %q", device)
}

// ParseSpeeds parses a comma separated list, empty means a constant 0.
func ParseSpeeds(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var speeds []int
	for _, item := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil || v < 0 || v > 255 {
			return nil, fmt.Errorf("invalid speed %q", item)
		}
		speeds = append(speeds, v)
	}
	return speeds, nil
}

func init() {
	port.RegisterScheme("sim", Open)
}

// readCommand reads up to CR, LF is skipped.
func readCommand(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		switch b {
		case '\r':
			return sb.String(), nil
		case '\n':
		default:
			sb.WriteByte(b)
		}
	}
}
