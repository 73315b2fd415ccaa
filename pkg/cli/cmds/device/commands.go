package device

import (
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tracker.go/pkg/cli/sh"
	"github.com/robotalks/tracker.go/pkg/tracker"
)

// DefaultATTimeout bounds waiting for the modem to answer.
const DefaultATTimeout = 5 * time.Second

var (
	// ModemInitCmd runs the modem setup sequence.
	ModemInitCmd = ishell.Cmd{
		Name:    "modem.init",
		Aliases: []string{"mi"},
		Help:    "run modem setup",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			if err := t.Modem.Init(sh.ShellFrom(c).Context()); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// ATCmd sends a raw AT command and prints the responses.
	ATCmd = ishell.Cmd{
		Name: "at",
		Help: "COMMAND, e.g. at +CSQ",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			cmd := "AT" + strings.Join(c.Args, " ")
			lines, err := t.Modem.Query(sh.ShellFrom(c).Context(), cmd, DefaultATTimeout)
			sh.Print(c, lines, strings.Join(lines, "\n"))
			if err != nil {
				c.Err(err)
			}
		}),
	}

	// SMSCmd sends the odometer report by SMS.
	SMSCmd = ishell.Cmd{
		Name: "sms",
		Help: "[RECIPIENT] send the stored odometer by SMS",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			recipient := t.Config.Recipient
			if len(c.Args) > 0 {
				recipient = c.Args[0]
			}
			odo, err := t.Store.Load()
			if err != nil {
				c.Err(err)
				return
			}
			if err := t.Modem.SendSMS(sh.ShellFrom(c).Context(), recipient, t.Config.VehicleID, odo); err != nil {
				c.Err(err)
				return
			}
			c.Printf("sent odometer %d to %s\n", odo, recipient)
		}),
	}

	// OBDInitCmd runs the adapter setup sequence.
	OBDInitCmd = ishell.Cmd{
		Name:    "obd.init",
		Aliases: []string{"oi"},
		Help:    "run diagnostics adapter setup",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			if err := t.OBD.Init(sh.ShellFrom(c).Context()); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// SpeedCmd requests and decodes the vehicle speed.
	SpeedCmd = ishell.Cmd{
		Name:    "speed",
		Aliases: []string{"sp"},
		Help:    "request vehicle speed",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			ctx := sh.ShellFrom(c).Context()
			if err := t.OBD.RequestSpeed(ctx); err != nil {
				c.Err(err)
				return
			}
			speed, raw, err := t.OBD.ReadSpeed(ctx)
			if err != nil {
				c.Err(fmt.Errorf("%w (raw %q)", err, raw))
				return
			}
			sh.Print(c, map[string]interface{}{"speed": speed, "raw": string(raw)},
				fmt.Sprintf("%d km/h (raw %q)", speed, raw))
		}),
	}

	// ChannelsCmd prints the channel counters.
	ChannelsCmd = ishell.Cmd{
		Name:    "channels",
		Aliases: []string{"ch"},
		Help:    "show serial channel counters",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			for _, ch := range t.Channels {
				st := ch.Stats()
				sh.Print(c, map[string]interface{}{"name": ch.Name(), "stats": st},
					fmt.Sprintf("%s: sent %d, received %d, overruns %d", ch.Name(), st.Sent, st.Received, st.Overruns))
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&ModemInitCmd,
		&ATCmd,
		&SMSCmd,
		&OBDInitCmd,
		&SpeedCmd,
		&ChannelsCmd,
	)
}
