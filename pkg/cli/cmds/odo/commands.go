package odo

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tracker.go/pkg/cli/sh"
	"github.com/robotalks/tracker.go/pkg/modem"
	"github.com/robotalks/tracker.go/pkg/obd"
	"github.com/robotalks/tracker.go/pkg/tracker"
)

var (
	// ShowCmd prints the stored odometer.
	ShowCmd = ishell.Cmd{
		Name:    "odo",
		Aliases: []string{"odometer"},
		Help:    "show stored odometer",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			v, err := t.Store.Load()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, map[string]int64{"odometer": v, "kilometers": v / modem.UnitsPerKm},
				fmt.Sprintf("%d (%d km)", v, v/modem.UnitsPerKm))
		}),
	}

	// SetCmd overwrites the stored odometer.
	SetCmd = ishell.Cmd{
		Name: "odo.set",
		Help: "VALUE store the odometer (km x 3600)",
		Func: sh.MustBeOpen(func(c *ishell.Context, t *tracker.Tracker) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("VALUE required"))
				return
			}
			v, err := strconv.ParseInt(c.Args[0], 10, 64)
			if err != nil {
				c.Err(fmt.Errorf("Invalid VALUE: %v", err))
				return
			}
			if err := t.Store.Save(v); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// DecodeCmd decodes a diagnostics response offline.
	DecodeCmd = ishell.Cmd{
		Name: "decode",
		Help: "RESPONSE decode a speed response with both decoders",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("RESPONSE required"))
				return
			}
			resp := []byte(c.Args[0])
			out := make(map[string]interface{})
			for _, name := range []string{obd.DecoderDigitSum, obd.DecoderPositional} {
				dec, _ := obd.DecoderByName(name)
				if v, err := dec(resp); err != nil {
					out[name] = err.Error()
				} else {
					out[name] = v
				}
			}
			sh.Print(c, out, fmt.Sprintf("%s: %v, %s: %v",
				obd.DecoderDigitSum, out[obd.DecoderDigitSum],
				obd.DecoderPositional, out[obd.DecoderPositional]))
		},
	}
)

func init() {
	sh.AddCmds(
		&ShowCmd,
		&SetCmd,
		&DecodeCmd,
	)
}
