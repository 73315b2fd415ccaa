package tracker

import (
	"github.com/robotalks/tracker.go/pkg/l0/serial"
	"github.com/robotalks/tracker.go/pkg/modem"
)

type channelStatus struct {
	serial.Stats
	Sending      bool   `json:"sending"`
	Receiving    bool   `json:"receiving"`
	PortOverruns uint64 `json:"port_overruns"`
}

func (t *Tracker) registerStatus() {
	t.Status.Register("unit", func() interface{} {
		return map[string]string{
			"unit_id":    t.UnitID,
			"vehicle_id": t.Config.VehicleID,
		}
	})
	t.Status.Register("channels", func() interface{} {
		out := make(map[string]channelStatus, len(t.Channels))
		for i, ch := range t.Channels {
			out[ch.Name()] = channelStatus{
				Stats:        ch.Stats(),
				Sending:      ch.Sending(),
				Receiving:    ch.Receiving(),
				PortOverruns: t.Ports[i].Overruns(),
			}
		}
		return out
	})
	t.Status.Register("irq", func() interface{} {
		return map[string]interface{}{
			"enabled": t.IRQ.Enabled(),
			"dropped": t.IRQ.Dropped(),
		}
	})
	t.Status.Register("odometer", func() interface{} {
		m := t.Machine()
		if m == nil {
			return map[string]string{"state": "starting"}
		}
		snap := m.Snapshot()
		return map[string]interface{}{
			"odometer":      snap.Odometer,
			"kilometers":    snap.Odometer / modem.UnitsPerKm,
			"last_speed":    snap.LastSpeed,
			"persisted":     snap.Persisted,
			"since_report":  snap.SinceReport,
			"since_persist": snap.SincePersist,
			"steps":         snap.Steps,
			"saves":         snap.Saves,
			"reports":       snap.Reports,
			"last_sample":   snap.LastSample,
			"last_report":   snap.LastReport,
			"last_error":    snap.LastError,
		}
	})
}
