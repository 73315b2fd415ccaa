package config

import (
	"fmt"

	"github.com/robotalks/tracker.go/pkg/modem"
	"github.com/robotalks/tracker.go/pkg/obd"
	"github.com/robotalks/tracker.go/pkg/odometer"
	"github.com/robotalks/tracker.go/pkg/persist"
)

// Validate checks the configuration without changing it.
func Validate(c *Config) error {
	if c.VehicleID == "" {
		return fmt.Errorf("vehicle_id is required")
	}
	if c.Modem.SMS && c.Recipient == "" {
		return fmt.Errorf("recipient is required to send SMS")
	}
	if c.Ports.Modem.Addr == "" {
		return fmt.Errorf("ports.modem.addr is required")
	}
	if c.Ports.OBD.Addr == "" {
		return fmt.Errorf("ports.obd.addr is required")
	}
	for name, p := range map[string]PortConfig{"modem": c.Ports.Modem, "obd": c.Ports.OBD, "console": c.Ports.Console} {
		if p.Addr != "" && p.Baud <= 0 {
			return fmt.Errorf("ports.%s.baud must be positive", name)
		}
	}
	if c.Channels.InCapacity <= 0 || c.Channels.OutCapacity <= 0 {
		return fmt.Errorf("channel capacities must be positive")
	}
	if c.Channels.RegionSize <= 0 {
		return fmt.Errorf("channels.region_size must be positive")
	}
	if c.Modem.SMS {
		header := len(modem.CmdSendSMS) + len(c.Recipient) + len(modem.CommandSuffix)
		body := len(modem.FormatSMS(c.VehicleID, persist.MaxValue))
		if header-1 > c.Channels.OutCapacity || body-1 > c.Channels.OutCapacity {
			return fmt.Errorf("channels.out_capacity %d can't hold the SMS", c.Channels.OutCapacity)
		}
	}
	if _, err := modem.ParseStrategy(c.Modem.Strategy); err != nil {
		return err
	}
	if _, err := obd.DecoderByName(c.OBD.Decoder); err != nil {
		return err
	}
	if _, err := odometer.ParseSampleErrorPolicy(c.Odometer.SampleErrors); err != nil {
		return err
	}
	if c.Odometer.Tolerance <= 0 {
		return fmt.Errorf("odometer.tolerance must be positive")
	}
	if c.Odometer.MinPersistInterval > c.Odometer.MaxPersistInterval {
		return fmt.Errorf("odometer.min_persist_interval exceeds max_persist_interval")
	}
	if c.Persist.Path == "" {
		return fmt.Errorf("persist.path is required")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive")
	}
	return nil
}
