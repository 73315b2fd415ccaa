package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vehicle_id: WVW123
ports:
  modem:
    addr: sim:modem
  obd:
    addr: ws://bridge:8080/obd
    baud: 38400
modem:
  strategy: confirmed
  settle: 500ms
odometer:
  sample_errors: skip
mqtt:
  url: mqtt://broker:1883/fleet
`), 0644))
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "WVW123", c.VehicleID)
	require.Equal(t, "+61404088444", c.Recipient)
	require.Equal(t, "sim:modem", c.Ports.Modem.Addr)
	require.Equal(t, 115200, c.Ports.Modem.Baud)
	require.Equal(t, 38400, c.Ports.OBD.Baud)
	require.Equal(t, "confirmed", c.Modem.Strategy)
	require.Equal(t, 500*time.Millisecond, c.Modem.Settle)
	require.Equal(t, 5*time.Second, c.Modem.TextModeSettle)
	require.Equal(t, "skip", c.Odometer.SampleErrors)
	require.EqualValues(t, 60, c.Odometer.ReportInterval)
	require.Equal(t, "mqtt://broker:1883/fleet", c.MQTT.URL)
	require.NoError(t, Validate(c))
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	c := Default()
	require.Error(t, c.Decode(strings.NewReader("vehicle: x\n")))
	require.NoError(t, c.Decode(strings.NewReader("")))
}

func TestEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recipient: \"+100\"\n"), 0644))
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvMQTTURL, "mqtt://env:1883/")
	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "+100", c.Recipient)
	require.Equal(t, "mqtt://env:1883/", c.MQTT.URL)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.SetupFlags(fs)
	require.NoError(t, fs.Parse([]string{"-obd", "sim:elm327", "-decoder", "positional"}))
	require.Equal(t, "sim:elm327", c.Ports.OBD.Addr)
	require.Equal(t, "positional", c.OBD.Decoder)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"vehicle", func(c *Config) { c.VehicleID = "" }},
		{"recipient", func(c *Config) { c.Recipient = "" }},
		{"modem port", func(c *Config) { c.Ports.Modem.Addr = "" }},
		{"baud", func(c *Config) { c.Ports.Console = PortConfig{Addr: "/dev/ttyS2"} }},
		{"capacity", func(c *Config) { c.Channels.OutCapacity = 0 }},
		{"region", func(c *Config) { c.Channels.RegionSize = 0 }},
		{"sms size", func(c *Config) { c.Channels.OutCapacity = 20; c.Channels.InCapacity = 20 }},
		{"strategy", func(c *Config) { c.Modem.Strategy = "smart" }},
		{"decoder", func(c *Config) { c.OBD.Decoder = "bcd" }},
		{"policy", func(c *Config) { c.Odometer.SampleErrors = "retry" }},
		{"tolerance", func(c *Config) { c.Odometer.Tolerance = 0 }},
		{"persist intervals", func(c *Config) { c.Odometer.MinPersistInterval = 4000 }},
		{"nvm", func(c *Config) { c.Persist.Path = "" }},
		{"tick", func(c *Config) { c.Tick = 0 }},
	}
	for _, tc := range cases {
		c := Default()
		tc.mutate(c)
		require.Error(t, Validate(c), tc.name)
	}

	c := Default()
	c.Recipient = ""
	c.Modem.SMS = false
	require.NoError(t, Validate(c))
}
