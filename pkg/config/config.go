// Package config loads the tracker configuration.
//
// Values come from the defaults, then the YAML file, then the environment,
// then command line flags.
package config

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvConfigFile = "TRACKER_CONFIG"
	EnvMQTTURL    = "TRACKER_MQTT_URL"
)

// Config is the whole configuration.
type Config struct {
	// UnitID identifies the tracker, the machine id when empty.
	UnitID    string `yaml:"unit_id"`
	VehicleID string `yaml:"vehicle_id"`
	Recipient string `yaml:"recipient"`

	Ports    PortsConfig    `yaml:"ports"`
	Channels ChannelConfig  `yaml:"channels"`
	Modem    ModemConfig    `yaml:"modem"`
	OBD      OBDConfig      `yaml:"obd"`
	Odometer OdometerConfig `yaml:"odometer"`
	Persist  PersistConfig  `yaml:"persist"`
	Tick     time.Duration  `yaml:"tick"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Status   StatusConfig   `yaml:"status"`
}

// PortConfig is a hardware port, see port.Open for addresses.
type PortConfig struct {
	Addr string `yaml:"addr"`
	Baud int    `yaml:"baud"`
}

// PortsConfig assigns the ports. Console is optional.
type PortsConfig struct {
	Modem   PortConfig `yaml:"modem"`
	OBD     PortConfig `yaml:"obd"`
	Console PortConfig `yaml:"console"`
}

// ChannelConfig sizes the serial channels.
type ChannelConfig struct {
	InCapacity  int `yaml:"in_capacity"`
	OutCapacity int `yaml:"out_capacity"`
	RegionSize  int `yaml:"region_size"`
	// SendTimeout bounds waiting for a transmission to drain, 0 waits forever.
	SendTimeout time.Duration `yaml:"send_timeout"`
	// RecvTimeout bounds waiting for a frame, 0 waits forever.
	RecvTimeout time.Duration `yaml:"recv_timeout"`
	Poll        time.Duration `yaml:"poll"`
}

// ModemConfig configures the modem driver.
type ModemConfig struct {
	Strategy       string        `yaml:"strategy"`
	BaudRate       int           `yaml:"baud_rate"`
	Settle         time.Duration `yaml:"settle"`
	TextModeSettle time.Duration `yaml:"text_mode_settle"`
	PromptDelay    time.Duration `yaml:"prompt_delay"`
	SendDelay      time.Duration `yaml:"send_delay"`
	// SMS disables the SMS reports when false.
	SMS bool `yaml:"sms"`
}

// OBDConfig configures the diagnostics driver.
type OBDConfig struct {
	Decoder      string        `yaml:"decoder"`
	Settle       time.Duration `yaml:"settle"`
	WakeupSettle time.Duration `yaml:"wakeup_settle"`
}

// OdometerConfig configures the state machine, intervals in seconds.
type OdometerConfig struct {
	Tolerance          int    `yaml:"tolerance"`
	ReportInterval     uint32 `yaml:"report_interval"`
	MinPersistInterval uint32 `yaml:"min_persist_interval"`
	MaxPersistInterval uint32 `yaml:"max_persist_interval"`
	SampleErrors       string `yaml:"sample_errors"`
}

// PersistConfig locates the non-volatile region.
type PersistConfig struct {
	Path   string `yaml:"path"`
	Verify bool   `yaml:"verify"`
}

// MQTTConfig enables the MQTT mirror when URL is set,
// e.g. mqtt://host:port/topic-prefix
type MQTTConfig struct {
	URL string `yaml:"url"`
}

// StatusConfig enables the HTTP status endpoint when Addr is set.
type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		VehicleID: "666666",
		Recipient: "+61404088444",
		Ports: PortsConfig{
			Modem: PortConfig{Addr: "/dev/ttyUSB0", Baud: 115200},
			OBD:   PortConfig{Addr: "/dev/ttyUSB1", Baud: 9600},
		},
		Channels: ChannelConfig{
			InCapacity:  64,
			OutCapacity: 64,
			RegionSize:  50,
			SendTimeout: 5 * time.Second,
			RecvTimeout: 10 * time.Second,
			Poll:        time.Millisecond,
		},
		Modem: ModemConfig{
			Strategy:       "blind",
			BaudRate:       115200,
			Settle:         time.Second,
			TextModeSettle: 5 * time.Second,
			PromptDelay:    2 * time.Second,
			SendDelay:      2 * time.Second,
			SMS:            true,
		},
		OBD: OBDConfig{
			Decoder:      "digitsum",
			Settle:       time.Second,
			WakeupSettle: 5 * time.Second,
		},
		Odometer: OdometerConfig{
			Tolerance:          10,
			ReportInterval:     60,
			MinPersistInterval: 120,
			MaxPersistInterval: 3600,
			SampleErrors:       "fallback",
		},
		Persist: PersistConfig{Path: "odometer.nvm", Verify: true},
		Tick:    time.Second,
	}
}

// Decode reads YAML from r on top of the current values.
// Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := c.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides values from the environment.
func (c *Config) ApplyEnv() {
	if val := os.Getenv(EnvMQTTURL); val != "" {
		c.MQTT.URL = val
	}
}

// SetupFlags registers the command line flags overriding c.
func (c *Config) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.UnitID, "id", c.UnitID, "Unit ID, machine ID by default")
	fs.StringVar(&c.VehicleID, "vehicle", c.VehicleID, "Vehicle ID in reports")
	fs.StringVar(&c.Recipient, "recipient", c.Recipient, "SMS recipient")
	fs.StringVar(&c.Ports.Modem.Addr, "modem", c.Ports.Modem.Addr, "Modem port")
	fs.StringVar(&c.Ports.OBD.Addr, "obd", c.Ports.OBD.Addr, "Diagnostics adapter port")
	fs.StringVar(&c.Ports.Console.Addr, "console", c.Ports.Console.Addr, "Debug console port")
	fs.StringVar(&c.Modem.Strategy, "modem-strategy", c.Modem.Strategy, "Modem command strategy: blind, confirmed")
	fs.StringVar(&c.OBD.Decoder, "decoder", c.OBD.Decoder, "Speed decoder: digitsum, positional")
	fs.StringVar(&c.Persist.Path, "nvm", c.Persist.Path, "File keeping the odometer")
	fs.StringVar(&c.MQTT.URL, "mqtt", c.MQTT.URL, "MQTT broker URL")
	fs.StringVar(&c.Status.Addr, "status", c.Status.Addr, "HTTP status listen address")
}

// FromEnv loads the file named by TRACKER_CONFIG if set, or the defaults,
// then applies the environment.
func FromEnv() (*Config, error) {
	c := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}
	c.ApplyEnv()
	return c, nil
}
