// Package tracker assembles the tracker from its configuration.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/config"
	"github.com/robotalks/tracker.go/pkg/console"
	"github.com/robotalks/tracker.go/pkg/env"
	fx "github.com/robotalks/tracker.go/pkg/framework"
	"github.com/robotalks/tracker.go/pkg/l0/irq"
	"github.com/robotalks/tracker.go/pkg/l0/port"
	"github.com/robotalks/tracker.go/pkg/l0/serial"
	"github.com/robotalks/tracker.go/pkg/modem"
	"github.com/robotalks/tracker.go/pkg/obd"
	"github.com/robotalks/tracker.go/pkg/odometer"
	"github.com/robotalks/tracker.go/pkg/persist"
	"github.com/robotalks/tracker.go/pkg/report"
	"github.com/robotalks/tracker.go/pkg/report/mqtt"
	"github.com/robotalks/tracker.go/pkg/report/msgs"
	"github.com/robotalks/tracker.go/pkg/status"
	"github.com/robotalks/tracker.go/pkg/tick"
)

// OpenFunc opens a port address, see port.Open.
type OpenFunc func(addr string, baudRate int) (io.ReadWriteCloser, string, error)

// Tracker is the assembled system.
type Tracker struct {
	Config *config.Config
	UnitID string

	IRQ      *irq.Controller
	Ports    []*port.Port
	Channels []*serial.Channel

	Modem    *modem.Driver
	OBD      *obd.Driver
	Console  *console.Console
	Store    *persist.Store
	Counters *odometer.Counters
	Tick     *tick.Source
	Reports  *report.Mux
	Status   *status.Server

	machine atomic.Pointer[odometer.Machine]
	closers []io.Closer
}

// Machine returns the odometer state machine, nil until the odometer is
// restored.
func (t *Tracker) Machine() *odometer.Machine {
	return t.machine.Load()
}

// New builds a Tracker using port.Open.
func New(conf *config.Config) (*Tracker, error) {
	return NewWithOpener(conf, port.Open)
}

// NewWithOpener builds a Tracker opening ports with open.
// Nothing runs until Run. Ports already opened are closed on failure.
func NewWithOpener(conf *config.Config, open OpenFunc) (*Tracker, error) {
	if err := config.Validate(conf); err != nil {
		return nil, err
	}
	t := &Tracker{
		Config:   conf,
		UnitID:   env.UnitID(conf.UnitID),
		IRQ:      irq.NewController(),
		Counters: &odometer.Counters{},
		Reports:  &report.Mux{},
	}
	if err := t.build(open); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *Tracker) build(open OpenFunc) error {
	conf := t.Config
	modemCh, err := t.openChannel(open, "modem", conf.Ports.Modem, serial.ModemFraming)
	if err != nil {
		return err
	}
	obdCh, err := t.openChannel(open, "obd", conf.Ports.OBD, serial.DiagnosticsFraming)
	if err != nil {
		return err
	}
	if conf.Ports.Console.Addr != "" {
		consoleCh, err := t.openChannel(open, "console", conf.Ports.Console, serial.ModemFraming)
		if err != nil {
			return err
		}
		t.Console = console.New(consoleCh, conf.Channels.OutCapacity+1)
	}

	if err := t.buildDrivers(modemCh, obdCh); err != nil {
		return err
	}
	if err := t.buildReporters(); err != nil {
		return err
	}

	t.Store = persist.New(&persist.FileRegion{Path: conf.Persist.Path}, t.IRQ)
	t.Store.Verify = conf.Persist.Verify

	t.Tick = tick.New(t.IRQ, t.Counters, t.OBD)
	t.Tick.Period = conf.Tick

	if conf.Status.Addr != "" {
		t.Status = status.New(conf.Status.Addr)
	}
	return nil
}

func (t *Tracker) openChannel(open OpenFunc, name string, pc config.PortConfig, framing serial.Framing) (*serial.Channel, error) {
	rwc, desc, err := open(pc.Addr, pc.Baud)
	if err != nil {
		return nil, fmt.Errorf("open %s port: %w", name, err)
	}
	glog.Infof("%s port: %s", name, desc)
	t.closers = append(t.closers, rwc)
	p := port.New(name, rwc)
	cc := t.Config.Channels
	ch := serial.New(t.IRQ, p, serial.Config{
		Name:        name,
		InCapacity:  cc.InCapacity,
		OutCapacity: cc.OutCapacity,
		RegionSize:  cc.RegionSize,
		Framing:     framing,
		SendWait:    serial.Waiter{Poll: cc.Poll, Timeout: cc.SendTimeout},
		RecvWait:    serial.Waiter{Poll: cc.Poll, Timeout: cc.RecvTimeout},
	})
	t.Ports = append(t.Ports, p)
	t.Channels = append(t.Channels, ch)
	return ch, nil
}

func (t *Tracker) buildDrivers(modemCh, obdCh *serial.Channel) error {
	mc := t.Config.Modem
	strategy, err := modem.ParseStrategy(mc.Strategy)
	if err != nil {
		return err
	}
	t.Modem = modem.New(modemCh, modem.Config{
		BaudRate:       mc.BaudRate,
		Strategy:       strategy,
		Settle:         mc.Settle,
		TextModeSettle: mc.TextModeSettle,
		PromptDelay:    mc.PromptDelay,
		SendDelay:      mc.SendDelay,
	})

	oc := t.Config.OBD
	decoder, err := obd.DecoderByName(oc.Decoder)
	if err != nil {
		return err
	}
	if oc.Decoder == obd.DecoderPositional {
		glog.Warning("speed decoded as positional hex, odometer differs from digit-sum units")
	}
	t.OBD = obd.New(obdCh, obd.Config{
		Settle:       oc.Settle,
		WakeupSettle: oc.WakeupSettle,
		Decoder:      decoder,
	})
	return nil
}

func (t *Tracker) buildReporters() error {
	if t.Config.Modem.SMS {
		t.Reports.Add(&modem.Reporter{
			Driver:    t.Modem,
			Recipient: t.Config.Recipient,
			VehicleID: t.Config.VehicleID,
		})
	}
	if url := t.Config.MQTT.URL; url != "" {
		r, err := mqtt.NewReporter(url, msgs.UnitMeta{
			UnitID:    t.UnitID,
			VehicleID: t.Config.VehicleID,
		})
		if err != nil {
			return fmt.Errorf("mqtt reporter: %w", err)
		}
		t.Reports.Add(r)
	}
	return nil
}

func (t *Tracker) newMachine(initial int64) *odometer.Machine {
	oc := t.Config.Odometer
	policy, _ := odometer.ParseSampleErrorPolicy(oc.SampleErrors)
	m := odometer.New(odometer.Config{
		Tolerance:          oc.Tolerance,
		ReportInterval:     oc.ReportInterval,
		MinPersistInterval: oc.MinPersistInterval,
		MaxPersistInterval: oc.MaxPersistInterval,
		SampleErrors:       policy,
	}, t.Counters, odometer.State{Odometer: initial})
	m.Source = t.OBD
	m.Store = t.Store
	m.Reporter = t.Reports
	if t.Console != nil {
		m.AddObserver(t.Console)
	}
	return m
}

// Close closes the ports.
func (t *Tracker) Close() error {
	var errs fx.AggregatedError
	for _, c := range t.closers {
		errs.Add(c.Close())
	}
	t.closers = nil
	return errs.Aggregate()
}

// Name implements framework.Named.
func (t *Tracker) Name() string {
	return "tracker"
}

// Run starts the ports, initializes the devices, restores the odometer and
// runs the odometer loop until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	runner := t.Start(ctx)
	runner.Go(t.Reports.Runnables()...)
	if t.Status != nil {
		t.registerStatus()
		runner.Go(t.Status)
	}

	err := t.run(runner.Context, runner)
	if errors.Is(err, context.Canceled) && runner.Context.Err() != nil {
		err = nil
	}
	runner.Stop()
	var errs fx.AggregatedError
	errs.Add(err, runner.Wait())
	return errs.Aggregate()
}

// Start runs the ports in background and enables interrupts.
// The ports stop when ctx is done or one of them fails, the returned
// Runner waits for them.
func (t *Tracker) Start(ctx context.Context) *fx.Runner {
	runner := fx.NewRunnerWith(ctx)
	for _, p := range t.Ports {
		runner.Go(p.Runner())
	}
	t.IRQ.Enable()
	return runner
}

func (t *Tracker) run(ctx context.Context, runner *fx.Runner) error {
	t.Console.Println("Init complete . . . ")

	if err := t.Modem.Init(ctx); err != nil {
		return fmt.Errorf("modem init: %w", err)
	}
	t.Console.Println("Modem setup done")
	if err := t.OBD.Init(ctx); err != nil {
		return fmt.Errorf("obd init: %w", err)
	}
	t.Console.Println("OBD setup done.")

	odo, err := t.Store.Load()
	if err != nil {
		return fmt.Errorf("load odometer: %w", err)
	}
	glog.Infof("odometer restored: %d", odo)
	t.Console.Println("Startup done, main while loop beginning.")
	t.Console.Printf("\r\n Current odometer reading is :%d", odo)

	m := t.newMachine(odo)
	t.machine.Store(m)
	runner.Go(t.Tick)
	return m.Run(ctx)
}
