// Package odometer integrates speed samples into an odometer.
package odometer

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/l0/irq"
)

// Transition is the branch taken for a sample.
type Transition int

const (
	// Normal accepts the sample.
	Normal Transition = iota
	// Stationary is a zero sample out of tolerance, the odometer holds.
	Stationary
	// Rogue is a sample out of tolerance, the last speed is added instead.
	Rogue
	// Skipped is a failed sample ignored by SkipOnError.
	Skipped
)

var transitionNames = [...]string{"normal", "stationary", "rogue", "skipped"}

// String implements Stringer.
func (t Transition) String() string {
	if int(t) < len(transitionNames) {
		return transitionNames[t]
	}
	return "unknown"
}

// SampleSource produces speed samples.
type SampleSource interface {
	NextSample(ctx context.Context) (int, error)
}

// Store persists the odometer.
type Store interface {
	Save(odometer int64) error
}

// Reporter delivers periodic reports.
type Reporter interface {
	Report(ctx context.Context, odometer int64) error
}

// ReportFunc is the func form of Reporter.
type ReportFunc func(ctx context.Context, odometer int64) error

// Report implements Reporter.
func (f ReportFunc) Report(ctx context.Context, odometer int64) error {
	return f(ctx, odometer)
}

// Counters are the seconds since the last report and persist.
type Counters struct {
	SinceReport  irq.Counter
	SincePersist irq.Counter
}

// Tick advances both counters, it's called from the timer interrupt.
func (c *Counters) Tick() {
	c.SinceReport.Inc()
	c.SincePersist.Inc()
}

// State is owned by the foreground loop.
type State struct {
	Odometer  int64
	LastSpeed int
	Persisted bool
}

// Event describes one step of the machine.
type Event struct {
	Sample     int
	SampleErr  error
	Transition Transition
	State      State
	Saved      bool
	SaveErr    error
}

// ReportEvent describes one report.
type ReportEvent struct {
	Odometer int64
	Err      error
}

// Observer is notified from the foreground loop.
type Observer interface {
	OnStep(Event)
	OnReport(ReportEvent)
}

// Snapshot is a copy of the machine state safe to read from any goroutine.
type Snapshot struct {
	State
	SinceReport  uint32
	SincePersist uint32
	Steps        map[string]uint64
	Saves        uint64
	Reports      uint64
	LastSample   time.Time
	LastReport   time.Time
	LastError    string
}

// Machine is the odometer state machine.
type Machine struct {
	Config   Config
	Counters *Counters
	Source   SampleSource
	Store    Store
	Reporter Reporter

	state     State
	observers []Observer

	lock       sync.RWMutex
	snapshot   Snapshot
	transCount [len(transitionNames)]uint64
}

// New creates a Machine starting from initial.
func New(conf Config, counters *Counters, initial State) *Machine {
	if counters == nil {
		counters = &Counters{}
	}
	m := &Machine{Config: conf, Counters: counters, state: initial}
	m.snapshot.State = initial
	return m
}

// AddObserver registers observers, it must be called before Run.
func (m *Machine) AddObserver(observers ...Observer) *Machine {
	m.observers = append(m.observers, observers...)
	return m
}

// State returns the current state, only safe in the foreground loop.
func (m *Machine) State() State {
	return m.state
}

// Step applies one sample.
func (m *Machine) Step(sample int) Transition {
	ev := Event{Sample: sample}
	diff := sample - m.state.LastSpeed
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < m.Config.Tolerance:
		ev.Transition = Normal
		m.state.Odometer += int64(sample)
		m.state.LastSpeed = sample
		m.state.Persisted = false
		if m.Counters.SincePersist.Load() > m.Config.MaxPersistInterval {
			m.persist(&ev)
		}
	case sample == 0:
		ev.Transition = Stationary
		if !m.state.Persisted && m.Counters.SincePersist.Load() > m.Config.MinPersistInterval {
			m.persist(&ev)
		}
	default:
		ev.Transition = Rogue
		m.state.Persisted = false
		m.state.Odometer += int64(m.state.LastSpeed)
	}
	m.publish(ev)
	return ev.Transition
}

// StepError applies a failed sample according to the policy.
// It returns the error only with FailOnError.
func (m *Machine) StepError(err error) (Transition, error) {
	ev := Event{SampleErr: err}
	switch m.Config.SampleErrors {
	case FailOnError:
		return Skipped, err
	case SkipOnError:
		ev.Transition = Skipped
	default:
		ev.Transition = Rogue
		m.state.Persisted = false
		m.state.Odometer += int64(m.state.LastSpeed)
	}
	glog.Warningf("sample failed (%s): %v", ev.Transition, err)
	m.publish(ev)
	return ev.Transition, nil
}

func (m *Machine) persist(ev *Event) {
	if m.Store == nil {
		return
	}
	if err := m.Store.Save(m.state.Odometer); err != nil {
		glog.Errorf("persist odometer %d failed: %v", m.state.Odometer, err)
		ev.SaveErr = err
		return
	}
	m.state.Persisted = true
	m.Counters.SincePersist.Reset()
	ev.Saved = true
	glog.V(1).Infof("odometer %d persisted", m.state.Odometer)
}

// ReportIfDue sends a report when the report interval has elapsed.
// The counter is reset even if the report fails.
func (m *Machine) ReportIfDue(ctx context.Context) bool {
	if m.Counters.SinceReport.Load() <= m.Config.ReportInterval {
		return false
	}
	ev := ReportEvent{Odometer: m.state.Odometer}
	if m.Reporter != nil {
		ev.Err = m.Reporter.Report(ctx, ev.Odometer)
	}
	if ev.Err != nil {
		glog.Errorf("report odometer %d failed: %v", ev.Odometer, ev.Err)
	} else {
		glog.V(1).Infof("odometer %d reported", ev.Odometer)
	}
	m.Counters.SinceReport.Reset()

	m.lock.Lock()
	m.snapshot.Reports++
	m.snapshot.LastReport = time.Now()
	if ev.Err != nil {
		m.snapshot.LastError = ev.Err.Error()
	}
	m.lock.Unlock()
	for _, o := range m.observers {
		o.OnReport(ev)
	}
	return true
}

// Iterate runs one iteration of the loop: report if due, then wait for a
// sample and apply it.
func (m *Machine) Iterate(ctx context.Context) error {
	m.ReportIfDue(ctx)
	sample, err := m.Source.NextSample(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err = m.StepError(err)
		return err
	}
	m.Step(sample)
	return nil
}

// Run iterates until ctx is done or a sample fails with FailOnError.
func (m *Machine) Run(ctx context.Context) error {
	for {
		if err := m.Iterate(ctx); err != nil {
			return err
		}
	}
}

// Name implements framework.Named.
func (m *Machine) Name() string {
	return "odometer"
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.lock.RLock()
	defer m.lock.RUnlock()
	s := m.snapshot
	s.SinceReport = m.Counters.SinceReport.Load()
	s.SincePersist = m.Counters.SincePersist.Load()
	s.Steps = make(map[string]uint64, len(m.transCount))
	for i, n := range m.transCount {
		s.Steps[transitionNames[i]] = n
	}
	return s
}

func (m *Machine) publish(ev Event) {
	ev.State = m.state
	m.lock.Lock()
	m.snapshot.State = m.state
	m.transCount[ev.Transition]++
	m.snapshot.LastSample = time.Now()
	if ev.Saved {
		m.snapshot.Saves++
	}
	switch {
	case ev.SampleErr != nil:
		m.snapshot.LastError = ev.SampleErr.Error()
	case ev.SaveErr != nil:
		m.snapshot.LastError = ev.SaveErr.Error()
	}
	m.lock.Unlock()
	for _, o := range m.observers {
		o.OnStep(ev)
	}
}
