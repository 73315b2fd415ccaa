package odometer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	saved []int64
	err   error
}

func (s *memStore) Save(v int64) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, v)
	return nil
}

type sampleSeq struct {
	samples []int
	errs    []error
}

func (s *sampleSeq) NextSample(ctx context.Context) (int, error) {
	if len(s.samples) == 0 {
		return 0, context.Canceled
	}
	v, err := s.samples[0], s.errs[0]
	s.samples, s.errs = s.samples[1:], s.errs[1:]
	return v, err
}

func (s *sampleSeq) add(v int, err error) *sampleSeq {
	s.samples = append(s.samples, v)
	s.errs = append(s.errs, err)
	return s
}

type recorder struct {
	steps   []Event
	reports []ReportEvent
}

func (r *recorder) OnStep(ev Event)         { r.steps = append(r.steps, ev) }
func (r *recorder) OnReport(ev ReportEvent) { r.reports = append(r.reports, ev) }

func TestScenario(t *testing.T) {
	m := New(DefaultConfig(), nil, State{LastSpeed: 5})
	var transitions []Transition
	for _, s := range []int{5, 7, 6, 60, 6} {
		transitions = append(transitions, m.Step(s))
	}
	require.Equal(t, []Transition{Normal, Normal, Normal, Rogue, Normal}, transitions)
	require.EqualValues(t, 5+7+6+6+6, m.State().Odometer)
	require.Equal(t, 6, m.State().LastSpeed)
}

func TestTransitions(t *testing.T) {
	m := New(DefaultConfig(), nil, State{LastSpeed: 50})
	require.Equal(t, Normal, m.Step(59))
	require.Equal(t, 59, m.State().LastSpeed)
	require.Equal(t, Rogue, m.Step(69))
	require.Equal(t, 59, m.State().LastSpeed)
	require.Equal(t, Stationary, m.Step(0))
	require.EqualValues(t, 59+59, m.State().Odometer)
	require.Equal(t, 59, m.State().LastSpeed)

	m = New(DefaultConfig(), nil, State{LastSpeed: 9})
	require.Equal(t, Normal, m.Step(0), "zero within tolerance is normal")
	require.Equal(t, 0, m.State().LastSpeed)
}

func TestOdometerNonDecreasing(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	m := New(DefaultConfig(), nil, State{})
	m.Store = &memStore{}
	prev := m.State().Odometer
	for i := 0; i < 10000; i++ {
		if rnd.Intn(50) == 0 {
			m.Counters.SincePersist.Inc()
		}
		var s int
		if rnd.Intn(4) > 0 {
			s = rnd.Intn(100)
		}
		m.Step(s)
		require.GreaterOrEqual(t, m.State().Odometer, prev)
		prev = m.State().Odometer
	}
}

func TestStationaryPersistsOncePerCycle(t *testing.T) {
	store := &memStore{}
	m := New(DefaultConfig(), nil, State{Odometer: 100, LastSpeed: 40})
	m.Store = store

	for i := 0; i < 121; i++ {
		m.Counters.Tick()
	}
	require.Equal(t, Stationary, m.Step(0))
	require.Equal(t, []int64{100}, store.saved)
	require.True(t, m.State().Persisted)
	require.Zero(t, m.Counters.SincePersist.Load())

	for i := 0; i < 500; i++ {
		m.Counters.Tick()
	}
	require.Equal(t, Stationary, m.Step(0))
	require.Len(t, store.saved, 1, "already persisted this cycle")

	require.Equal(t, Rogue, m.Step(20))
	require.False(t, m.State().Persisted)
	require.Equal(t, Stationary, m.Step(0))
	require.Equal(t, []int64{100, 140}, store.saved)
}

func TestStationaryBelowMinInterval(t *testing.T) {
	store := &memStore{}
	m := New(DefaultConfig(), nil, State{LastSpeed: 40})
	m.Store = store
	for i := 0; i < 120; i++ {
		m.Counters.Tick()
	}
	require.Equal(t, Stationary, m.Step(0))
	require.Empty(t, store.saved)
}

func TestNormalPersistsAfterMaxInterval(t *testing.T) {
	store := &memStore{}
	m := New(DefaultConfig(), nil, State{LastSpeed: 30})
	m.Store = store
	for i := 0; i < 3600; i++ {
		m.Counters.Tick()
	}
	m.Step(30)
	require.Empty(t, store.saved)
	m.Counters.Tick()
	m.Step(31)
	require.Equal(t, []int64{61}, store.saved)
	require.True(t, m.State().Persisted)
	require.Zero(t, m.Counters.SincePersist.Load())
}

func TestPersistFailureRetries(t *testing.T) {
	store := &memStore{err: errors.New("eeprom")}
	rec := &recorder{}
	m := New(DefaultConfig(), nil, State{Odometer: 7, LastSpeed: 40})
	m.Store = store
	m.AddObserver(rec)
	for i := 0; i < 121; i++ {
		m.Counters.Tick()
	}
	m.Step(0)
	require.False(t, m.State().Persisted)
	require.EqualValues(t, 121, m.Counters.SincePersist.Load())
	require.Error(t, rec.steps[0].SaveErr)

	store.err = nil
	m.Step(0)
	require.Equal(t, []int64{7}, store.saved)
	require.True(t, rec.steps[1].Saved)
}

func TestReportIfDue(t *testing.T) {
	var reported []int64
	fail := false
	m := New(DefaultConfig(), nil, State{Odometer: 3600})
	m.Reporter = ReportFunc(func(ctx context.Context, v int64) error {
		reported = append(reported, v)
		if fail {
			return errors.New("no network")
		}
		return nil
	})
	for i := 0; i < 60; i++ {
		m.Counters.Tick()
	}
	require.False(t, m.ReportIfDue(context.Background()))
	m.Counters.Tick()
	require.True(t, m.ReportIfDue(context.Background()))
	require.Equal(t, []int64{3600}, reported)
	require.Zero(t, m.Counters.SinceReport.Load())

	fail = true
	for i := 0; i < 61; i++ {
		m.Counters.Tick()
	}
	require.True(t, m.ReportIfDue(context.Background()))
	require.Zero(t, m.Counters.SinceReport.Load(), "counter resets on failure")
	require.Equal(t, "no network", m.Snapshot().LastError)
	require.EqualValues(t, 2, m.Snapshot().Reports)
}

func TestSampleErrorPolicies(t *testing.T) {
	sampleErr := errors.New("short")

	m := New(DefaultConfig(), nil, State{Odometer: 10, LastSpeed: 4})
	m.Source = (&sampleSeq{}).add(0, sampleErr)
	require.NoError(t, m.Iterate(context.Background()))
	require.EqualValues(t, 14, m.State().Odometer)

	conf := DefaultConfig()
	conf.SampleErrors = SkipOnError
	m = New(conf, nil, State{Odometer: 10, LastSpeed: 4})
	m.Source = (&sampleSeq{}).add(0, sampleErr)
	require.NoError(t, m.Iterate(context.Background()))
	require.EqualValues(t, 10, m.State().Odometer)
	require.EqualValues(t, 1, m.Snapshot().Steps["skipped"])

	conf.SampleErrors = FailOnError
	m = New(conf, nil, State{Odometer: 10, LastSpeed: 4})
	m.Source = (&sampleSeq{}).add(0, sampleErr)
	require.Equal(t, sampleErr, m.Iterate(context.Background()))
}

func TestRun(t *testing.T) {
	rec := &recorder{}
	src := (&sampleSeq{}).add(5, nil).add(7, nil).add(6, nil).add(60, nil).add(6, nil)
	m := New(DefaultConfig(), nil, State{LastSpeed: 5})
	m.Source = src
	m.AddObserver(rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Run(ctx)
	require.Equal(t, context.Canceled, err)
	require.Len(t, rec.steps, 5)
	require.Equal(t, Rogue, rec.steps[3].Transition)
	require.EqualValues(t, 30, rec.steps[4].State.Odometer)

	snap := m.Snapshot()
	require.EqualValues(t, 30, snap.Odometer)
	require.EqualValues(t, 4, snap.Steps["normal"])
	require.EqualValues(t, 1, snap.Steps["rogue"])
}

func TestParseSampleErrorPolicy(t *testing.T) {
	for _, name := range []string{"fallback", "skip", "fail"} {
		p, err := ParseSampleErrorPolicy(name)
		require.NoError(t, err)
		require.Equal(t, name, p.String())
	}
	_, err := ParseSampleErrorPolicy("retry")
	require.Error(t, err)
}

func TestSnapshotCountsTransitions(t *testing.T) {
	m := New(DefaultConfig(), nil, State{LastSpeed: 5})
	for _, s := range []int{5, 7, 6, 60, 6, 0} {
		m.Step(s)
	}
	snap := m.Snapshot()
	require.Equal(t, map[string]uint64{
		"normal":     4,
		"stationary": 0,
		"rogue":      1,
		"skipped":    0,
	}, snap.Steps)
	require.Equal(t, "skipped", Skipped.String())
	require.Equal(t, "unknown", Transition(len(transitionNames)).String())
}
