// Package tick is the one second timer interrupt.
package tick

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/l0/irq"
)

// DefaultPeriod is the timer period.
const DefaultPeriod = time.Second

// Ticker is advanced by every timer interrupt.
type Ticker interface {
	Tick()
}

// Requester issues the per tick diagnostics request.
type Requester interface {
	RequestSpeed(ctx context.Context) error
}

// Source raises the timer line every period. The handler advances the
// Ticker and schedules one request, which is sent by Run outside the
// interrupt context. Requests scheduled while one is pending coalesce.
type Source struct {
	Period    time.Duration
	Ticker    Ticker
	Requester Requester

	line     *irq.Line
	requests chan struct{}
}

// New creates a Source on ctl.
func New(ctl *irq.Controller, ticker Ticker, requester Requester) *Source {
	s := &Source{
		Period:    DefaultPeriod,
		Ticker:    ticker,
		Requester: requester,
		requests:  make(chan struct{}, 1),
	}
	s.line = ctl.NewLine("timer", irq.HandlerFunc(s.handleTimer), true)
	return s
}

// Line returns the timer interrupt line.
func (s *Source) Line() *irq.Line {
	return s.line
}

func (s *Source) handleTimer() {
	if s.Ticker != nil {
		s.Ticker.Tick()
	}
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// Name implements framework.Named.
func (s *Source) Name() string {
	return "tick"
}

// Run implements framework.Runnable. Requests are sent from their own
// goroutine so a slow request never delays the timer.
func (s *Source) Run(ctx context.Context) error {
	period := s.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.sendRequests(ctx)
	}()
	defer func() { <-done }()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.line.Raise()
		}
	}
}

func (s *Source) sendRequests(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.requests:
			if s.Requester == nil {
				continue
			}
			if err := s.Requester.RequestSpeed(ctx); err != nil && ctx.Err() == nil {
				glog.Warningf("speed request failed: %v", err)
			}
		}
	}
}
