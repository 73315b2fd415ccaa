// Package report fans odometer reports out to multiple reporters.
package report

import (
	"context"

	fx "github.com/robotalks/tracker.go/pkg/framework"
	"github.com/robotalks/tracker.go/pkg/odometer"
)

// Mux delivers a report to every Reporter and aggregates the errors.
type Mux struct {
	Reporters []odometer.Reporter
}

// Add adds more reporters, nil ones are skipped.
func (m *Mux) Add(reporters ...odometer.Reporter) *Mux {
	for _, r := range reporters {
		if r != nil {
			m.Reporters = append(m.Reporters, r)
		}
	}
	return m
}

// Report implements odometer.Reporter.
func (m *Mux) Report(ctx context.Context, odo int64) error {
	var errs fx.AggregatedError
	for _, r := range m.Reporters {
		errs.Add(r.Report(ctx, odo))
	}
	return errs.Aggregate()
}

// Runnables returns the reporters which need to run in background.
func (m *Mux) Runnables() (runnables []fx.Runnable) {
	for _, r := range m.Reporters {
		if runnable, ok := r.(fx.Runnable); ok {
			runnables = append(runnables, runnable)
		}
	}
	return
}
