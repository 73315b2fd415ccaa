package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/tracker.go/pkg/framework"
	"github.com/robotalks/tracker.go/pkg/odometer"
)

type runReporter struct {
	odometer.ReportFunc
}

func (r *runReporter) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestMux(t *testing.T) {
	var got []int64
	ok := odometer.ReportFunc(func(ctx context.Context, v int64) error {
		got = append(got, v)
		return nil
	})
	fail := odometer.ReportFunc(func(ctx context.Context, v int64) error {
		return errors.New("offline")
	})

	m := (&Mux{}).Add(ok, nil)
	require.NoError(t, m.Report(context.Background(), 42))
	require.Equal(t, []int64{42}, got)

	m.Add(&runReporter{ReportFunc: fail}, ok)
	err := m.Report(context.Background(), 43)
	require.Error(t, err)
	require.Len(t, err.(*fx.AggregatedError).Errors, 1)
	require.Equal(t, []int64{42, 43, 43}, got)
	require.Len(t, m.Runnables(), 1)
}
