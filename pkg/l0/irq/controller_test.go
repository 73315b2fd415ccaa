package irq

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	n int
}

func (h *countingHandler) HandleIRQ() {
	h.n++
}

func TestRaiseDisabled(t *testing.T) {
	ctl := NewController()
	var latched, dropped countingHandler
	ll := ctl.NewLine("latched", &latched, true)
	dl := ctl.NewLine("dropped", &dropped, false)

	require.False(t, ll.Raise())
	require.False(t, ll.Raise())
	require.False(t, dl.Raise())
	require.True(t, ll.Pending())
	require.Equal(t, uint64(1), dl.Dropped())
	require.Equal(t, uint64(1), ctl.Dropped())

	ctl.Enable()
	require.Equal(t, 1, latched.n, "pending events coalesce")
	require.Equal(t, 0, dropped.n)
	require.False(t, ll.Pending())

	require.True(t, dl.Raise())
	require.Equal(t, 1, dropped.n)
}

func TestMask(t *testing.T) {
	ctl := NewController()
	ctl.Enable()
	var h countingHandler
	l := ctl.NewLine("tx", &h, true)

	l.Mask()
	require.False(t, l.Raise())
	require.Equal(t, 0, h.n)
	l.Unmask()
	require.Equal(t, 1, h.n)
	require.True(t, l.Raise())
	require.Equal(t, 2, h.n)
}

func TestUnmaskWhileDisabled(t *testing.T) {
	ctl := NewController()
	var h countingHandler
	l := ctl.NewLine("tx", &h, true)
	l.Mask()
	l.Raise()
	l.Unmask()
	require.Equal(t, 0, h.n)
	ctl.Enable()
	require.Equal(t, 1, h.n)
}

func TestCriticalRestoresState(t *testing.T) {
	ctl := NewController()
	var h countingHandler
	l := ctl.NewLine("timer", &h, true)

	// disabled before: stays disabled
	require.NoError(t, ctl.Critical(func() error {
		require.False(t, ctl.Enabled())
		return nil
	}))
	require.False(t, ctl.Enabled())

	ctl.Enable()
	errCritical := errors.New("write failed")
	err := ctl.Critical(func() error {
		require.False(t, ctl.Enabled())
		require.False(t, l.Raise())
		return errCritical
	})
	require.Equal(t, errCritical, err)
	require.True(t, ctl.Enabled())
	require.Equal(t, 1, h.n, "latched event served on restore")
}

func TestHandlersSerialized(t *testing.T) {
	ctl := NewController()
	ctl.Enable()
	var active, overlaps int
	var mu sync.Mutex
	h := HandlerFunc(func() {
		mu.Lock()
		active++
		if active > 1 {
			overlaps++
		}
		mu.Unlock()
		mu.Lock()
		active--
		mu.Unlock()
	})
	lines := []*Line{ctl.NewLine("a", h, false), ctl.NewLine("b", h, false)}
	var wg sync.WaitGroup
	for _, l := range lines {
		wg.Add(1)
		go func(l *Line) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				l.Raise()
			}
		}(l)
	}
	wg.Wait()
	require.Zero(t, overlaps)
}

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Inc()
	require.Equal(t, uint32(2), c.Load())
	require.Equal(t, uint32(2), c.Reset())
	require.Zero(t, c.Load())

	var f Flag
	require.False(t, f.IsSet())
	f.Set()
	require.True(t, f.IsSet())
	f.Clear()
	require.False(t, f.IsSet())
}
