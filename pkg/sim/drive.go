package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Leg drives towards Speed (km/h) with Accel (km/h per second) and holds
// it for Hold. Zero Accel changes the speed immediately.
type Leg struct {
	Speed float64
	Accel float64
	Hold  time.Duration
}

// ramp is the time to reach the leg speed from a start speed.
func (l Leg) ramp(from float64) time.Duration {
	diff := math.Abs(l.Speed - from)
	if l.Accel == 0 || diff == 0 {
		return 0
	}
	return time.Duration(diff * float64(time.Second) / math.Abs(l.Accel))
}

// Drive is a trip profile repeated in a loop. The last leg's speed is
// where each loop starts.
type Drive struct {
	Legs []Leg
	Now  func() time.Time

	lock  sync.Mutex
	start time.Time
}

// NewDrive creates a Drive on the wall clock.
func NewDrive(legs ...Leg) *Drive {
	return &Drive{Legs: legs, Now: time.Now}
}

// Source returns the Drive as a SpeedSource.
func (d *Drive) Source() SpeedSource {
	return d.Speed
}

func (d *Drive) loopDuration() (total time.Duration) {
	from := d.Legs[len(d.Legs)-1].Speed
	for _, leg := range d.Legs {
		total += leg.ramp(from) + leg.Hold
		from = leg.Speed
	}
	return
}

// Speed returns the current speed, the clock starts on the first call.
func (d *Drive) Speed() int {
	if len(d.Legs) == 0 {
		return 0
	}
	d.lock.Lock()
	now := d.Now()
	if d.start.IsZero() {
		d.start = now
	}
	elapsed := now.Sub(d.start)
	d.lock.Unlock()
	return d.speedAt(elapsed)
}

func (d *Drive) speedAt(elapsed time.Duration) int {
	if total := d.loopDuration(); total > 0 {
		elapsed %= total
	} else {
		elapsed = 0
	}
	from := d.Legs[len(d.Legs)-1].Speed
	for _, leg := range d.Legs {
		ramp := leg.ramp(from)
		if elapsed < ramp {
			secs := elapsed.Seconds()
			accel := math.Abs(leg.Accel)
			if leg.Speed < from {
				accel = -accel
			}
			return clampSpeed(from + accel*secs)
		}
		elapsed -= ramp
		if elapsed < leg.Hold {
			return clampSpeed(leg.Speed)
		}
		elapsed -= leg.Hold
		from = leg.Speed
	}
	return clampSpeed(from)
}

func clampSpeed(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return int(math.Round(v))
}

// ParseDrive parses legs of SPEED[:ACCEL[:HOLD]] separated by commas,
// e.g. 60:5:30s,0:10:10s. HOLD is a duration, plain numbers are seconds.
func ParseDrive(s string) ([]Leg, error) {
	var legs []Leg
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) > 3 {
			return nil, fmt.Errorf("invalid leg %q", item)
		}
		var leg Leg
		var err error
		if leg.Speed, err = strconv.ParseFloat(parts[0], 64); err != nil || leg.Speed < 0 || leg.Speed > 255 {
			return nil, fmt.Errorf("invalid leg speed %q", item)
		}
		if len(parts) > 1 {
			if leg.Accel, err = strconv.ParseFloat(parts[1], 64); err != nil {
				return nil, fmt.Errorf("invalid leg accel %q", item)
			}
		}
		if len(parts) > 2 {
			if leg.Hold, err = parseHold(parts[2]); err != nil {
				return nil, fmt.Errorf("invalid leg hold %q: %w", item, err)
			}
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

func parseHold(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
