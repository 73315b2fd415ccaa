package odometer

import "fmt"

// SampleErrorPolicy decides what a failed sample does to the odometer.
type SampleErrorPolicy int

const (
	// FallbackOnError treats the tick as rogue: the last speed is added.
	FallbackOnError SampleErrorPolicy = iota
	// SkipOnError leaves the state unchanged.
	SkipOnError
	// FailOnError stops the loop with the error.
	FailOnError
)

// ParseSampleErrorPolicy parses "fallback", "skip" or "fail".
func ParseSampleErrorPolicy(s string) (SampleErrorPolicy, error) {
	switch s {
	case "", "fallback":
		return FallbackOnError, nil
	case "skip":
		return SkipOnError, nil
	case "fail":
		return FailOnError, nil
	}
	return FallbackOnError, fmt.Errorf("unknown sample error policy %q", s)
}

// String implements Stringer.
func (p SampleErrorPolicy) String() string {
	switch p {
	case SkipOnError:
		return "skip"
	case FailOnError:
		return "fail"
	}
	return "fallback"
}

// Config defines the thresholds, intervals are in ticks (seconds).
type Config struct {
	Tolerance          int
	ReportInterval     uint32
	MinPersistInterval uint32
	MaxPersistInterval uint32
	SampleErrors       SampleErrorPolicy
}

// DefaultConfig returns the values the trackers are deployed with.
func DefaultConfig() Config {
	return Config{
		Tolerance:          10,
		ReportInterval:     60,
		MinPersistInterval: 120,
		MaxPersistInterval: 3600,
		SampleErrors:       FallbackOnError,
	}
}
