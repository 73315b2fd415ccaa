// Package persist keeps the odometer in a non-volatile region.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/robotalks/tracker.go/pkg/l0/irq"
)

var (
	// ErrOutOfRange indicates the value doesn't fit in the region.
	ErrOutOfRange = errors.New("value out of range")
	// ErrCorrupt indicates the region doesn't hold a numeral.
	ErrCorrupt = errors.New("corrupt region")
	// ErrVerify indicates the readback differs from what was written.
	ErrVerify = errors.New("write verify failed")
)

// MaxValue is the largest value the region holds.
const MaxValue = 9999999

// Encode formats v as a zero-padded numeral filling the region.
func Encode(v int64) ([]byte, error) {
	if v < 0 || v > MaxValue {
		return nil, fmt.Errorf("%d: %w", v, ErrOutOfRange)
	}
	return []byte(fmt.Sprintf("%0*d", Size, v)), nil
}

// Decode parses the region. Trailing NUL or erased (0xFF) bytes are
// ignored and an empty region is zero.
func Decode(p []byte) (int64, error) {
	p = bytes.TrimRight(p, "\x00\xff")
	if len(p) == 0 {
		return 0, nil
	}
	for _, b := range p {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%q: %w", p, ErrCorrupt)
		}
	}
	v, err := strconv.ParseInt(string(p), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", p, ErrCorrupt)
	}
	return v, nil
}

// Store reads and writes the odometer with interrupts disabled.
type Store struct {
	Region     Region
	Controller *irq.Controller
	// Verify reads back every write.
	Verify bool
}

// New creates a Store.
func New(region Region, ctl *irq.Controller) *Store {
	return &Store{Region: region, Controller: ctl}
}

func (s *Store) critical(fn func() error) error {
	if s.Controller == nil {
		return fn()
	}
	return s.Controller.Critical(fn)
}

// Load reads the stored odometer.
func (s *Store) Load() (v int64, err error) {
	err = s.critical(func() error {
		data, err := s.Region.ReadRegion()
		if err != nil {
			return fmt.Errorf("read region: %w", err)
		}
		v, err = Decode(data)
		return err
	})
	return
}

// Save stores v, values that don't fit are rejected.
func (s *Store) Save(v int64) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return s.critical(func() error {
		if err := s.Region.WriteRegion(data); err != nil {
			return fmt.Errorf("write region: %w", err)
		}
		if !s.Verify {
			return nil
		}
		readback, err := s.Region.ReadRegion()
		if err != nil {
			return fmt.Errorf("read region: %w", err)
		}
		if len(readback) < len(data) || !bytes.Equal(readback[:len(data)], data) {
			return fmt.Errorf("%q != %q: %w", readback, data, ErrVerify)
		}
		return nil
	})
}
