package serial

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates a bounded wait expired.
	ErrTimeout = errors.New("timeout")
	// ErrTooLarge indicates a message doesn't fit in the outbound buffer.
	ErrTooLarge = errors.New("message exceeds buffer capacity")
	// ErrOverflow indicates the received bytes don't fit in the read region.
	// The region is filled and the remaining bytes are dropped.
	ErrOverflow = errors.New("receive region overflow")
)

// ChannelError wraps an error with the channel and operation.
type ChannelError struct {
	Channel string
	Op      string
	Err     error
}

// Error implements error.
func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Channel, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ChannelError) Unwrap() error {
	return e.Err
}
