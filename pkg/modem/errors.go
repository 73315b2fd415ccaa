package modem

import (
	"errors"
	"fmt"
)

// ErrNoResponse indicates the modem didn't finish a command in time.
var ErrNoResponse = errors.New("no response from modem")

// CommandError is a command rejected by the modem.
type CommandError struct {
	Command  string
	Response string
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("modem command %q failed: %s", e.Command, e.Response)
}
