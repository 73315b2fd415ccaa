package obd

import "errors"

var (
	// ErrShortResponse indicates the response doesn't reach the payload.
	ErrShortResponse = errors.New("response too short")
	// ErrNoHexDigits indicates the payload has no hex digit.
	ErrNoHexDigits = errors.New("no hex digits in response")
)
