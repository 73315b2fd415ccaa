package obd

import (
	"bytes"
	"fmt"
)

// Decoder extracts the speed from a response.
type Decoder func(resp []byte) (int, error)

// Decoder names
const (
	DecoderDigitSum   = "digitsum"
	DecoderPositional = "positional"
)

// DecoderByName looks up a Decoder, empty name is DecodeDigitSum.
func DecoderByName(name string) (Decoder, error) {
	switch name {
	case "", DecoderDigitSum:
		return DecodeDigitSum, nil
	case DecoderPositional:
		return DecodePositional, nil
	}
	return nil, fmt.Errorf("unknown decoder %q", name)
}

func hexValue(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	}
	return 0, false
}

func payload(resp []byte) ([]byte, error) {
	resp = bytes.TrimRight(resp, "\x00")
	if len(resp) < PayloadOffset+PayloadLen {
		return nil, fmt.Errorf("%q: %w", resp, ErrShortResponse)
	}
	return resp[PayloadOffset : PayloadOffset+PayloadLen], nil
}

// DecodeDigitSum adds the values of the two payload digits, so "1F" is 16.
// This is how deployed units have always computed speed. A byte that isn't
// a hex digit contributes nothing.
func DecodeDigitSum(resp []byte) (int, error) {
	p, err := payload(resp)
	if err != nil {
		return 0, err
	}
	sum, found := 0, false
	for _, b := range p {
		if v, ok := hexValue(b); ok {
			sum += v
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("%q: %w", p, ErrNoHexDigits)
	}
	return sum, nil
}

// DecodePositional reads the payload as a hex number, so "1F" is 31.
func DecodePositional(resp []byte) (int, error) {
	p, err := payload(resp)
	if err != nil {
		return 0, err
	}
	val, found := 0, false
	for _, b := range p {
		v, ok := hexValue(b)
		if ok {
			found = true
		}
		val = val*16 + v
	}
	if !found {
		return 0, fmt.Errorf("%q: %w", p, ErrNoHexDigits)
	}
	return val, nil
}
