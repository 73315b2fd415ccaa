// Package obd polls vehicle speed through an ELM327 style diagnostics adapter.
package obd

// Commands
const (
	CmdEchoOff     = "ATE0"
	CmdLinefeedOff = "ATL0"
	CmdHeadersOff  = "ATH0"
	CmdFormat      = "ATFD"
	CmdWakeup      = "0100"
	CmdSpeed       = "010D"
	CommandSuffix  = "\r"
)

// Offsets of the speed payload digits in a response.
const (
	PayloadOffset = 3
	PayloadLen    = 2
)
