// Package modem drives a cellular modem with AT commands.
package modem

import "strings"

// Commands
const (
	CmdEchoOff    = "ATE0"
	CmdTerse      = "ATV0"
	CmdBaudRate   = "AT+IPR="
	CmdSelInt     = "AT#SELINT=2"
	CmdTextMode   = "AT+CMGF=1"
	CmdRegStatus  = "AT+CREG?"
	CmdSendSMS    = "AT+CMGS="
	CommandSuffix = "\r"
)

// CtrlZ terminates an SMS body.
const CtrlZ byte = 0x1A

// Final result codes, terse (ATV0) and verbose.
const (
	ResultOK         = "0"
	ResultError      = "4"
	ResultOKVerbose  = "OK"
	ResultErrVerbose = "ERROR"
	cmsErrorPrefix   = "+CMS ERROR"
	cmeErrorPrefix   = "+CME ERROR"
)

// finalResult tells whether resp ends a command and whether it failed.
// Receive may join several lines, so verbose codes are also matched as
// suffixes.
func finalResult(resp string) (final, failed bool) {
	resp = strings.TrimSpace(resp)
	switch resp {
	case ResultOK, ResultOKVerbose:
		return true, false
	case ResultError, ResultErrVerbose:
		return true, true
	}
	switch {
	case strings.HasPrefix(resp, cmsErrorPrefix), strings.HasPrefix(resp, cmeErrorPrefix),
		strings.HasSuffix(resp, ResultErrVerbose):
		return true, true
	case strings.HasSuffix(resp, ResultOKVerbose):
		return true, false
	}
	return false, false
}
