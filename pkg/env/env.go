// Package env provides facts about the host.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so it isn't exposed as is.
const AppID = "tracker"

// MachineID returns a stable ID of the machine, derived from the OS
// machine ID. It falls back to the hostname.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id unavailable: %v", err)
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}

// UnitID returns configured unless it's empty, then the MachineID.
func UnitID(configured string) string {
	if configured != "" {
		return configured
	}
	return MachineID()
}
