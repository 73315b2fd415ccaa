// Package all registers all bench commands.
package all

import (
	_ "github.com/robotalks/tracker.go/pkg/cli/cmds/device"
	_ "github.com/robotalks/tracker.go/pkg/cli/cmds/odo"
)
