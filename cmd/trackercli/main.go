package main

import (
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/cli/sh"
	"github.com/robotalks/tracker.go/pkg/config"

	_ "github.com/robotalks/tracker.go/pkg/cli/cmds/all"
	_ "github.com/robotalks/tracker.go/pkg/sim"
)

//go-build: CGO_ENABLED=0

var conf *config.Config

func init() {
	var err error
	if conf, err = config.FromEnv(); err != nil {
		log.Fatalf("config: %v", err)
	}
	conf.SetupFlags(flag.CommandLine)
}

func main() {
	flag.Parse()
	defer glog.Flush()
	sh.Main(conf)
}
