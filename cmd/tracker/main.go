package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/config"
	fx "github.com/robotalks/tracker.go/pkg/framework"
	"github.com/robotalks/tracker.go/pkg/tracker"

	_ "github.com/robotalks/tracker.go/pkg/sim"
)

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

	t, err := tracker.New(conf)
	if err != nil {
		glog.Exitf("tracker: %v", err)
	}

	err = fx.NewRunner().HandleSignals().Go(t).Wait()
	t.Close()
	if err != nil {
		glog.Exitf("tracker: %v", err)
	}
}
