package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robotalks/tracker.go/pkg/config"
	"github.com/robotalks/tracker.go/pkg/report/mqtt"
	"github.com/robotalks/tracker.go/pkg/report/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/tracker/"
)

func init() {
	if val := os.Getenv(config.EnvMQTTURL); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Sub("+/"+mqtt.TopicMeta, mqtt.Handler(func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err = mqtt.WatchReports(ctx, q, func(r *msgs.OdometerReport) {
		log.Printf("%s/%s: odometer %d (%d km) at %s",
			r.UnitID, r.VehicleID, r.Odometer, r.Kilometers,
			r.ReportTime().Format("2006-01-02 15:04:05"))
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalln(err)
	}
}
