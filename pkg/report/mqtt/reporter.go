package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/report/msgs"
)

// Topics under the prefix, per unit.
const (
	TopicMeta   = "meta"
	TopicReport = "report"
)

// Reporter publishes reports under <prefix><unit>/report and keeps a
// retained <prefix><unit>/meta while online.
type Reporter struct {
	Queue *Queue
	Meta  msgs.UnitMeta
	QoS   byte
	// Now is the clock stamped on reports.
	Now func() time.Time
}

// NewReporter creates a Reporter. The broker clears the meta topic when
// the unit goes away.
func NewReporter(brokerURL string, meta msgs.UnitMeta) (*Reporter, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+meta.UnitID+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("tracker:" + meta.UnitID)
	}
	r := &Reporter{Queue: NewQueue(opts, prefix), Meta: meta, QoS: 1, Now: time.Now}
	r.Queue.OnConnect = func(*Queue) { r.publishMeta(r.Meta.Encode()) }
	return r, nil
}

func (r *Reporter) topic(name string) string {
	return r.Meta.UnitID + "/" + name
}

func (r *Reporter) publishMeta(payload []byte) paho.Token {
	return r.Queue.PubWith(r.topic(TopicMeta), payload, 1, true)
}

// Report implements odometer.Reporter.
func (r *Reporter) Report(ctx context.Context, odometer int64) error {
	msg, err := msgs.NewOdometerReport(r.Meta.UnitID, r.Meta.VehicleID, odometer, r.Now())
	if err != nil {
		return err
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	token := r.Queue.PubWith(r.topic(TopicReport), data, r.QoS, false)
	return waitToken(ctx, token)
}

// Name implements framework.Named.
func (r *Reporter) Name() string {
	return "mqtt"
}

// Run implements framework.Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	r.Queue.Connect()
	<-ctx.Done()
	if r.Queue.Client.IsConnected() {
		r.publishMeta(nil).WaitTimeout(time.Second)
	}
	r.Queue.Close()
	glog.Info("mqtt reporter stopped")
	return ctx.Err()
}

func waitToken(ctx context.Context, token paho.Token) error {
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-done:
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
