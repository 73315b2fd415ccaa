package mqtt

import (
	"context"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/tracker.go/pkg/report/msgs"
)

// WatchReports subscribes to the reports of all units and calls fn for each
// until ctx is done.
func WatchReports(ctx context.Context, q *Queue, fn func(*msgs.OdometerReport)) error {
	reports := make(chan *msgs.OdometerReport, 16)
	sub := q.Sub("+/"+TopicReport, func(topic string, payload []byte) {
		msg, err := msgs.DecodeOdometerReport(payload)
		if err != nil {
			glog.Warningf("bad report on %q: %v", topic, err)
			return
		}
		if msg.UnitID == "" {
			msg.UnitID = strings.SplitN(topic, "/", 2)[0]
		}
		select {
		case reports <- msg:
		case <-ctx.Done():
		}
	})
	defer sub.Close()
	if sub.Token.Wait() && sub.Token.Error() != nil {
		return sub.Token.Error()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-reports:
			fn(msg)
		}
	}
}
