// Package runner strings a speed test run together: select a server,
// measure, publish.
package runner

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cloud-bulldozer/speedtest-influx/pkg/influx"
	"github.com/cloud-bulldozer/speedtest-influx/pkg/logging"
	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
	"github.com/cloud-bulldozer/speedtest-influx/pkg/speedtest"
)

// Sink receives the result after it was published to InfluxDB.
type Sink struct {
	Name    string
	Deliver func(ctx context.Context, r result.Result) error
}

// Runner runs one speed test.
type Runner struct {
	Selector  *speedtest.Selector
	Publisher *influx.Publisher
	Sinks     []Sink
	Log       logrus.FieldLogger
}

// New returns a Runner sharing one logger between its parts.
func New(client speedtest.Client, publisher *influx.Publisher, logger logrus.FieldLogger, sinks ...Sink) *Runner {
	sel := speedtest.NewSelector(client)
	sel.Log = logger
	publisher.Log = logger
	return &Runner{
		Selector:  sel,
		Publisher: publisher,
		Sinks:     sinks,
		Log:       logger,
	}
}

// Run performs the speed test with the provided server constraint.
//
// Recoverable selection failures are logged and Run returns (nil, nil).
// A configuration failure is logged as critical and returned so the caller
// can terminate. Measurement errors are returned unlogged.
func (r *Runner) Run(ctx context.Context, serverID string) (*result.Result, error) {
	r.Log.Infof("Starting Speed Test For Server %s", display(serverID))

	target, err := r.Selector.Select(ctx, serverID)
	if err != nil {
		kind, ok := speedtest.KindOf(err)
		if !ok {
			return nil, err
		}
		switch kind {
		case speedtest.KindConfig:
			logging.Critical(r.Log, "Failed to get speedtest.net configuration.  Aborting")
			return nil, err
		case speedtest.KindNoMatch:
			r.Log.Errorf("No matched servers: %s", serverID)
		case speedtest.KindServerList:
			logging.Critical(r.Log, "Cannot retrieve speedtest.net server list. Aborting")
		case speedtest.KindInvalidID:
			r.Log.Errorf("%s is an invalid server type, must be int", serverID)
		}
		r.Log.Debug(err)
		return nil, nil
	}

	res, err := speedtest.Measure(ctx, target, r.Log)
	if err != nil {
		return nil, err
	}

	r.Publisher.Publish(ctx, res)
	for _, s := range r.Sinks {
		if err := s.Deliver(ctx, res); err != nil {
			r.Log.Errorf("%s: %v", s.Name, err)
		}
	}
	return &res, nil
}

func display(serverID string) string {
	if serverID == "" {
		return "(closest)"
	}
	return serverID
}
