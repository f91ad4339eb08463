package influx

import (
	"context"
	"crypto/tls"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"github.com/cloud-bulldozer/speedtest-influx/pkg/config"
	"github.com/cloud-bulldozer/speedtest-influx/pkg/logging"
	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
)

// Measurement is the name of every point written.
const Measurement = "speed_test_results"

// Writer writes points synchronously.
type Writer interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
	Close()
}

// WriterFactory builds a Writer for the store.
type WriterFactory func(*config.StoreConfig) Writer

// Publisher writes results to InfluxDB when a store is configured.
type Publisher struct {
	Store     *config.StoreConfig
	Log       logrus.FieldLogger
	NewWriter WriterFactory
}

type clientWriter struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
}

// NewPublisher returns a Publisher. A nil store makes Publish a no-op.
func NewPublisher(store *config.StoreConfig) *Publisher {
	return &Publisher{Store: store, Log: logging.Logger(), NewWriter: NewWriter}
}

// BuildPoint formats the payload: three fields and three tags, always.
func BuildPoint(r result.Result) *write.Point {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(Measurement,
		map[string]string{
			"server":         r.Server.ID,
			"server_name":    r.Server.Name,
			"server_country": r.Server.Country,
		},
		map[string]interface{}{
			"download": r.Download,
			"upload":   r.Upload,
			"ping":     r.Latency,
		},
		ts)
}

// Publish writes the result and reports whether it was stored. Write and
// connection failures are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, r result.Result) bool {
	if p.Store == nil {
		return false
	}
	pt := BuildPoint(r)
	w := p.NewWriter(p.Store)
	defer w.Close()
	if err := w.WritePoint(ctx, pt); err != nil {
		p.Log.Errorf("Data not written to influxdb: %v", err)
		return false
	}
	p.Log.Debug("Data written to InfluxDB")
	return true
}

// NewWriter connects a blocking write API to the store's bucket/org pair.
func NewWriter(s *config.StoreConfig) Writer {
	opts := influxdb2.DefaultOptions().SetHTTPRequestTimeout(seconds(s.Timeout))
	if !s.VerifySSL {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	client := influxdb2.NewClientWithOptions(s.URL, s.Token, opts)
	return &clientWriter{
		client: client,
		api:    client.WriteAPIBlocking(s.Org, s.Bucket),
	}
}

func (w *clientWriter) WritePoint(ctx context.Context, point ...*write.Point) error {
	return w.api.WritePoint(ctx, point...)
}

func (w *clientWriter) Close() {
	w.client.Close()
}

// seconds rounds up, the client only takes whole seconds.
func seconds(d time.Duration) uint {
	if d <= 0 {
		d = config.DefaultTimeout
	}
	return uint((d + time.Second - 1) / time.Second)
}
