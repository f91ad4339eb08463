package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/cloud-bulldozer/speedtest-influx/pkg/logging"
	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
)

var labels = []string{"server", "server_name", "server_country"}

// Gauges holds the speed test gauges in a private registry, the textfile
// must only contain this run.
type Gauges struct {
	registry *prometheus.Registry
	Download *prometheus.GaugeVec
	Upload   *prometheus.GaugeVec
	Ping     *prometheus.GaugeVec
	LastRun  prometheus.Gauge
}

// NewGauges registers the gauges in a new registry.
func NewGauges() *Gauges {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Gauges{
		registry: reg,
		Download: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "speedtest_download_bits_per_second",
				Help: "Download rate measured by the last speed test.",
			}, labels),
		Upload: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "speedtest_upload_bits_per_second",
				Help: "Upload rate measured by the last speed test.",
			}, labels),
		Ping: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "speedtest_ping_milliseconds",
				Help: "Latency to the selected server.",
			}, labels),
		LastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "speedtest_last_run_timestamp_seconds",
				Help: "Unix time of the last completed speed test.",
			}),
	}
}

// Observe sets every gauge from the result
func (g *Gauges) Observe(r result.Result) {
	lv := []string{r.Server.ID, r.Server.Name, r.Server.Country}
	g.Download.WithLabelValues(lv...).Set(r.Download)
	g.Upload.WithLabelValues(lv...).Set(r.Upload)
	g.Ping.WithLabelValues(lv...).Set(r.Latency)
	g.LastRun.Set(float64(r.Timestamp.Unix()))
}

// Write renders the registry in the text exposition format
func (g *Gauges) Write(w io.Writer) error {
	mfs, err := g.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextfile writes the result for the node_exporter textfile collector.
// The file is replaced atomically so a scrape never sees a partial write.
func WriteTextfile(path string, r result.Result) error {
	g := NewGauges()
	g.Observe(r)
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create textfile: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := g.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to render metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move textfile in place: %w", err)
	}
	logging.Debugf("Wrote metrics textfile %s", path)
	return nil
}
