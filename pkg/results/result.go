package result

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	math "github.com/aclements/go-moremath/stats"
	"github.com/cloud-bulldozer/speedtest-influx/pkg/logging"
	stats "github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Specify Language specific case wrapper as global variable
var caser = cases.Title(language.English)

const bitsPerMegabit = 1000000

// Server is the speedtest.net server a result was measured against.
type Server struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Country  string  `json:"country"`
	Sponsor  string  `json:"sponsor"`
	Host     string  `json:"host"`
	Distance float64 `json:"distanceKm"`
}

// Client describes the measuring side as reported by speedtest.net.
type Client struct {
	IP  string `json:"ip"`
	ISP string `json:"isp"`
}

// LatencySummary aggregates the ping samples taken against the selected server.
type LatencySummary struct {
	Samples    int       `json:"samples"`
	Mean       float64   `json:"mean"`
	Jitter     float64   `json:"jitter"`
	P99        float64   `json:"p99"`
	Confidence []float64 `json:"confidence"`
}

// Result describes one speed test run. Rates are bits/sec, latency is ms.
type Result struct {
	Timestamp      time.Time
	Download       float64
	Upload         float64
	Latency        float64
	Server         Server
	Client         Client
	LatencySamples []float64
}

// Average accepts array of floats to calculate average
func Average(vals []float64) (float64, error) {
	return stats.Mean(vals)
}

// Percentile accepts array of floats and the desired %tile to calculate
func Percentile(vals []float64, ptile float64) (float64, error) {
	return stats.Percentile(vals, ptile)
}

// ConfidenceInterval accepts array of floats and the desired confidence
func ConfidenceInterval(vals []float64, ci float64) (float64, float64, float64) {
	return math.MeanCI(vals, ci)
}

// Mbps converts bits/sec to megabits/sec rounded to two decimals.
func Mbps(bps float64) float64 {
	v, err := stats.Round(bps/bitsPerMegabit, 2)
	if err != nil {
		return 0
	}
	return v
}

// DownloadMbps rounded to two decimals
func (r Result) DownloadMbps() float64 {
	return Mbps(r.Download)
}

// UploadMbps rounded to two decimals
func (r Result) UploadMbps() float64 {
	return Mbps(r.Upload)
}

// Summary condenses the latency samples. With fewer than two samples only
// the mean is filled in.
func (r Result) Summary() LatencySummary {
	s := LatencySummary{Samples: len(r.LatencySamples), Confidence: []float64{0, 0}}
	if s.Samples == 0 {
		return s
	}
	s.Mean, _ = Average(r.LatencySamples)
	if s.Samples < 2 {
		return s
	}
	s.Jitter, _ = stats.StandardDeviation(r.LatencySamples)
	s.P99, _ = Percentile(r.LatencySamples, 99)
	_, lo, hi := ConfidenceInterval(r.LatencySamples, 0.95)
	s.Confidence = []float64{lo, hi}
	return s
}

// Method to init common table structure.
func initTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	return table
}

// RenderResult writes the result table to w
func RenderResult(w io.Writer, r Result) {
	table := initTable(w, []string{"Result Type", "Server", "Name", "Country", "Sponsor", "Value"})
	row := func(kind, value string) {
		table.Append([]string{fmt.Sprintf("📊 %s", caser.String(kind)), r.Server.ID, r.Server.Name, r.Server.Country, r.Server.Sponsor, value})
	}
	row("download", fmt.Sprintf("%s (Mb/s)", strconv.FormatFloat(r.DownloadMbps(), 'f', 2, 64)))
	row("upload", fmt.Sprintf("%s (Mb/s)", strconv.FormatFloat(r.UploadMbps(), 'f', 2, 64)))
	row("latency", fmt.Sprintf("%s (ms)", strconv.FormatFloat(r.Latency, 'f', -1, 64)))
	if s := r.Summary(); s.Samples > 1 {
		row("jitter", fmt.Sprintf("%f (ms)", s.Jitter))
		row("p99 latency", fmt.Sprintf("%f (ms)", s.P99))
	}
	table.Render()
}

// ShowResult will display the result to the user via stdout
func ShowResult(r Result) {
	logging.Debug("Rendering speed test results")
	RenderResult(os.Stdout, r)
}
