package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
)

func fixture() result.Result {
	return result.Result{
		Timestamp: time.Unix(1760875200, 0),
		Download:  100_000_000,
		Upload:    20_000_000,
		Latency:   15.5,
		Server:    result.Server{ID: "1234", Name: "TestServer", Country: "US"},
	}
}

func TestObserve(t *testing.T) {
	g := NewGauges()
	g.Observe(fixture())
	if v := testutil.ToFloat64(g.Download.WithLabelValues("1234", "TestServer", "US")); v != 100_000_000 {
		t.Fatalf("download gauge = %v", v)
	}
	if v := testutil.ToFloat64(g.Ping.WithLabelValues("1234", "TestServer", "US")); v != 15.5 {
		t.Fatalf("ping gauge = %v", v)
	}
	if v := testutil.ToFloat64(g.LastRun); v != 1760875200 {
		t.Fatalf("last run gauge = %v", v)
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speedtest.prom")
	if err := WriteTextfile(path, fixture()); err != nil {
		t.Fatal(err)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(buf)
	for _, want := range []string{
		"# TYPE speedtest_download_bits_per_second gauge",
		`speedtest_ping_milliseconds{server="1234",server_country="US",server_name="TestServer"} 15.5`,
		"speedtest_last_run_timestamp_seconds 1.7608752e+09",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary file left behind: %v", entries)
	}
}
