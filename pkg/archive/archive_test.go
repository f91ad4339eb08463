package archive

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
)

func fixture() result.Result {
	return result.Result{
		Timestamp:      time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Download:       100_000_000,
		Upload:         20_000_000,
		Latency:        15.5,
		Server:         result.Server{ID: "1234", Name: "TestServer", Country: "US", Sponsor: "ACME", Distance: 12.3},
		Client:         result.Client{IP: "192.0.2.10", ISP: "Example ISP"},
		LatencySamples: []float64{15, 16, 15.5},
	}
}

// TestBuildDocs Test for success. One document carrying the run identity
func TestBuildDocs(t *testing.T) {
	docs, err := BuildDocs(fixture(), "run-1", "v0.1.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	d := docs[0].(Doc)
	if d.UUID != "run-1" || d.ToolVersion != "v0.1.0" {
		t.Fatalf("unexpected identity %+v", d)
	}
	if d.DownloadMbps != 100 || d.UploadMbps != 20 || d.Latency != 15.5 {
		t.Fatalf("unexpected values %+v", d)
	}
	if d.LatencyStats.Samples != 3 || d.LtcyMetric != "ms" {
		t.Fatalf("unexpected latency stats %+v", d.LatencyStats)
	}
}

// TestBuildDocsEmpty Testing for failure. No server means no measurement
func TestBuildDocsEmpty(t *testing.T) {
	if _, err := BuildDocs(result.Result{}, "run-1", ""); err == nil {
		t.Fatal("BuildDocs should have failed but succeeded")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, fixture(), "run-1", "dev"); err != nil {
		t.Fatal(err)
	}
	var docs []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &docs); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	server := docs[0]["server"].(map[string]interface{})
	if server["name"] != "TestServer" || docs[0]["uuid"] != "run-1" {
		t.Fatalf("unexpected document %v", docs[0])
	}
}

func TestWriteCSVResultAppends(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "results.csv")
	for _, id := range []string{"run-1", "run-2"} {
		if err := WriteCSVResult(fn, fixture(), id); err != nil {
			t.Fatal(err)
		}
	}
	fp, err := os.Open(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	rows, err := csv.NewReader(fp).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two rows, got %d", len(rows))
	}
	if rows[0][0] != "UUID" || rows[1][0] != "run-1" || rows[2][0] != "run-2" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[1][3] != "TestServer" || rows[1][7] != "100000000" {
		t.Fatalf("unexpected row %v", rows[1])
	}
}

func TestConnectUnknownType(t *testing.T) {
	if _, err := Connect("cassandra", "http://localhost", "speedtest"); err == nil {
		t.Fatal("Connect should have failed but succeeded")
	}
}

func TestLocalIndex(t *testing.T) {
	dir := t.TempDir()
	indexer, err := Connect(Local, dir, "speedtest")
	if err != nil {
		t.Fatal(err)
	}
	docs, _ := BuildDocs(fixture(), "run-1", "dev")
	if err := Index(indexer, docs, "run-1"); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("local indexer wrote nothing")
	}
}
