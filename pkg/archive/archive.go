package archive

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cloud-bulldozer/go-commons/indexers"
	"github.com/cloud-bulldozer/speedtest-influx/pkg/logging"
	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
)

const (
	ltcyMetric = "ms"
	tputMetric = "bit/s"
)

// Indexer types accepted by Connect
const (
	OpenSearch = "opensearch"
	Local      = "local"
)

// Doc struct of the JSON document to be indexed
type Doc struct {
	UUID         string                `json:"uuid"`
	Timestamp    time.Time             `json:"timestamp"`
	Download     float64               `json:"download"`
	Upload       float64               `json:"upload"`
	DownloadMbps float64               `json:"downloadMbps"`
	UploadMbps   float64               `json:"uploadMbps"`
	Latency      float64               `json:"latency"`
	TputMetric   string                `json:"tputMetric"`
	LtcyMetric   string                `json:"ltcyMetric"`
	Server       result.Server         `json:"server"`
	Client       result.Client         `json:"client"`
	LatencyStats result.LatencySummary `json:"latencyStats"`
	ToolVersion  string                `json:"toolVersion"`
}

// Connect returns an indexer. target is the server URL for opensearch or
// the output directory for local.
func Connect(indexerType, target, index string) (*indexers.Indexer, error) {
	var err error
	var indexer *indexers.Indexer
	indexerConfig := indexers.IndexerConfig{
		Index:              index,
		InsecureSkipVerify: true,
	}
	switch indexerType {
	case OpenSearch:
		indexerConfig.Type = OpenSearch
		indexerConfig.Servers = []string{target}
	case Local:
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory %s", target)
		}
		indexerConfig.Type = Local
		indexerConfig.MetricsDirectory = target
	default:
		return nil, fmt.Errorf("unknown indexer type %q", indexerType)
	}
	logging.Infof("📁 Creating indexer: %s", indexerConfig.Type)
	indexer, err = indexers.NewIndexer(indexerConfig)
	if err != nil {
		logging.Errorf("%v indexer: %v", indexerConfig.Type, err.Error())
		return nil, fmt.Errorf("failure while connecting to %s indexer", indexerType)
	}
	logging.Infof("Connected to : %s ", target)
	return indexer, nil
}

// Index ships the documents and logs the indexer response.
func Index(indexer *indexers.Indexer, docs []interface{}, uuid string) error {
	resp, err := (*indexer).Index(docs, indexers.IndexingOpts{MetricName: "speedtest-" + uuid})
	if err != nil {
		return err
	}
	logging.Info(resp)
	return nil
}

// BuildDocs returns the documents that need to be indexed or an error.
func BuildDocs(r result.Result, uuid, version string) ([]interface{}, error) {
	if len(r.Server.ID) < 1 {
		return nil, fmt.Errorf("no result documents")
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	d := Doc{
		UUID:         uuid,
		Timestamp:    ts,
		Download:     r.Download,
		Upload:       r.Upload,
		DownloadMbps: r.DownloadMbps(),
		UploadMbps:   r.UploadMbps(),
		Latency:      r.Latency,
		TputMetric:   tputMetric,
		LtcyMetric:   ltcyMetric,
		Server:       r.Server,
		Client:       r.Client,
		LatencyStats: r.Summary(),
		ToolVersion:  version,
	}
	return []interface{}{d}, nil
}

// Common csv header fields.
func csvHeaderFields() []string {
	return []string{
		"UUID",
		"Timestamp",
		"Server ID",
		"Server Name",
		"Server Country",
		"Sponsor",
		"Distance (km)",
		"Download",
		"Upload",
		"Throughput Metric",
		"Latency",
		"Latency Metric",
		"Jitter",
	}
}

func csvDataFields(r result.Result, uuid string) []string {
	return []string{
		uuid,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Server.ID,
		r.Server.Name,
		r.Server.Country,
		r.Server.Sponsor,
		strconv.FormatFloat(r.Server.Distance, 'f', 2, 64),
		strconv.FormatFloat(r.Download, 'f', -1, 64),
		strconv.FormatFloat(r.Upload, 'f', -1, 64),
		tputMetric,
		strconv.FormatFloat(r.Latency, 'f', -1, 64),
		ltcyMetric,
		strconv.FormatFloat(r.Summary().Jitter, 'f', -1, 64),
	}
}

// WriteJSON writes the documents as indented JSON
func WriteJSON(w io.Writer, r result.Result, uuid, version string) error {
	docs, err := BuildDocs(r, uuid, version)
	if err != nil {
		return err
	}
	p, err := json.MarshalIndent(docs, " ", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(p))
	return err
}

// WriteJSONResult sends the results as JSON to stdout
func WriteJSONResult(r result.Result, uuid, version string) error {
	return WriteJSON(os.Stdout, r, uuid, version)
}

// WriteCSVResult appends the result to fn, writing the header first when
// the file is new or empty.
func WriteCSVResult(fn string, r result.Result, uuid string) error {
	fp, err := os.OpenFile(fn, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open archive file")
	}
	defer fp.Close()
	st, err := fp.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive file")
	}
	archive := csv.NewWriter(fp)
	if st.Size() == 0 {
		if err := archive.Write(csvHeaderFields()); err != nil {
			return fmt.Errorf("failed to write result archive to file")
		}
	}
	if err := archive.Write(csvDataFields(r, uuid)); err != nil {
		return fmt.Errorf("failed to write archive to file")
	}
	archive.Flush()
	return archive.Error()
}
