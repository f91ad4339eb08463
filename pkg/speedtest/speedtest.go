// Package speedtest selects a speedtest.net server and measures throughput
// against it.
package speedtest

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	log "github.com/cloud-bulldozer/speedtest-influx/pkg/logging"
	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
)

// DefaultClosest is how many of the nearest candidates get a latency probe.
const DefaultClosest = 5

// Target is a measurement client bound to the selected server.
type Target struct {
	Server         Server
	Client         result.Client
	Latency        float64
	LatencySamples []float64
}

// Selector picks the lowest latency server.
type Selector struct {
	Client  Client
	Log     logrus.FieldLogger
	Closest int
}

// NewSelector returns a Selector logging through the default logger.
func NewSelector(c Client) *Selector {
	return &Selector{Client: c, Log: log.Logger(), Closest: DefaultClosest}
}

// ParseServerIDs splits the identifier constraint on whitespace. Every
// token must be an integer.
func ParseServerIDs(serverID string) ([]int, error) {
	var ids []int
	for _, tok := range strings.Fields(serverID) {
		id, err := strconv.Atoi(tok)
		if err != nil {
			return nil, errors.Wrapf(err, "server id %q", tok)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Select fetches the client configuration, then the server list, then
// probes the closest candidates. All failures are *SelectError except a
// failed probe of every candidate, which returns ErrNoReachableServer.
func (s *Selector) Select(ctx context.Context, serverID string) (*Target, error) {
	s.Log.Debug("Setting up SpeedTest.net client")
	cfg, err := s.Client.FetchConfig(ctx)
	if err != nil {
		return nil, &SelectError{Kind: KindConfig, Err: err}
	}
	ids, err := ParseServerIDs(serverID)
	if err != nil {
		return nil, &SelectError{Kind: KindInvalidID, ServerID: serverID, Err: err}
	}
	servers, err := s.Client.FetchServers(ctx)
	if err != nil {
		return nil, &SelectError{Kind: KindServerList, ServerID: serverID, Err: err}
	}
	candidates := filter(servers, ids)
	if len(candidates) == 0 {
		return nil, &SelectError{Kind: KindNoMatch, ServerID: serverID, Err: ErrNoMatchedServers}
	}

	s.Log.Debug("Picking the closest server")
	t, err := s.best(ctx, candidates)
	if err != nil {
		return nil, err
	}
	t.Client = cfg
	info := t.Server.Info()
	s.Log.Infof("Selected Server %s in %s", info.ID, info.Name)
	return t, nil
}

func filter(servers []Server, ids []int) []Server {
	if len(ids) == 0 {
		return servers
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Server
	for _, srv := range servers {
		id, err := strconv.Atoi(srv.Info().ID)
		if err != nil {
			continue
		}
		if want[id] {
			out = append(out, srv)
		}
	}
	return out
}

func (s *Selector) best(ctx context.Context, candidates []Server) (*Target, error) {
	sorted := make([]Server, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Info().Distance < sorted[j].Info().Distance
	})
	n := s.Closest
	if n <= 0 {
		n = DefaultClosest
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	var best *Target
	for _, srv := range sorted {
		latency, samples, err := srv.Ping(ctx)
		if err != nil {
			s.Log.Debugf("Latency probe of server %s failed: %v", srv.Info().ID, err)
			continue
		}
		if best == nil || latency < best.Latency {
			best = &Target{Server: srv, Latency: latency, LatencySamples: samples}
		}
	}
	if best == nil {
		return nil, ErrNoReachableServer
	}
	return best, nil
}

// Measure runs the download then the upload test against the selected
// server. Errors from either phase are returned as is.
func Measure(ctx context.Context, t *Target, logger logrus.FieldLogger) (result.Result, error) {
	r := result.Result{
		Latency:        t.Latency,
		Server:         t.Server.Info(),
		Client:         t.Client,
		LatencySamples: t.LatencySamples,
	}
	var err error
	logger.Info("Starting download test")
	r.Download, err = t.Server.Download(ctx)
	if err != nil {
		return r, errors.Wrap(err, "download test")
	}
	logger.Info("Starting upload test")
	r.Upload, err = t.Server.Upload(ctx)
	if err != nil {
		return r, errors.Wrap(err, "upload test")
	}
	r.Timestamp = time.Now().UTC()
	logger.Infof("Download: %.2fMbps - Upload: %.2fMbps - Latency: %vms", r.DownloadMbps(), r.UploadMbps(), r.Latency)
	return r, nil
}
