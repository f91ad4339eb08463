package speedtest

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/pkg/errors"
	st "github.com/showwin/speedtest-go/speedtest"

	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
)

// Version is reported in the User-Agent.
var Version = "dev"

// Client is the measurement client: it knows the caller's network and the
// speedtest.net server list.
type Client interface {
	FetchConfig(ctx context.Context) (result.Client, error)
	FetchServers(ctx context.Context) ([]Server, error)
}

// Server is one candidate speedtest.net server.
type Server interface {
	Info() result.Server
	// Ping probes the server and returns its latency and the individual
	// samples, in milliseconds.
	Ping(ctx context.Context) (float64, []float64, error)
	// Download and Upload return the measured rate in bits/sec.
	Download(ctx context.Context) (float64, error)
	Upload(ctx context.Context) (float64, error)
}

type stClient struct {
	speedtest *st.Speedtest
}

type stServer struct {
	server *st.Server
}

// UserAgent mimics a browser so speedtest.net serves the regular config.
func UserAgent() string {
	return fmt.Sprintf("Mozilla/5.0 (%s; U; %s; en-us) Go/%s (KHTML, like Gecko) speedtest-influx/%s",
		runtime.GOOS, runtime.GOARCH, runtime.Version(), Version)
}

// NewClient returns a Client backed by speedtest-go.
func NewClient() Client {
	return &stClient{
		speedtest: st.New(st.WithUserConfig(&st.UserConfig{
			UserAgent: UserAgent(),
		})),
	}
}

func (c *stClient) FetchConfig(ctx context.Context) (result.Client, error) {
	u, err := c.speedtest.FetchUserInfoContext(ctx)
	if err != nil {
		return result.Client{}, errors.Wrap(err, "fetching speedtest.net configuration")
	}
	return result.Client{IP: u.IP, ISP: u.Isp}, nil
}

func (c *stClient) FetchServers(ctx context.Context) ([]Server, error) {
	list, err := c.speedtest.FetchServerListContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching speedtest.net server list")
	}
	servers := make([]Server, 0, len(list))
	for _, s := range list {
		servers = append(servers, &stServer{server: s})
	}
	return servers, nil
}

func (s *stServer) Info() result.Server {
	return result.Server{
		ID:       s.server.ID,
		Name:     s.server.Name,
		Country:  s.server.Country,
		Sponsor:  s.server.Sponsor,
		Host:     s.server.Host,
		Distance: s.server.Distance,
	}
}

func (s *stServer) Ping(ctx context.Context) (float64, []float64, error) {
	var samples []float64
	err := s.server.PingTestContext(ctx, func(latency time.Duration) {
		samples = append(samples, milliseconds(latency))
	})
	if err != nil {
		return 0, samples, err
	}
	return milliseconds(s.server.Latency), samples, nil
}

func (s *stServer) Download(ctx context.Context) (float64, error) {
	if err := s.server.DownloadTestContext(ctx); err != nil {
		return 0, err
	}
	return float64(s.server.DLSpeed) * 8, nil
}

func (s *stServer) Upload(ctx context.Context) (float64, error) {
	if err := s.server.UploadTestContext(ctx); err != nil {
		return 0, err
	}
	return float64(s.server.ULSpeed) * 8, nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
