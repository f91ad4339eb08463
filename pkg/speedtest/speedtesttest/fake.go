// Package speedtesttest provides an in-memory measurement client for tests.
package speedtesttest

import (
	"context"
	"strings"

	result "github.com/cloud-bulldozer/speedtest-influx/pkg/results"
	"github.com/cloud-bulldozer/speedtest-influx/pkg/speedtest"
)

// Client records every call made through it and its servers, in order.
type Client struct {
	Config     result.Client
	ConfigErr  error
	Servers    []*Server
	ServersErr error
	Calls      []string
}

// Server is a canned candidate server.
type Server struct {
	Meta         result.Server
	Latency      float64
	Samples      []float64
	PingErr      error
	DownloadRate float64
	DownloadErr  error
	UploadRate   float64
	UploadErr    error

	client *Client
}

func (c *Client) record(call string) {
	c.Calls = append(c.Calls, call)
}

// Called reports whether any recorded call starts with prefix.
func (c *Client) Called(prefix string) bool {
	for _, call := range c.Calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func (c *Client) FetchConfig(_ context.Context) (result.Client, error) {
	c.record("config")
	return c.Config, c.ConfigErr
}

func (c *Client) FetchServers(_ context.Context) ([]speedtest.Server, error) {
	c.record("servers")
	if c.ServersErr != nil {
		return nil, c.ServersErr
	}
	out := make([]speedtest.Server, 0, len(c.Servers))
	for _, s := range c.Servers {
		s.client = c
		out = append(out, s)
	}
	return out, nil
}

func (s *Server) record(op string) {
	if s.client != nil {
		s.client.record(op + ":" + s.Meta.ID)
	}
}

func (s *Server) Info() result.Server {
	return s.Meta
}

func (s *Server) Ping(_ context.Context) (float64, []float64, error) {
	s.record("ping")
	if s.PingErr != nil {
		return 0, nil, s.PingErr
	}
	return s.Latency, s.Samples, nil
}

func (s *Server) Download(_ context.Context) (float64, error) {
	s.record("download")
	return s.DownloadRate, s.DownloadErr
}

func (s *Server) Upload(_ context.Context) (float64, error) {
	s.record("upload")
	return s.UploadRate, s.UploadErr
}
