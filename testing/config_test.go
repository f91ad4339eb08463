package speedtest

import (
	"testing"
	"time"

	"github.com/cloud-bulldozer/speedtest-influx/pkg/config"
)

// TestParseConf Test for success. Ensure we successfully parse a good config file
func TestParseConf(t *testing.T) {
	file := "test-config.yml"
	c, err := config.ParseConf(file)
	if err != nil {
		t.Fatal("Parsing config file failed")
	}
	if c.Server != "1234" || c.Influx.Bucket != "home/autogen" || c.Influx.Org != "lab" {
		t.Fatalf("unexpected config %+v", c)
	}
}

// TestShippingConf Test for success. Ensure we successfully parse the default config
func TestShippingConf(t *testing.T) {
	file := "../speedtest.yml"
	_, err := config.ParseConf(file)
	if err != nil {
		t.Fatal("Parsing config file failed")
	}
}

// TestBadTimeoutConf Testing for failure. Negative timeout
func TestBadTimeoutConf(t *testing.T) {
	file := "test-bad-timeout-config.yml"
	_, err := config.ParseConf(file)
	if err == nil {
		t.Fatal("Parsing config file should have failed but succeeded")
	}
}

// TestBadSearchConf Testing for failure. Search is not a URL
func TestBadSearchConf(t *testing.T) {
	file := "test-bad-search-config.yml"
	_, err := config.ParseConf(file)
	if err == nil {
		t.Fatal("Parsing config file should have failed but succeeded")
	}
}

// TestBadYAMLConf Testing for failure. Malformed YAML
func TestBadYAMLConf(t *testing.T) {
	file := "test-bad-yaml-config.yml"
	_, err := config.ParseConf(file)
	if err == nil {
		t.Fatal("Parsing config file should have failed but succeeded")
	}
}

// TestNoStoreWithoutURL Test the store option stays nil without INFLUXDB_V2_URL
func TestNoStoreWithoutURL(t *testing.T) {
	t.Setenv(config.EnvInfluxURL, "")
	t.Setenv(config.EnvInfluxToken, "secret")
	c, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Store != nil {
		t.Fatalf("expected no store, got %+v", c.Store)
	}
}

// TestStoreDefaults Test the bucket/org defaults apply when only the URL is set
func TestStoreDefaults(t *testing.T) {
	t.Setenv(config.EnvInfluxURL, "http://influx:8086")
	t.Setenv(config.EnvInfluxToken, "secret")
	t.Setenv(config.EnvInfluxOrg, "")
	t.Setenv(config.EnvInfluxBucket, "")
	t.Setenv(config.EnvInfluxTimeout, "")
	t.Setenv(config.EnvInfluxVerifySSL, "")
	c, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	s := c.Store
	if s == nil {
		t.Fatal("expected a store")
	}
	if s.URL != "http://influx:8086" || s.Token != "secret" {
		t.Fatalf("unexpected store %+v", s)
	}
	if s.Bucket != config.DefaultBucket || s.Org != config.DefaultOrg {
		t.Fatalf("expected default destination, got %s/%s", s.Bucket, s.Org)
	}
	if s.Timeout != config.DefaultTimeout || !s.VerifySSL {
		t.Fatalf("unexpected store options %+v", s)
	}
}

// TestStoreOverrides Test the precedence env > file > defaults
func TestStoreOverrides(t *testing.T) {
	t.Setenv(config.EnvInfluxURL, "http://influx:8086")
	t.Setenv(config.EnvInfluxOrg, "home")
	t.Setenv(config.EnvInfluxBucket, "")
	t.Setenv(config.EnvInfluxTimeout, "2500")
	t.Setenv(config.EnvInfluxVerifySSL, "false")
	t.Setenv(config.EnvServer, "4321")
	c, err := config.Load("test-config.yml")
	if err != nil {
		t.Fatal(err)
	}
	if c.Store.Org != "home" {
		t.Fatalf("env org should win, got %s", c.Store.Org)
	}
	if c.Store.Bucket != "home/autogen" {
		t.Fatalf("file bucket should win over default, got %s", c.Store.Bucket)
	}
	if c.Store.Timeout != 2500*time.Millisecond {
		t.Fatalf("unexpected timeout %s", c.Store.Timeout)
	}
	if c.Store.VerifySSL {
		t.Fatal("expected VerifySSL=false")
	}
	if c.Server != "4321" {
		t.Fatalf("env server should win over file, got %q", c.Server)
	}
}

// TestBadTimeoutEnv Testing for failure. Timeout not a number
func TestBadTimeoutEnv(t *testing.T) {
	t.Setenv(config.EnvInfluxURL, "http://influx:8086")
	t.Setenv(config.EnvInfluxTimeout, "soon")
	if _, err := config.Load(""); err == nil {
		t.Fatal("Loading config should have failed but succeeded")
	}
}

// TestServerFromEnv Test SPEEDTEST_SERVER fills in a missing server
func TestServerFromEnv(t *testing.T) {
	t.Setenv(config.EnvInfluxURL, "")
	t.Setenv(config.EnvServer, "4321")
	c, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Server != "4321" {
		t.Fatalf("unexpected server %q", c.Server)
	}
}
