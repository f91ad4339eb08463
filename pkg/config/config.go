package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	log "github.com/cloud-bulldozer/speedtest-influx/pkg/logging"
)

// Defaults for the InfluxDB destination. These match the layout the
// dashboards were built against and can be overridden.
const (
	DefaultBucket  = "speedtests/autogen"
	DefaultOrg     = "patrickjmcd"
	DefaultTimeout = 10 * time.Second
)

// Environment variables consumed at startup.
const (
	EnvInfluxURL       = "INFLUXDB_V2_URL"
	EnvInfluxToken     = "INFLUXDB_V2_TOKEN"
	EnvInfluxOrg       = "INFLUXDB_V2_ORG"
	EnvInfluxBucket    = "INFLUXDB_V2_BUCKET"
	EnvInfluxTimeout   = "INFLUXDB_V2_TIMEOUT"
	EnvInfluxVerifySSL = "INFLUXDB_V2_VERIFY_SSL"
	EnvServer          = "SPEEDTEST_SERVER"
	EnvLogLevel        = "LOG_LEVEL"
)

// InfluxConfig is the optional influx section of the YAML file.
type InfluxConfig struct {
	Bucket  string `yaml:"bucket,omitempty"`
	Org     string `yaml:"org,omitempty"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}

// StoreConfig describes where results are written. A nil *StoreConfig means
// no store is configured.
type StoreConfig struct {
	URL       string
	Token     string
	Org       string
	Bucket    string
	Timeout   time.Duration
	VerifySSL bool
}

// Config describes a speed test run
type Config struct {
	Server     string       `yaml:"server,omitempty"`
	LogLevel   string       `yaml:"logLevel,omitempty"`
	Influx     InfluxConfig `yaml:"influx,omitempty"`
	Search     string       `yaml:"search,omitempty"`
	ArchiveDir string       `yaml:"archiveDir,omitempty"`
	CSV        string       `yaml:"csv,omitempty"`
	Textfile   string       `yaml:"textfile,omitempty"`

	// Store is resolved from the environment by Load.
	Store *StoreConfig `yaml:"-"`
}

func validConfig(cfg Config) (bool, error) {
	if cfg.Influx.Timeout < 0 {
		return false, fmt.Errorf("influx timeout must be >= 0")
	}
	if cfg.Search != "" && !strings.HasPrefix(cfg.Search, "http") {
		return false, fmt.Errorf("search must be an http(s) URL")
	}
	return true, nil
}

// ParseConf will read in the YAML configuration file.
// Returns Config struct
func ParseConf(fn string) (Config, error) {
	var c Config
	log.Infof("📒 Reading %s file. ", fn)
	buf, err := os.ReadFile(fn)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(buf, &c)
	if err != nil {
		return c, fmt.Errorf("in file %q: %v", fn, err)
	}
	ok, err := validConfig(c)
	if !ok {
		return c, err
	}
	return c, nil
}

// Load builds the run configuration. A .env file in the working directory is
// loaded first if present, then the optional YAML file fn, then environment
// overrides. The store option is resolved last.
func Load(fn string) (Config, error) {
	var cfg Config
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "loading .env")
	}
	if len(fn) > 0 {
		c, err := ParseConf(fn)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if v := os.Getenv(EnvServer); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	store, err := ResolveStore(cfg.Influx)
	if err != nil {
		return cfg, err
	}
	cfg.Store = store
	return cfg, nil
}

// ResolveStore returns nil when INFLUXDB_V2_URL is unset. Otherwise the
// credentials are read from the environment and the destination falls back
// to the YAML section, then to the defaults.
func ResolveStore(ic InfluxConfig) (*StoreConfig, error) {
	url := os.Getenv(EnvInfluxURL)
	if url == "" {
		return nil, nil
	}
	s := &StoreConfig{
		URL:       url,
		Token:     os.Getenv(EnvInfluxToken),
		Org:       firstNonEmpty(os.Getenv(EnvInfluxOrg), ic.Org, DefaultOrg),
		Bucket:    firstNonEmpty(os.Getenv(EnvInfluxBucket), ic.Bucket, DefaultBucket),
		Timeout:   DefaultTimeout,
		VerifySSL: true,
	}
	if ic.Timeout > 0 {
		s.Timeout = time.Duration(ic.Timeout) * time.Millisecond
	}
	if v := os.Getenv(EnvInfluxTimeout); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("%s must be a positive number of milliseconds, got %q", EnvInfluxTimeout, v)
		}
		s.Timeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv(EnvInfluxVerifySSL); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", EnvInfluxVerifySSL)
		}
		s.VerifySSL = b
	}
	return s, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Show Display the run config
func Show(c Config) {
	if c.Store == nil {
		log.Infof("🗒️  Running speed test (server %q), no InfluxDB configured", c.Server)
		return
	}
	log.Infof("🗒️  Running speed test (server %q), writing to %s bucket %s org %s", c.Server, c.Store.URL, c.Store.Bucket, c.Store.Org)
}
