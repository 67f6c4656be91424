package main

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	transportFastHTTP = "fasthttp"
	transportCoder    = "coder"
)

// Config holds the wsrpcctl configuration.
type Config struct {
	URL          string            `yaml:"url"`
	Headers      map[string]string `yaml:"headers"`
	Transport    string            `yaml:"transport"`
	QueueSize    int               `yaml:"queue_size"`
	DialTimeout  time.Duration     `yaml:"dial_timeout"`
	WriteTimeout time.Duration     `yaml:"write_timeout"`
	PingInterval time.Duration     `yaml:"ping_interval"`
	LogLevel     string            `yaml:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		Transport:    transportFastHTTP,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		LogLevel:     logrus.WarnLevel.String(),
	}
}

// DefaultConfigPath returns ~/.wsrpc/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".wsrpc", "config.yaml")
	}
	return filepath.Join(home, ".wsrpc", "config.yaml")
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("no url configured")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.Wrap(err, "invalid url")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Errorf("url scheme must be ws or wss, got %q", u.Scheme)
	}

	switch c.Transport {
	case transportFastHTTP, transportCoder:
	default:
		return errors.Errorf("unknown transport %q", c.Transport)
	}

	if c.QueueSize < 0 {
		return errors.New("queue_size cannot be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) ParsedURL() url.URL {
	u, _ := url.Parse(c.URL)
	return *u
}

func (c *Config) HTTPHeader() http.Header {
	h := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	return h
}

// SetHeaders merges "Key: Value" pairs into the configured headers.
func (c *Config) SetHeaders(pairs []string) error {
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return errors.Errorf("invalid header %q, expected \"Key: Value\"", pair)
		}
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return nil
}
