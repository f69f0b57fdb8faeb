// Package config loads the service configuration from defaults, DNSCACHE_* environment
// variables and command-line flags, in that order of precedence (flags win).
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "DNSCACHE_"

type Config struct {
	// TTL is how long a resolved domain is served from cache (ttlSeconds).
	TTL time.Duration
	// JanitorPeriod is the sweep interval (janitorPeriodSeconds).
	JanitorPeriod time.Duration

	// Listen is the HTTP listen address.
	Listen string
	// AllowOrigins lists browser origins accepted by the HTTP API; empty allows all.
	AllowOrigins []string
	// Upstream is a DNS server address; empty uses the system resolver.
	Upstream        string
	UpstreamTimeout time.Duration

	// Workers and QueueSize size the lookup pool.
	Workers   int
	QueueSize int

	// Coalesce shares one upstream call between concurrent misses for the same domain.
	Coalesce bool

	LogLevel  string
	LogFormat string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TTL:             300 * time.Second,
		JanitorPeriod:   60 * time.Second,
		Listen:          ":8053",
		UpstreamTimeout: 5 * time.Second,
		Workers:         4,
		QueueSize:       64,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

/*
Load builds a Config.

1. Start from Default()
2. Apply DNSCACHE_* variables found through getenv (nil means none)
3. Parse args as flags
4. Validate
*/
func Load(args []string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("dnscache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	ttl := fs.Int("ttl-seconds", int(cfg.TTL/time.Second), "cache entry lifetime in seconds")
	period := fs.Int("janitor-period-seconds", int(cfg.JanitorPeriod/time.Second), "expired entry sweep interval in seconds")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
	origins := fs.String("allow-origins", strings.Join(cfg.AllowOrigins, ","), "comma-separated browser origins allowed to use the API (empty: all)")
	fs.StringVar(&cfg.Upstream, "upstream", cfg.Upstream, "DNS server to query (empty: system resolver)")
	fs.DurationVar(&cfg.UpstreamTimeout, "upstream-timeout", cfg.UpstreamTimeout, "timeout of one DNS exchange")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "lookup worker goroutines")
	fs.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "pending lookup queue size")
	fs.BoolVar(&cfg.Coalesce, "coalesce", cfg.Coalesce, "share upstream calls between concurrent identical misses")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	cfg.TTL = time.Duration(*ttl) * time.Second
	cfg.JanitorPeriod = time.Duration(*period) * time.Second
	cfg.AllowOrigins = splitList(*origins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	seconds := map[string]*time.Duration{
		"TTL_SECONDS":            &c.TTL,
		"JANITOR_PERIOD_SECONDS": &c.JanitorPeriod,
	}
	for name, dst := range seconds {
		if v := getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, envPrefix, name, v, err)
			}
			*dst = time.Duration(n) * time.Second
		}
	}

	strs := map[string]*string{
		"LISTEN":     &c.Listen,
		"UPSTREAM":   &c.Upstream,
		"LOG_LEVEL":  &c.LogLevel,
		"LOG_FORMAT": &c.LogFormat,
	}
	for name, dst := range strs {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"WORKERS": &c.Workers,
		"QUEUE":   &c.QueueSize,
	}
	for name, dst := range ints {
		if v := getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, envPrefix, name, v, err)
			}
			*dst = n
		}
	}

	if v := getenv(envPrefix + "ALLOW_ORIGINS"); v != "" {
		c.AllowOrigins = splitList(v)
	}
	if v := getenv(envPrefix + "UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sUPSTREAM_TIMEOUT=%q: %v", ErrInvalid, envPrefix, v, err)
		}
		c.UpstreamTimeout = d
	}
	if v := getenv(envPrefix + "COALESCE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sCOALESCE=%q: %v", ErrInvalid, envPrefix, v, err)
		}
		c.Coalesce = b
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	switch {
	case c.TTL <= 0:
		return fmt.Errorf("%w: ttl must be positive, got %v", ErrInvalid, c.TTL)
	case c.JanitorPeriod <= 0:
		return fmt.Errorf("%w: janitor period must be positive, got %v", ErrInvalid, c.JanitorPeriod)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	case c.QueueSize < 0:
		return fmt.Errorf("%w: queue size must not be negative, got %d", ErrInvalid, c.QueueSize)
	case c.UpstreamTimeout <= 0:
		return fmt.Errorf("%w: upstream timeout must be positive, got %v", ErrInvalid, c.UpstreamTimeout)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
