// Package config loads and validates harness configuration from flags,
// environment variables, and optional config files.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

// DispatchModel selects the concurrency strategy for a batch.
type DispatchModel string

const (
	ModelThreaded    DispatchModel = "threaded"
	ModelCooperative DispatchModel = "cooperative"
)

// Config is the fully-resolved harness configuration.
type Config struct {
	ProxyHost   string `mapstructure:"proxy_host"`
	ProxyPort   int    `mapstructure:"proxy_port"`
	ProxyUser   string `mapstructure:"proxy_user"`
	ProxyPass   string `mapstructure:"proxy_pass"`
	ProxyScheme string `mapstructure:"proxy_scheme"`

	TargetURL   string        `mapstructure:"target"`
	Requests    int           `mapstructure:"requests"`
	Model       DispatchModel `mapstructure:"model"`
	Workers     int           `mapstructure:"workers"`
	MaxInflight int           `mapstructure:"max_inflight"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Rate        int           `mapstructure:"rate"`
	Retries     int           `mapstructure:"retries"`
	OriginField string        `mapstructure:"origin_field"`

	Format      string `mapstructure:"format"`
	ReportFile  string `mapstructure:"report_file"`
	LogErrors   bool   `mapstructure:"log_errors"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// ProxyURL assembles the forward proxy endpoint from host, port, and scheme.
func (c Config) ProxyURL() (*url.URL, error) {
	host := strings.TrimSpace(c.ProxyHost)
	if host == "" {
		return nil, fmt.Errorf("proxy host is required")
	}
	scheme := strings.TrimSpace(c.ProxyScheme)
	if scheme == "" {
		scheme = "http"
	}
	return &url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", host, c.ProxyPort),
	}, nil
}

// Credentials returns the proxy credentials, or nil when none are configured.
func (c Config) Credentials() *transport.Credentials {
	if c.ProxyUser == "" && c.ProxyPass == "" {
		return nil
	}
	return &transport.Credentials{Username: c.ProxyUser, Password: c.ProxyPass}
}

// ValidationError aggregates every configuration issue found.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns the individual validation problems.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the configuration and collects all issues into a single
// error.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(c.TargetURL); err != nil {
		issues = append(issues, fmt.Sprintf("target: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target: scheme must be http or https, got %q", u.Scheme))
	}

	if strings.TrimSpace(c.ProxyHost) == "" {
		issues = append(issues, "proxy host is required")
	}
	if c.ProxyPort < 1 || c.ProxyPort > 65535 {
		issues = append(issues, "proxy port must be between 1 and 65535")
	}
	if scheme := strings.TrimSpace(c.ProxyScheme); scheme != "" && scheme != "http" && scheme != "https" {
		issues = append(issues, fmt.Sprintf("proxy scheme must be http or https, got %q", scheme))
	}

	if c.Requests < 0 {
		issues = append(issues, "requests must be >= 0")
	}
	switch c.Model {
	case "", ModelThreaded, ModelCooperative:
	default:
		issues = append(issues, fmt.Sprintf("model must be %q or %q, got %q", ModelThreaded, ModelCooperative, c.Model))
	}
	if c.Workers < 1 {
		issues = append(issues, "workers must be >= 1")
	}
	if c.MaxInflight < 1 {
		issues = append(issues, "max-inflight must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", "text", "json", "yaml":
	default:
		issues = append(issues, fmt.Sprintf("format must be text, json, or yaml, got %q", c.Format))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}
	if p := strings.ToLower(strings.TrimSpace(c.Tracing.Protocol)); p != "" && p != "grpc" && p != "http" {
		issues = append(issues, fmt.Sprintf("tracing protocol must be grpc or http, got %q", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
