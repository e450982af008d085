package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/outboundlb/proxyprobe/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.NewLoader().Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ProxyHost != "localhost" {
		t.Errorf("proxy host = %q, want localhost", cfg.ProxyHost)
	}
	if cfg.ProxyPort != 3128 {
		t.Errorf("proxy port = %d, want 3128", cfg.ProxyPort)
	}
	if cfg.Requests != 10 {
		t.Errorf("requests = %d, want 10", cfg.Requests)
	}
	if cfg.Model != config.ModelThreaded {
		t.Errorf("model = %q, want threaded", cfg.Model)
	}
	if cfg.Workers != 5 {
		t.Errorf("workers = %d, want 5", cfg.Workers)
	}
	if cfg.MaxInflight != 10 {
		t.Errorf("max inflight = %d, want 10", cfg.MaxInflight)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("timeout = %s, want 10s", cfg.Timeout)
	}
	if cfg.OriginField != "origin" {
		t.Errorf("origin field = %q, want origin", cfg.OriginField)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{
		"--proxy-host", "proxy.example.com",
		"--proxy-port", "8080",
		"--proxy-user", "user",
		"--proxy-pass", "secret",
		"--target", "https://httpbin.org/ip",
		"--requests", "50",
		"--model", "Cooperative",
		"--max-inflight", "20",
		"--timeout", "3s",
		"--format", "JSON",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ProxyHost != "proxy.example.com" || cfg.ProxyPort != 8080 {
		t.Errorf("proxy endpoint = %s:%d", cfg.ProxyHost, cfg.ProxyPort)
	}
	if creds := cfg.Credentials(); creds == nil || creds.Username != "user" || creds.Password != "secret" {
		t.Errorf("credentials = %+v", creds)
	}
	if cfg.Requests != 50 {
		t.Errorf("requests = %d, want 50", cfg.Requests)
	}
	if cfg.Model != config.ModelCooperative {
		t.Errorf("model = %q, want cooperative (lowercased)", cfg.Model)
	}
	if cfg.MaxInflight != 20 {
		t.Errorf("max inflight = %d, want 20", cfg.MaxInflight)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("timeout = %s, want 3s", cfg.Timeout)
	}
	if cfg.Format != "json" {
		t.Errorf("format = %q, want json (lowercased)", cfg.Format)
	}
}

func TestLoadReadsProxyEnvironment(t *testing.T) {
	t.Setenv("PROXY_HOST", "env-proxy.internal")
	t.Setenv("PROXY_PORT", "3129")
	t.Setenv("PROXY_USER", "envuser")
	t.Setenv("PROXY_PASS", "envpass")

	cfg, err := config.NewLoader().Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ProxyHost != "env-proxy.internal" {
		t.Errorf("proxy host = %q, want env value", cfg.ProxyHost)
	}
	if cfg.ProxyPort != 3129 {
		t.Errorf("proxy port = %d, want 3129", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "envuser" || cfg.ProxyPass != "envpass" {
		t.Errorf("credentials = %q/%q", cfg.ProxyUser, cfg.ProxyPass)
	}
}

func TestLoadFlagBeatsEnvironment(t *testing.T) {
	t.Setenv("PROXY_HOST", "env-proxy.internal")

	cfg, err := config.NewLoader().Load([]string{"--proxy-host", "flag-proxy.internal"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProxyHost != "flag-proxy.internal" {
		t.Errorf("proxy host = %q, want flag value", cfg.ProxyHost)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	content := `
proxy_host: file-proxy.internal
proxy_port: 9090
target: https://httpbin.org/ip
requests: 25
model: cooperative
timeout: 5s
tracing:
  enabled: true
  endpoint: collector:4317
  protocol: grpc
  sample_rate: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ProxyHost != "file-proxy.internal" || cfg.ProxyPort != 9090 {
		t.Errorf("proxy endpoint = %s:%d", cfg.ProxyHost, cfg.ProxyPort)
	}
	if cfg.Requests != 25 {
		t.Errorf("requests = %d, want 25", cfg.Requests)
	}
	if cfg.Model != config.ModelCooperative {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.Timeout)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Endpoint != "collector:4317" {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("sample rate = %g, want 0.5", cfg.Tracing.SampleRate)
	}
}

func TestLoadHelpRequested(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}
