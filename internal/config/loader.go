package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files, environment variables, and
// command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// flagKeys maps viper config keys to their CLI flag names. Keys without an
// entry share the flag's name.
var flagKeys = map[string]string{
	"proxy_host":           "proxy-host",
	"proxy_port":           "proxy-port",
	"proxy_user":           "proxy-user",
	"proxy_pass":           "proxy-pass",
	"proxy_scheme":         "proxy-scheme",
	"target":               "target",
	"requests":             "requests",
	"model":                "model",
	"workers":              "workers",
	"max_inflight":         "max-inflight",
	"timeout":              "timeout",
	"rate":                 "rate",
	"retries":              "retries",
	"origin_field":         "origin-field",
	"format":               "format",
	"report_file":          "report-file",
	"log_errors":           "log-errors",
	"metrics_addr":         "metrics-addr",
	"tracing.enabled":      "trace",
	"tracing.endpoint":     "trace-endpoint",
	"tracing.protocol":     "trace-protocol",
	"tracing.service_name": "trace-service-name",
	"tracing.insecure":     "trace-insecure",
	"tracing.sample_rate":  "trace-sample-rate",
}

// envKeys binds config keys to the environment variables the original demo
// script reads.
var envKeys = map[string][]string{
	"proxy_host": {"PROXY_HOST"},
	"proxy_port": {"PROXY_PORT"},
	"proxy_user": {"PROXY_USER"},
	"proxy_pass": {"PROXY_PASS"},
	"target":     {"PROXYPROBE_TARGET"},
}

// Load parses command-line arguments, the environment, and an optional config
// file to produce a Config. Precedence: flags over environment over file over
// defaults.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	v := viper.New()
	for key, flagName := range flagKeys {
		if flag := flagSet.Lookup(flagName); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}
	for key, envs := range envKeys {
		keys := append([]string{key}, envs...)
		if err := v.BindEnv(keys...); err != nil {
			return nil, err
		}
	}

	configPath := strings.TrimSpace(flagSet.Lookup("config").Value.String())
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{ConfigFile: configPath}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.Model = DispatchModel(strings.ToLower(strings.TrimSpace(string(cfg.Model))))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.OriginField = strings.TrimSpace(cfg.OriginField)

	return cfg, nil
}
